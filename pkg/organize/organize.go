// Package organize turns a raw entity registry into the final JSON Api Data:
// it resolves specializations, strips doc directives, normalizes requires
// clauses, assigns page names and builds groups.
package organize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"cppapidoc/pkg/apidata"
	"cppapidoc/pkg/comments"
	"cppapidoc/pkg/config"
	"cppapidoc/pkg/errors"
	"cppapidoc/pkg/parser"
)

// Organizer post-processes extracted entities.
type Organizer struct {
	cfg     *config.Config
	grammar parser.DeclarationGrammar
	logger  *log.Logger
}

// New creates an Organizer. A nil grammar selects parser.NewGrammar and a nil
// logger log.Default().
func New(cfg *config.Config, grammar parser.DeclarationGrammar, logger *log.Logger) *Organizer {
	if grammar == nil {
		grammar = parser.NewGrammar()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Organizer{cfg: cfg, grammar: grammar, logger: logger}
}

// state is the working data of one Organize call.
type state struct {
	*Organizer
	reg *apidata.Registry
	out *apidata.Output

	documented []*apidata.Entity // in registry order
	pages      map[string]string // id -> page name
	qualified  map[string]string // id -> qualified name
	names      map[string]string // qualified name -> id
}

// Organize runs every pass over reg and returns the output. reg is modified
// in place and must not be used afterwards.
func (o *Organizer) Organize(reg *apidata.Registry) (*apidata.Output, error) {
	s := &state{
		Organizer: o,
		reg:       reg,
		out:       apidata.NewOutput(),
		pages:     map[string]string{},
		qualified: map[string]string{},
		names:     map[string]string{},
	}
	s.out.Errors = append(s.out.Errors, reg.Errors...)
	s.out.Warnings = append(s.out.Warnings, reg.Warnings...)

	if err := s.resolveSpecializations(); err != nil {
		return nil, err
	}
	s.parseDirectives()
	if err := s.normalizeRequires(); err != nil {
		return nil, err
	}
	s.collectNonitpick()
	s.assignSpecialIDs()
	s.assignNames()
	if err := s.buildGroups(); err != nil {
		return nil, err
	}

	for _, e := range s.documented {
		e.DocumentPrefix = o.cfg.DocumentPrefix
		s.out.Entities[e.ID] = e
	}
	o.logger.Debug("organized entities",
		"documented", len(s.documented), "total", reg.Len(), "groups", len(s.out.Groups))
	return s.out, nil
}

type templateKey struct {
	parent, scope, name string
}

// resolveSpecializations links variable template specializations, which are
// only known by name, to their primary template.
func (s *state) resolveSpecializations() error {
	primaries := map[templateKey]string{}
	for _, e := range s.reg.Entities() {
		if e.Kind != apidata.KindVar || e.TemplateParameters == nil || e.Specializes != nil {
			continue
		}
		key := templateKey{e.Parent, e.Scope, e.Name}
		if prev, ok := primaries[key]; ok {
			return errors.Attr(errors.Attr(errors.Errorf(errors.KindDuplicate,
				"duplicate variable template %s", e.Name),
				"first", prev), "second", e.ID)
		}
		primaries[key] = e.ID
	}

	for _, e := range s.reg.Entities() {
		if e.Specializes == nil || !e.Specializes.Pending() {
			continue
		}
		base := e.Name
		if i := strings.IndexByte(base, '<'); i >= 0 {
			base = strings.TrimSpace(base[:i])
		}
		if id, ok := primaries[templateKey{e.Parent, e.Scope, base}]; ok {
			e.Specializes = apidata.ResolvedTo(id)
			continue
		}
		s.logger.Debug("primary template not found", "entity", e.ID, "name", base)
	}
	return nil
}

var directivePattern = regexp.MustCompile(`(?m)^[ \t]*[\\@](ingroup|relates|related|membergroup|id)[ \t]+(\S.*?)[ \t]*(?:\n|$)`)

// parseDirectives strips group directives from doc text, converts doc fields
// and decides which entities are documented.
func (s *state) parseDirectives() {
	for _, e := range s.reg.Entities() {
		if e.Doc == nil {
			continue
		}
		text := directivePattern.ReplaceAllStringFunc(e.Doc.Text, func(line string) string {
			m := directivePattern.FindStringSubmatch(line)
			switch m[1] {
			case "ingroup":
				e.SpecialIngroup = m[2]
			case "relates", "related":
				e.SpecialRelates = m[2]
			case "membergroup":
				e.SpecialMembergroup = m[2]
			case "id":
				e.SpecialID = m[2]
			}
			return ""
		})
		e.Doc.Text = strings.TrimRight(comments.ConvertFields(text), "\n")
	}

	for _, e := range s.reg.Entities() {
		if e.DocumentWith != "" {
			target, ok := s.reg.Get(e.DocumentWith)
			if !ok || target.Doc == nil {
				e.DocumentWith = ""
			}
		}
		if e.Doc == nil && e.DocumentWith == "" {
			continue
		}
		s.documented = append(s.documented, e)
		if e.DocumentWith != "" {
			target, _ := s.reg.Get(e.DocumentWith)
			target.Siblings = append(target.Siblings, e.ID)
		}
	}
}

// normalizeRequires flattens requires terms and turns an
// ExplicitRequires(cond) term of a constructor into explicit(cond).
func (s *state) normalizeRequires() error {
	for _, e := range s.documented {
		if len(e.Requires) == 0 {
			continue
		}
		loc := e.Location
		terms, err := s.grammar.NormalizeRequires(e.Requires, loc)
		if err != nil {
			return errors.Wrapf(err, errors.KindGrammar, "failed to normalize requires-clause of %s", e.Name)
		}

		kept := terms[:0]
		explicit := ""
		for _, t := range terms {
			if cond, ok := explicitCondition(t); ok {
				if explicit != "" {
					return errors.Attr(errors.Errorf(errors.KindConflict,
						"multiple ExplicitRequires terms on %s", e.Name), "location", loc.String())
				}
				explicit = cond
				continue
			}
			if s.cfg.HideType(t) {
				continue
			}
			kept = append(kept, t)
		}
		if explicit != "" {
			if e.Kind != apidata.KindConstructor {
				return errors.Attr(errors.Errorf(errors.KindConflict,
					"ExplicitRequires is only valid on constructors, found on %s %s", e.Kind, e.Name),
					"location", loc.String())
			}
			e.Declaration = spliceExplicit(e.Declaration, explicit)
		}
		if len(kept) == 0 {
			kept = nil
		}
		e.Requires = kept
	}
	return nil
}

const explicitRequires = "ExplicitRequires("

func explicitCondition(term string) (string, bool) {
	if strings.HasPrefix(term, "(") && strings.HasSuffix(term, ")") {
		term = term[1 : len(term)-1]
	}
	if !strings.HasPrefix(term, explicitRequires) || !strings.HasSuffix(term, ")") {
		return "", false
	}
	return strings.TrimSpace(term[len(explicitRequires) : len(term)-1]), true
}

var explicitKeyword = regexp.MustCompile(`\bexplicit\b`)

func spliceExplicit(decl, cond string) string {
	repl := "explicit(" + cond + ")"
	if loc := explicitKeyword.FindStringIndex(decl); loc != nil {
		return decl[:loc[0]] + repl + decl[loc[1]:]
	}
	return repl + " " + decl
}

// collectNonitpick attributes NONITPICK markers to the location of the doc
// comment they are rendered with.
func (s *state) collectNonitpick() {
	for _, e := range s.documented {
		if len(e.Nonitpick) == 0 {
			continue
		}
		doc := e.Doc
		if e.DocumentWith != "" {
			target, _ := s.reg.Get(e.DocumentWith)
			doc = target.Doc
		}
		loc := e.Location
		if doc != nil {
			loc = doc.Location
		}
		for _, n := range e.Nonitpick {
			s.out.Nonitpick = append(s.out.Nonitpick, apidata.Nonitpick{File: loc.File, Line: loc.Line, Target: n.Target})
		}
	}
}

type pageKey struct {
	parent, scope, component, id string
}

// assignSpecialIDs numbers entities whose page names would otherwise collide.
func (s *state) assignSpecialIDs() {
	groups := map[pageKey][]*apidata.Entity{}
	var order []pageKey
	for _, e := range s.documented {
		if e.DocumentWith != "" {
			continue
		}
		key := pageKey{e.Parent, e.Scope, PageComponent(e), e.SpecialID}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	for _, key := range order {
		es := groups[key]
		if len(es) < 2 {
			continue
		}
		locs := make([]string, len(es))
		for i, e := range es {
			e.SpecialID = fmt.Sprintf("%s%d", prefixID(key.id), i+1)
			locs[i] = e.Location.String()
		}
		loc := es[0].Location
		s.out.Warnings = append(s.out.Warnings, apidata.Diagnostic{
			Message:  fmt.Sprintf("Multiple entities with the same page name %q, assigned numeric ids: %s", key.component, strings.Join(locs, ", ")),
			Location: &loc,
		})
	}
}

func prefixID(id string) string {
	if id == "" {
		return ""
	}
	return id + "-"
}

// assignNames computes page names and object names and records every
// documented entity in the name table used to resolve \relates.
func (s *state) assignNames() {
	for _, e := range s.documented {
		if e.DocumentWith != "" {
			continue
		}
		e.PageName = s.pageName(e)
		e.ObjectName = s.qualifiedName(e)
		if e.SpecialID != "" {
			e.ObjectName += "[" + e.SpecialID + "]"
		}
		if _, ok := s.names[s.qualifiedName(e)]; !ok {
			s.names[s.qualifiedName(e)] = e.ID
		}
	}
	for _, e := range s.documented {
		if e.DocumentWith == "" {
			continue
		}
		target, _ := s.reg.Get(e.DocumentWith)
		e.PageName = target.PageName
		e.ObjectName = s.qualifiedName(e)
	}
}

func (s *state) pageName(e *apidata.Entity) string {
	if p, ok := s.pages[e.ID]; ok {
		return p
	}
	component := PageComponent(e)
	if e.SpecialID != "" {
		component += "-" + e.SpecialID
	}
	var page string
	if parent, ok := s.reg.Get(e.Parent); ok && e.Parent != "" {
		page = s.pageName(parent) + "." + component
	} else {
		page = strings.ReplaceAll(e.Scope, "::", ".") + component
	}
	s.pages[e.ID] = page
	return page
}

// qualifiedName returns the ::-qualified name of e.
func (s *state) qualifiedName(e *apidata.Entity) string {
	if q, ok := s.qualified[e.ID]; ok {
		return q
	}
	var q string
	if parent, ok := s.reg.Get(e.Parent); ok && e.Parent != "" {
		q = s.qualifiedName(parent) + "::" + e.Name
	} else {
		q = e.Scope + e.Name
	}
	s.qualified[e.ID] = q
	return q
}

// buildGroups files entities into \ingroup groups, under the entity they
// \relates to, or as members of their parent.
func (s *state) buildGroups() error {
	for _, e := range s.documented {
		if e.DocumentWith != "" {
			continue
		}
		loc := e.Location
		switch {
		case e.SpecialIngroup != "" && e.SpecialRelates != "":
			return errors.Attr(errors.Errorf(errors.KindConflict,
				"cannot specify both \\ingroup and \\relates for %s", e.Name), "location", loc.String())
		case e.SpecialIngroup != "" && e.SpecialMembergroup != "":
			return errors.Attr(errors.Errorf(errors.KindConflict,
				"cannot specify both \\ingroup and \\membergroup for %s", e.Name), "location", loc.String())
		}

		label := e.SpecialMembergroup
		if label == "" {
			label = DefaultLabel(e)
		}
		switch {
		case e.SpecialIngroup != "":
			s.out.Groups[e.SpecialIngroup] = append(s.out.Groups[e.SpecialIngroup], e.ID)
		case e.SpecialRelates != "":
			target, ok := s.resolveRelates(e)
			if !ok {
				s.out.Errors = append(s.out.Errors, apidata.Diagnostic{
					Message:  fmt.Sprintf("Cannot resolve \\relates target %q", e.SpecialRelates),
					Location: &loc,
				})
				continue
			}
			if e.Parent != "" {
				target.RelatedMembers = appendLabel(target.RelatedMembers, label, e.ID)
			} else {
				target.RelatedNonmembers = appendLabel(target.RelatedNonmembers, label, e.ID)
			}
		case e.Parent != "":
			if parent, ok := s.reg.Get(e.Parent); ok {
				parent.Members = appendLabel(parent.Members, label, e.ID)
			}
		default:
			s.out.Warnings = append(s.out.Warnings, apidata.Diagnostic{
				Message:  fmt.Sprintf("No group or relates specified for %s", s.qualifiedName(e)),
				Location: &loc,
			})
		}
	}
	return nil
}

// resolveRelates looks the \relates target up from the innermost enclosing
// scope of e outwards.
func (s *state) resolveRelates(e *apidata.Entity) (*apidata.Entity, bool) {
	target := strings.TrimPrefix(e.SpecialRelates, "::")
	var scope string
	if parent, ok := s.reg.Get(e.Parent); ok && e.Parent != "" {
		scope = s.qualifiedName(parent) + "::"
	} else {
		scope = e.Scope
	}
	parts := splitScope(scope)
	for i := len(parts); i >= 0; i-- {
		name := strings.Join(append(append([]string{}, parts[:i]...), target), "::")
		if id, ok := s.names[name]; ok {
			return s.reg.Get(id)
		}
	}
	return nil, false
}

// splitScope splits "a::B<c::d>::" into its components, ignoring "::" inside
// template argument lists.
func splitScope(scope string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(scope); i++ {
		switch scope[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ':':
			if depth == 0 && i+1 < len(scope) && scope[i+1] == ':' {
				if i > start {
					parts = append(parts, scope[start:i])
				}
				start = i + 2
				i++
			}
		}
	}
	if start < len(scope) {
		parts = append(parts, scope[start:])
	}
	return parts
}

func appendLabel(m map[string][]string, label, id string) map[string][]string {
	if m == nil {
		m = map[string][]string{}
	}
	m[label] = append(m[label], id)
	return m
}
