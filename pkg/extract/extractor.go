// Package extract turns the declarations of a translation unit into API
// entities.
//
// Each admitted declaration is reconstructed from its tokens, re-parsed with
// the declaration grammar and converted by a per-kind transform. Redeclarations
// of the same entity are merged, and undocumented declarations that directly
// follow a compatible one are folded into it with document_with.
package extract

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"cppapidoc/pkg/apidata"
	"cppapidoc/pkg/ast"
	"cppapidoc/pkg/comments"
	"cppapidoc/pkg/config"
	"cppapidoc/pkg/errors"
	"cppapidoc/pkg/parser"
)

// Extractor builds the entity registry of one translation unit. It is not
// safe for concurrent use.
type Extractor struct {
	cfg     *config.Config
	grammar parser.DeclarationGrammar
	logger  *log.Logger

	reg *apidata.Registry
}

// New creates an Extractor. A nil grammar selects parser.NewGrammar and a nil
// logger log.Default().
func New(cfg *config.Config, grammar parser.DeclarationGrammar, logger *log.Logger) *Extractor {
	if grammar == nil {
		grammar = parser.NewGrammar()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{cfg: cfg, grammar: grammar, logger: logger}
}

// predecessor is the last entity registered in a declaration list, the
// candidate for document_with folding.
type predecessor struct {
	id       string
	kind     apidata.Kind
	parent   string
	scope    string
	location ast.Location
	endLine  int
}

// Run walks the declarations of tu in order and returns the registry.
func (x *Extractor) Run(ctx context.Context, tu *ast.TranslationUnit) (*apidata.Registry, error) {
	x.reg = apidata.NewRegistry()
	if err := x.walk(ctx, tu.Decls); err != nil {
		return nil, err
	}
	x.logger.Debug("extracted entities", "count", x.reg.Len())
	return x.reg, nil
}

func (x *Extractor) walk(ctx context.Context, decls []*ast.Decl) error {
	var prev *predecessor
	for _, d := range decls {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.KindInternal, "extraction canceled")
		}
		if !x.admit(d) {
			x.logger.Debug("skipping declaration", "name", d.QualifiedName(), "location", d.Location)
			prev = nil
			continue
		}

		e, err := x.transform(d)
		if err != nil {
			return errors.Attr(err, "location", d.Location.String())
		}
		if e == nil {
			prev = nil
		} else {
			id, err := x.register(d, e, prev)
			if err != nil {
				return errors.Attr(err, "location", d.Location.String())
			}
			prev = &predecessor{
				id:       id,
				kind:     e.Kind,
				parent:   e.Parent,
				scope:    e.Scope,
				location: d.Location,
				endLine:  d.Extent.End.Line,
			}
		}

		if d.Kind.IsClassLike() && len(d.Children) > 0 {
			if err := x.walk(ctx, d.Children); err != nil {
				return err
			}
		}
	}
	return nil
}

// admit applies the path, namespace, symbol and macro filters.
func (x *Extractor) admit(d *ast.Decl) bool {
	if !x.cfg.AllowPath(d.File.Path) {
		return false
	}
	if d.Kind == ast.CursorMacroDefinition {
		return x.cfg.AllowMacro(d.Spelling)
	}
	root := d
	for root.Parent != nil {
		root = root.Parent
	}
	return x.cfg.AllowNamespace(root.Scope) && x.cfg.AllowSymbol(d.QualifiedName())
}

// register fills the fields shared by every kind, then adds e to the registry
// or merges it into the entity it redeclares. It returns the id under which
// the declaration ended up.
func (x *Extractor) register(d *ast.Decl, e *apidata.Entity, prev *predecessor) (string, error) {
	e.ID = d.USR
	if d.Parent != nil {
		e.Parent = d.Parent.USR
	} else {
		e.Scope = d.Scope
		e.IncludePath = x.cfg.IncludePath(d.File.Path)
	}
	e.Location = apiLocation(d.Location)

	res := comments.Extract(d.File, d, comments.DefaultOptions(d.Kind))
	e.Doc = apiDoc(res.Doc)
	e.Nonitpick = append(e.Nonitpick, apiNonitpick(res.Nonitpick)...)

	if existing, ok := x.reg.Get(e.ID); ok {
		return e.ID, merge(existing, e, d.IsDefinition)
	}

	if target := x.foldTarget(d, e, prev); target != "" {
		e.DocumentWith = target
	}
	x.reg.Add(e)
	return e.ID, nil
}

// foldTarget returns the entity e is documented with, or "".
func (x *Extractor) foldTarget(d *ast.Decl, e *apidata.Entity, prev *predecessor) string {
	if prev == nil || prev.id == e.ID {
		return ""
	}
	fold := prev.location == d.Location
	if !fold && e.Doc == nil {
		fold = prev.location.File == d.Location.File &&
			d.Extent.Start.Line == prev.endLine+1 &&
			compatibleKinds(prev.kind, e.Kind) &&
			prev.parent == e.Parent && prev.scope == e.Scope
	}
	if !fold {
		return ""
	}

	target := prev.id
	for seen := map[string]bool{}; !seen[target]; {
		seen[target] = true
		t, ok := x.reg.Get(target)
		if !ok || t.DocumentWith == "" {
			break
		}
		target = t.DocumentWith
	}
	return target
}

func compatibleKinds(a, b apidata.Kind) bool {
	if a.IsFunctionLike() && b.IsFunctionLike() {
		return true
	}
	return a == b
}

// merge combines a redeclaration into the registered entity. At most one of
// them may be documented, and their template parameters must agree up to
// one being a prefix of the other. A class or enum definition replaces the
// shape recorded from a forward declaration.
func merge(existing, e *apidata.Entity, definition bool) error {
	if existing.Doc != nil && e.Doc != nil {
		return errors.Attr(errors.Attr(errors.Errorf(errors.KindDuplicate,
			"duplicate doc string for %s", e.Name),
			"first", existing.Doc.Location.String()),
			"second", e.Doc.Location.String())
	}

	params, err := mergeTemplateParameters(existing.TemplateParameters, e.TemplateParameters)
	if err != nil {
		return errors.Attr(err, "entity", e.ID)
	}
	existing.TemplateParameters = params

	if definition && (e.Kind == apidata.KindClass || e.Kind == apidata.KindEnum) {
		existing.Location = e.Location
		existing.Keyword = e.Keyword
		existing.Prefix = e.Prefix
		existing.Bases = e.Bases
		existing.Enumerators = e.Enumerators
	}
	if e.Doc != nil {
		existing.Doc = e.Doc
		existing.DocumentWith = ""
	}
	existing.Nonitpick = append(existing.Nonitpick, e.Nonitpick...)
	return nil
}

func mergeTemplateParameters(a, b []apidata.TemplateParameter) ([]apidata.TemplateParameter, error) {
	if a == nil || b == nil {
		if a == nil {
			return b, nil
		}
		return a, nil
	}
	if len(a) != len(b) {
		return nil, errors.Errorf(errors.KindConflict,
			"conflicting template parameter lists: %d vs %d parameters", len(a), len(b))
	}
	out := make([]apidata.TemplateParameter, len(a))
	for i := range a {
		x, y := a[i], b[i]
		switch {
		case strings.HasPrefix(x.Declaration, y.Declaration):
			out[i] = x
		case strings.HasPrefix(y.Declaration, x.Declaration):
			out[i] = y
		default:
			return nil, errors.Errorf(errors.KindConflict,
				"conflicting template parameter %q vs %q", x.Declaration, y.Declaration)
		}
	}
	return out, nil
}

func apiLocation(l ast.Location) apidata.Location {
	return apidata.Location{File: l.File, Line: l.Line, Col: l.Column}
}

func apiDoc(d *comments.Doc) *apidata.Doc {
	if d == nil {
		return nil
	}
	return &apidata.Doc{Text: d.Text, Location: apiLocation(d.Location)}
}

func apiNonitpick(ns []comments.Nonitpick) []apidata.Nonitpick {
	out := make([]apidata.Nonitpick, 0, len(ns))
	for _, n := range ns {
		out = append(out, apidata.Nonitpick{File: n.File, Line: n.Line, Target: n.Target})
	}
	return out
}
