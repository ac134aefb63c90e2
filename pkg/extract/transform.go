package extract

import (
	"strings"

	"cppapidoc/pkg/apidata"
	"cppapidoc/pkg/ast"
	"cppapidoc/pkg/comments"
	"cppapidoc/pkg/errors"
	"cppapidoc/pkg/parser"
)

var functionKinds = map[ast.CursorKind]apidata.Kind{
	ast.CursorFunction:           apidata.KindFunction,
	ast.CursorMethod:             apidata.KindMethod,
	ast.CursorConstructor:        apidata.KindConstructor,
	ast.CursorDestructor:         apidata.KindDestructor,
	ast.CursorConversionFunction: apidata.KindConversionFunction,
}

const deductionGuidePrefix = "<deduction guide for "

// transform converts d into an entity without id, location or doc. A nil
// entity means the declaration is not documented.
func (x *Extractor) transform(d *ast.Decl) (*apidata.Entity, error) {
	switch {
	case d.Kind.IsClassLike():
		return x.class(d)
	case d.Kind.IsFunctionLike():
		return x.function(d)
	}
	switch d.Kind {
	case ast.CursorEnum:
		return x.enum(d), nil
	case ast.CursorVariable, ast.CursorField:
		return x.variable(d)
	case ast.CursorUnexposed:
		return x.variableTemplate(d)
	case ast.CursorTypedef, ast.CursorTypeAlias:
		return x.alias(d)
	case ast.CursorMacroDefinition:
		return x.macro(d), nil
	}
	return nil, nil
}

func (x *Extractor) function(d *ast.Decl) (*apidata.Entity, error) {
	if strings.HasPrefix(d.Spelling, deductionGuidePrefix) {
		return nil, nil
	}

	toks := sourceTokens(d.File, d.TextRanges...)
	kept := toks[:0:0]
	for _, tok := range toks {
		if tok.Type != parser.TokenFriend {
			kept = append(kept, tok)
		}
	}
	text := joinTokens(kept)

	fn, err := x.grammar.ParseFunction(text, d.Location)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindGrammar, "failed to parse function %s", d.QualifiedName())
	}

	sfinae := fn.ExtractEnableIf()
	own := ownHeads(fn.Templates, fn.Name.QualifierTemplateLists())
	requires := headRequires(own)
	if len(fn.Requires) > 0 {
		requires = append(requires, parser.FormatExpr(fn.Requires))
	}
	requires = append(requires, sfinae...)

	name := d.Spelling
	if args, ok := fn.Name.Args(); ok && d.Kind != ast.CursorConstructor {
		name += args
	}

	sub := x.grammar.NameSubstitute(text)
	e := &apidata.Entity{
		Kind:               functionKinds[d.Kind],
		Name:               name,
		TemplateParameters: x.headParameters(own),
		Requires:           x.replaceAll(requires),
		Declaration:        x.cfg.ReplaceTypes(fn.Declaration(sub)),
		NameSubstitute:     sub,
		Arity:              d.NumParams,
		Friend:             d.IsFriend,
	}
	if d.IsSpecialization && d.SpecializedUSR != "" {
		e.Specializes = apidata.ResolvedTo(d.SpecializedUSR)
	}
	return e, nil
}

var classKeywords = map[parser.TokenType]bool{
	parser.TokenClass:  true,
	parser.TokenStruct: true,
	parser.TokenUnion:  true,
}

func (x *Extractor) class(d *ast.Decl) (*apidata.Entity, error) {
	toks := normalizeTokens(sourceTokens(d.File, d.TextRanges...))
	p := SplitPrefix(toks)
	rest := toks[p.Start:]

	prefix := p.Specifiers
	name := d.Spelling
	if len(rest) > 0 && classKeywords[rest[0].Type] {
		i := 1
		for i < len(rest) {
			end := attributeEnd(rest, i)
			if end < 0 {
				break
			}
			prefix = append(prefix, parser.Format(rest[i:end]))
			i = end
		}
		for ; i < len(rest); i++ {
			if rest[i].Type == parser.TokenColon || rest[i].Type == parser.TokenLeftBrace {
				break
			}
			if rest[i].Value != d.Spelling || i+1 >= len(rest) || rest[i+1].Type != parser.TokenTemplateOpen {
				continue
			}
			if close := parser.MatchClose(rest, i+1); close > 0 {
				name += parser.Format(rest[i+1 : close+1])
			}
			break
		}
	}

	e := &apidata.Entity{
		Kind:     apidata.KindClass,
		Name:     name,
		Keyword:  d.Keyword,
		Prefix:   prefix,
		Requires: x.replaceAll(formatRequires(p.Requires)),
	}
	if n := len(p.Templates); n > 0 {
		params, err := x.introducerParameters(p.Templates[n-1], d.Location)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindGrammar, "failed to parse template parameters of %s", d.QualifiedName())
		}
		e.TemplateParameters = params
	}
	for _, b := range d.Bases {
		t := x.cfg.ReplaceTypes(formatType(d.File.Text(b.Range)))
		if x.cfg.HideType(t) {
			continue
		}
		e.Bases = append(e.Bases, apidata.Base{Type: t, Access: b.Access.String()})
	}
	if d.IsSpecialization && d.SpecializedUSR != "" {
		e.Specializes = apidata.ResolvedTo(d.SpecializedUSR)
	}
	return e, nil
}

// attributeEnd returns the index after the attribute starting at toks[i], or
// -1 when none starts there.
func attributeEnd(toks []parser.Token, i int) int {
	switch {
	case toks[i].Type == parser.TokenLeftBracket && i+1 < len(toks) && toks[i+1].Type == parser.TokenLeftBracket:
		if close := parser.MatchClose(toks, i); close > 0 {
			return close + 1
		}
	case parser.IsAttributeWord(toks[i].Value) && i+1 < len(toks) && toks[i+1].Type == parser.TokenLeftParen:
		if close := parser.MatchClose(toks, i+1); close > 0 {
			return close + 1
		}
	}
	return -1
}

func (x *Extractor) enum(d *ast.Decl) *apidata.Entity {
	e := &apidata.Entity{
		Kind:        apidata.KindEnum,
		Name:        d.Spelling,
		Keyword:     enumKeyword(sourceTokens(d.File, d.TextRanges...)),
		Enumerators: []apidata.Enumerator{},
	}
	for _, c := range d.Children {
		res := comments.Extract(c.File, c, comments.DefaultOptions(c.Kind))
		e.Nonitpick = append(e.Nonitpick, apiNonitpick(res.Nonitpick)...)
		e.Enumerators = append(e.Enumerators, apidata.Enumerator{
			Kind:     "enumerator",
			Name:     c.Spelling,
			Doc:      apiDoc(res.Doc),
			Location: apiLocation(c.Location),
		})
	}
	return e
}

// enumKeyword returns the class or struct following "enum", or "".
func enumKeyword(toks []parser.Token) string {
	for i, tok := range toks {
		if tok.Type != parser.TokenEnum {
			continue
		}
		if i+1 < len(toks) && (toks[i+1].Type == parser.TokenClass || toks[i+1].Type == parser.TokenStruct) {
			return toks[i+1].Value
		}
		return ""
	}
	return ""
}

func (x *Extractor) variable(d *ast.Decl) (*apidata.Entity, error) {
	text := Reconstruct(d.File, d.TextRanges...)
	m, err := x.grammar.ParseMember(text, d.Location)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindGrammar, "failed to parse variable %s", d.QualifiedName())
	}
	return x.member(d, m, text), nil
}

// variableTemplate handles the unexposed declarations that variable templates
// are reported as. Anything not introduced by a template head is ignored.
func (x *Extractor) variableTemplate(d *ast.Decl) (*apidata.Entity, error) {
	text := Reconstruct(d.File, d.TextRanges...)
	if !strings.HasPrefix(text, "template <") {
		x.logger.Debug("ignoring unexposed declaration", "name", d.QualifiedName(), "location", d.Location)
		return nil, nil
	}
	m, err := x.grammar.ParseMember(text, d.Location)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindGrammar, "failed to parse variable template %s", d.QualifiedName())
	}
	e := x.member(d, m, text)
	if d.IsSpecialization {
		// linked to the primary template by name once every entity is known
		e.Specializes = apidata.Unresolved()
	}
	return e, nil
}

func (x *Extractor) member(d *ast.Decl, m *parser.Member, text string) *apidata.Entity {
	sfinae := m.ExtractEnableIf()
	own := ownHeads(m.Templates, m.Name.QualifierTemplateLists())

	name := d.Spelling
	if args, ok := m.Name.Args(); ok {
		name += args
	}
	sub := x.grammar.NameSubstitute(text)
	e := &apidata.Entity{
		Kind:               apidata.KindVar,
		Name:               name,
		TemplateParameters: x.headParameters(own),
		Requires:           x.replaceAll(append(headRequires(own), sfinae...)),
		Declaration:        x.cfg.ReplaceTypes(m.Declaration(sub)),
		NameSubstitute:     sub,
	}
	if init := m.InitializerText(); init != "" {
		value := strings.TrimSpace(strings.TrimPrefix(init, "="))
		if !x.cfg.HideInitializer(value) {
			e.Initializer = init
		}
	}
	return e
}

func (x *Extractor) alias(d *ast.Decl) (*apidata.Entity, error) {
	e := &apidata.Entity{Kind: apidata.KindAlias, Name: d.Spelling}

	underlying := x.cfg.ReplaceTypes(formatType(Reconstruct(d.File, d.TypeRanges...)))
	if !x.cfg.HideType(underlying) {
		e.UnderlyingType = underlying
	}

	if d.Kind == ast.CursorTypeAlias {
		p := SplitPrefix(normalizeTokens(sourceTokens(d.File, d.TextRanges...)))
		if n := len(p.Templates); n > 0 {
			params, err := x.introducerParameters(p.Templates[n-1], d.Location)
			if err != nil {
				return nil, errors.Wrapf(err, errors.KindGrammar, "failed to parse template parameters of %s", d.QualifiedName())
			}
			e.TemplateParameters = params
			e.Requires = x.replaceAll(formatRequires(p.Requires))
		}
	}
	return e, nil
}

func (x *Extractor) macro(d *ast.Decl) *apidata.Entity {
	return &apidata.Entity{
		Kind:       apidata.KindMacro,
		Name:       d.Spelling,
		Parameters: macroParameters(d),
	}
}

// macroParameters returns the parameter spellings of a function-like macro,
// or nil when the name is not immediately followed by '('.
func macroParameters(d *ast.Decl) []string {
	toks := d.File.Tokens()
	i := d.File.TokenIndex(d.Extent.Start.Offset)
	if i+1 >= len(toks) {
		return nil
	}
	name, open := toks[i], toks[i+1]
	if open.Type != parser.TokenLeftParen || open.Offset != name.End() {
		return nil
	}
	params := []string{}
	for _, tok := range toks[i+2:] {
		switch {
		case tok.Type == parser.TokenRightParen, tok.Type == parser.TokenEOF, tok.Type == parser.TokenNewline:
			return params
		case tok.Type == parser.TokenEllipsis, tok.IsWord():
			params = append(params, tok.Value)
		}
	}
	return params
}

// ownHeads drops the template heads that belong to enclosing class templates
// of an out-of-line member.
func ownHeads(heads []*parser.TemplateHead, enclosing int) []*parser.TemplateHead {
	if enclosing >= len(heads) {
		return nil
	}
	return heads[enclosing:]
}

func headRequires(heads []*parser.TemplateHead) []string {
	var out []string
	for _, h := range heads {
		if len(h.Requires) > 0 {
			out = append(out, parser.FormatExpr(h.Requires))
		}
	}
	return out
}

func formatRequires(clauses [][]parser.Token) []string {
	var out []string
	for _, c := range clauses {
		out = append(out, parser.FormatExpr(c))
	}
	return out
}

// headParameters converts the parameters of the innermost head. It returns
// nil without heads and an empty list for "template <>".
func (x *Extractor) headParameters(heads []*parser.TemplateHead) []apidata.TemplateParameter {
	if len(heads) == 0 {
		return nil
	}
	return x.templateParameters(heads[len(heads)-1].Parameters)
}

// introducerParameters parses the parameters of a "template <...>" token
// slice.
func (x *Extractor) introducerParameters(head []parser.Token, loc ast.Location) ([]apidata.TemplateParameter, error) {
	close := parser.MatchClose(head, 1)
	if close < 0 {
		return nil, errors.Errorf(errors.KindGrammar, "unterminated template parameter list %q", joinTokens(head))
	}
	var params []*parser.TemplateParameter
	if inner := head[2:close]; len(inner) > 0 {
		for _, part := range parser.SplitCommas(inner) {
			p, err := x.grammar.ParseTemplateParameter(joinTokens(part), loc)
			if err != nil {
				return nil, err
			}
			params = append(params, p)
		}
	}
	return x.templateParameters(params), nil
}

func (x *Extractor) templateParameters(params []*parser.TemplateParameter) []apidata.TemplateParameter {
	out := []apidata.TemplateParameter{}
	for _, p := range params {
		decl := p.Declaration()
		if x.cfg.IgnoreTemplateParameter(decl) {
			continue
		}
		out = append(out, apidata.TemplateParameter{
			Declaration: x.cfg.ReplaceTypes(decl),
			Name:        p.Name,
			Kind:        p.Kind.String(),
			Pack:        p.Pack,
		})
	}
	return out
}

func (x *Extractor) replaceAll(ss []string) []string {
	for i, s := range ss {
		ss[i] = x.cfg.ReplaceTypes(s)
	}
	return ss
}
