// Package cppast walks C++ translation units with tree-sitter and reports the
// declarations an API reference is built from.
//
// The walker evaluates the preprocessor conditionals it meets, follows
// #include directives it can resolve and synthesizes USRs that are stable
// across redeclarations, so out-of-line definitions meet their in-class
// declarations again.
package cppast

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"cppapidoc/pkg/ast"
	"cppapidoc/pkg/errors"
)

// Walker implements ast.DeclarationWalker on the tree-sitter C++ grammar.
type Walker struct {
	logger *log.Logger
}

// New creates a Walker. A nil logger falls back to log.Default().
func New(logger *log.Logger) *Walker {
	if logger == nil {
		logger = log.Default()
	}
	return &Walker{logger: logger}
}

var _ ast.DeclarationWalker = (*Walker)(nil)

// Parse reads and walks the main file of opts and everything it includes.
func (w *Walker) Parse(ctx context.Context, opts ast.ParseOptions) (*ast.TranslationUnit, error) {
	var content string
	if opts.Content != nil {
		content = *opts.Content
	} else {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, errors.Attr(errors.Wrapf(err, errors.KindIO, "failed to read %s", opts.Path), "path", opts.Path)
		}
		content = string(data)
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(cpp.GetLanguage())

	wk := &walk{
		ctx:       ctx,
		logger:    w.logger.With("file", opts.Path),
		parser:    p,
		pp:        newPreprocessor(opts.Flags),
		tu:        &ast.TranslationUnit{Files: map[string]*ast.File{}},
		classes:   map[string]*ast.Decl{},
		templates: map[string]string{},
		private:   map[string]bool{},
	}
	defer wk.close()

	file, src, root, err := wk.parseFile(opts.Path, content)
	if err != nil {
		return nil, err
	}
	wk.tu.Main = file
	wk.walkContainer(&scope{file: file, src: src, out: &wk.tu.Decls}, root)
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "parse canceled")
	}

	wk.logger.Debug("walked translation unit",
		"decls", len(wk.tu.Decls), "files", len(wk.tu.Files), "diagnostics", len(wk.tu.Diagnostics))
	return wk.tu, nil
}

// walk holds the state of one Parse call.
type walk struct {
	ctx    context.Context
	logger *log.Logger
	parser *sitter.Parser
	pp     *preprocessor
	tu     *ast.TranslationUnit
	trees  []*sitter.Tree

	classes   map[string]*ast.Decl // non-specialized classes by qualified name
	templates map[string]string    // primary template USRs by qualified name
	private   map[string]bool      // USRs of skipped private members
}

// scope is the lexical context declarations are reported into.
type scope struct {
	file   *ast.File
	src    []byte
	ns     string    // enclosing namespaces, "a::b::"
	parent *ast.Decl // enclosing class
	access ast.Access
	out    *[]*ast.Decl
	bound  uint32 // end of the previous sibling
}

func (sc *scope) content() []byte {
	return sc.src
}

// templateInfo describes the template introducers wrapping a declaration.
type templateInfo struct {
	start uint32
	lists []*sitter.Node
}

func (t *templateInfo) innermost() *sitter.Node {
	if t == nil || len(t.lists) == 0 {
		return nil
	}
	return t.lists[len(t.lists)-1]
}

func (wk *walk) close() {
	for _, t := range wk.trees {
		t.Close()
	}
}

func (wk *walk) parseFile(path, content string) (*ast.File, []byte, *sitter.Node, error) {
	src := []byte(content)
	tree, err := wk.parser.ParseCtx(wk.ctx, nil, src)
	if err != nil {
		return nil, nil, nil, errors.Attr(errors.Wrapf(err, errors.KindParse, "failed to parse %s", path), "path", path)
	}
	wk.trees = append(wk.trees, tree)
	file := ast.NewFile(path, content)
	wk.tu.Files[path] = file
	return file, src, tree.RootNode(), nil
}

func (wk *walk) diagnose(sev ast.Severity, loc ast.Location, format string, args ...any) {
	wk.tu.Diagnostics = append(wk.tu.Diagnostics, ast.Diagnostic{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

// syntaxError reports the first error node below n, if any.
func (wk *walk) syntaxError(sc *scope, n *sitter.Node) {
	bad := firstError(n)
	if bad == nil {
		return
	}
	loc := sc.file.Location(int(bad.StartByte()))
	if bad.IsMissing() {
		wk.diagnose(ast.SeverityError, loc, "expected '%s'", bad.Type())
		return
	}
	snippet := strings.TrimSpace(text(sc.content(), bad))
	if i := strings.IndexByte(snippet, '\n'); i >= 0 {
		snippet = snippet[:i]
	}
	if len(snippet) > 40 {
		snippet = snippet[:40]
	}
	wk.diagnose(ast.SeverityError, loc, "syntax error near '%s'", snippet)
}

func (wk *walk) walkContainer(sc *scope, n *sitter.Node) {
	for _, c := range namedChildren(n) {
		if wk.ctx.Err() != nil {
			return
		}
		wk.walkItem(sc, c, nil)
	}
}

func (wk *walk) walkItem(sc *scope, n *sitter.Node, tmpl *templateInfo) {
	switch n.Type() {
	case "comment":
		return
	case "namespace_definition":
		wk.namespace(sc, n)
	case "linkage_specification":
		if body := n.ChildByFieldName("body"); body != nil {
			if body.Type() == "declaration_list" {
				sc.bound = body.StartByte()
				wk.walkContainer(sc, body)
			} else {
				sc.bound = body.StartByte()
				wk.walkItem(sc, body, nil)
			}
		}
	case "declaration_list":
		wk.walkContainer(sc, n)
	case "template_declaration":
		wk.template(sc, n, tmpl)
	case "class_specifier", "struct_specifier", "union_specifier":
		wk.class(sc, n, tmpl)
	case "enum_specifier":
		wk.enum(sc, n)
	case "function_definition", "declaration", "field_declaration":
		wk.syntaxError(sc, n)
		wk.declaration(sc, n, tmpl, declOptions{})
	case "friend_declaration":
		wk.syntaxError(sc, n)
		wk.friend(sc, n, tmpl)
	case "alias_declaration":
		wk.syntaxError(sc, n)
		wk.alias(sc, n, tmpl)
	case "type_definition":
		wk.syntaxError(sc, n)
		wk.typedef(sc, n)
	case "preproc_def", "preproc_function_def":
		wk.macro(sc, n)
	case "preproc_call":
		wk.directive(sc, n)
	case "preproc_include":
		wk.include(sc, n)
	case "preproc_if", "preproc_ifdef":
		wk.conditional(sc, n)
	case "access_specifier":
		sc.access = parseAccess(text(sc.content(), n))
	case "ERROR":
		wk.syntaxError(sc, n)
	}
	sc.bound = n.EndByte()
}

func parseAccess(s string) ast.Access {
	switch strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ":")) {
	case "private":
		return ast.AccessPrivate
	case "protected":
		return ast.AccessProtected
	}
	return ast.AccessPublic
}

// emit records d in the current scope unless it is a private member.
func (wk *walk) emit(sc *scope, d *ast.Decl) bool {
	if sc.parent != nil && d.Parent == sc.parent && !d.IsFriend {
		if sc.access == ast.AccessPrivate {
			wk.private[d.USR] = true
			return false
		}
		d.Access = sc.access
	}
	if d.Parent != nil && d.Parent != sc.parent && (wk.private[d.USR] || wk.private[d.Parent.USR]) {
		return false
	}
	*sc.out = append(*sc.out, d)
	return true
}

// newDecl fills the fields shared by all declarations.
func (wk *walk) newDecl(sc *scope, kind ast.CursorKind, spelling string, start, end uint32, name *sitter.Node) *ast.Decl {
	d := &ast.Decl{
		Kind:        kind,
		Spelling:    spelling,
		File:        sc.file,
		Extent:      makeRange(sc.file, start, end),
		SearchStart: int(sc.bound),
		Parent:      sc.parent,
		Scope:       sc.ns,
	}
	if name != nil {
		d.Location = sc.file.Location(int(name.StartByte()))
	} else {
		d.Location = sc.file.Location(int(start))
	}
	return d
}

// baseUSR is the USR prefix for entities declared in sc.
func baseUSR(sc *scope) string {
	if sc.parent != nil {
		return sc.parent.USR
	}
	return scopeUSR(sc.ns)
}

func (wk *walk) namespace(sc *scope, n *sitter.Node) {
	name := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if name == nil || body == nil {
		// anonymous namespaces have internal linkage
		return
	}
	inner := &scope{
		file:  sc.file,
		src:   sc.src,
		ns:    sc.ns + strings.Join(strings.Fields(text(sc.content(), name)), "") + "::",
		out:   sc.out,
		bound: body.StartByte(),
	}
	wk.walkContainer(inner, body)
}

func (wk *walk) template(sc *scope, n *sitter.Node, outer *templateInfo) {
	params := n.ChildByFieldName("parameters")
	info := &templateInfo{start: n.StartByte()}
	if outer != nil {
		info.start = outer.start
		info.lists = append(info.lists, outer.lists...)
	}
	if params != nil {
		info.lists = append(info.lists, params)
	}
	bound := sc.bound
	for _, c := range namedChildren(n) {
		if sameNode(c, params) {
			continue
		}
		switch c.Type() {
		case "comment", "requires_clause":
			continue
		}
		sc.bound = bound
		wk.walkItem(sc, c, info)
	}
}

func (wk *walk) conditional(sc *scope, n *sitter.Node) {
	content := sc.content()
	for cur := n; cur != nil; {
		var (
			take   bool
			header *sitter.Node
		)
		switch cur.Type() {
		case "preproc_ifdef", "preproc_elifdef":
			header = cur.ChildByFieldName("name")
			negate := cur.Child(0) != nil && strings.HasSuffix(cur.Child(0).Type(), "ndef")
			take = wk.pp.defined(text(content, header)) != negate
		case "preproc_if", "preproc_elif":
			header = cur.ChildByFieldName("condition")
			take = wk.pp.condition(text(content, header), sc.file.Path)
		case "preproc_else":
			header = cur.Child(0)
			take = true
		default:
			return
		}
		alternative := cur.ChildByFieldName("alternative")
		if !take {
			cur = alternative
			continue
		}
		if header != nil {
			sc.bound = header.EndByte()
		}
		for _, c := range namedChildren(cur) {
			if sameNode(c, header) || sameNode(c, alternative) {
				continue
			}
			if wk.ctx.Err() != nil {
				return
			}
			wk.walkItem(sc, c, nil)
		}
		return
	}
}

func (wk *walk) macro(sc *scope, n *sitter.Node) {
	content := sc.content()
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	spelling := text(content, name)
	value := n.ChildByFieldName("value")
	wk.pp.define(spelling, text(content, value))

	end := name.EndByte()
	params := n.ChildByFieldName("parameters")
	if params != nil {
		end = params.EndByte()
	}
	if value != nil && value.EndByte() > end {
		end = value.EndByte()
	}
	for end > name.EndByte() && isSpace(content[end-1]) {
		end--
	}

	d := wk.newDecl(sc, ast.CursorMacroDefinition, spelling, name.StartByte(), end, name)
	d.Parent, d.Scope = nil, ""
	d.USR = macroUSR(spelling)
	d.TextRanges = []ast.Range{d.Extent}
	d.IsDefinition = true
	if params != nil {
		d.MacroParams = []string{}
		for _, p := range children(params) {
			switch p.Type() {
			case "identifier", "...":
				d.MacroParams = append(d.MacroParams, text(content, p))
			}
		}
	}
	// macros have file scope no matter where they are defined
	wk.tu.Decls = append(wk.tu.Decls, d)
}

func (wk *walk) directive(sc *scope, n *sitter.Node) {
	content := sc.content()
	directive := strings.TrimSpace(text(content, n.ChildByFieldName("directive")))
	if directive != "#undef" {
		return
	}
	if fields := strings.Fields(text(content, n.ChildByFieldName("argument"))); len(fields) > 0 {
		wk.pp.undef(fields[0])
	}
}

func (wk *walk) include(sc *scope, n *sitter.Node) {
	path := n.ChildByFieldName("path")
	if path == nil {
		return
	}
	raw := strings.TrimSpace(text(sc.content(), path))
	quoted := strings.HasPrefix(raw, `"`)
	name := strings.Trim(raw, `"<>`)

	resolved, ok := wk.pp.resolveInclude(sc.file.Path, name, quoted)
	if !ok {
		if quoted {
			wk.diagnose(ast.SeverityError, sc.file.Location(int(path.StartByte())), "'%s' file not found", name)
		}
		return
	}
	if _, seen := wk.tu.Files[resolved]; seen {
		return
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		wk.diagnose(ast.SeverityError, sc.file.Location(int(path.StartByte())), "cannot read '%s': %v", name, err)
		return
	}
	file, src, root, err := wk.parseFile(resolved, string(data))
	if err != nil {
		wk.diagnose(ast.SeverityError, sc.file.Location(int(path.StartByte())), "cannot parse '%s': %v", name, err)
		return
	}
	wk.logger.Debug("entering include", "path", resolved)
	inner := &scope{file: file, src: src, ns: sc.ns, parent: sc.parent, access: sc.access, out: sc.out}
	wk.walkContainer(inner, root)
}
