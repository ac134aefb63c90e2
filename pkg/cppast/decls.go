package cppast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cppapidoc/pkg/ast"
)

var classKinds = map[string]ast.CursorKind{
	"class_specifier":  ast.CursorClass,
	"struct_specifier": ast.CursorStruct,
	"union_specifier":  ast.CursorUnion,
}

// declOptions adjusts how a declaration node is reported.
type declOptions struct {
	friend    bool
	textStart uint32 // start of the declaration text when it precedes the node
}

// segment is one declarator of a declaration together with its initializer.
type segment struct {
	decl       *sitter.Node
	start, end uint32
}

// hasParams reports whether a template parameter list declares parameters;
// "template <>" does not.
func hasParams(list *sitter.Node) bool {
	if list == nil {
		return false
	}
	for _, c := range namedChildren(list) {
		if c.Type() != "comment" {
			return true
		}
	}
	return false
}

// ownTemplateLists drops the lists consumed by template-ids in a qualifier
// such as "template <class T> void Box<T>::set(T)".
func ownTemplateLists(tmpl *templateInfo, consumed int) []*sitter.Node {
	if tmpl == nil || len(tmpl.lists) <= consumed {
		return nil
	}
	return tmpl.lists[consumed:]
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func parentNamespace(ns string) string {
	trimmed := strings.TrimSuffix(ns, "::")
	i := strings.LastIndex(trimmed, "::")
	if i < 0 {
		return ""
	}
	return trimmed[:i+2]
}

// resolveClass looks a qualifier up among the classes seen so far, searching
// outwards from the current scope.
func (wk *walk) resolveClass(sc *scope, parts []string, global bool) *ast.Decl {
	if len(parts) == 0 {
		return nil
	}
	q := strings.Join(parts, "::")
	candidates := []string{q}
	if !global {
		candidates = candidates[:0]
		if sc.parent != nil {
			candidates = append(candidates, sc.parent.QualifiedName()+"::"+q)
		}
		for ns := sc.ns; ; ns = parentNamespace(ns) {
			candidates = append(candidates, ns+q)
			if ns == "" {
				break
			}
		}
	}
	for _, c := range candidates {
		if d, ok := wk.classes[c]; ok {
			return d
		}
	}
	return nil
}

// qualify returns the scope a qualified declarator name refers to.
func (wk *walk) qualify(sc *scope, parts []string, global bool) *scope {
	if len(parts) == 0 && !global {
		return sc
	}
	out := *sc
	if cls := wk.resolveClass(sc, parts, global); cls != nil {
		out.parent = cls
		out.ns = cls.Scope
		return &out
	}
	out.parent = nil
	if global {
		out.ns = ""
	}
	if len(parts) > 0 {
		out.ns += strings.Join(parts, "::") + "::"
	}
	return &out
}

func (wk *walk) class(sc *scope, n *sitter.Node, tmpl *templateInfo) {
	content := sc.content()
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	body := n.ChildByFieldName("body")
	keyword := strings.TrimSuffix(n.Type(), "_specifier")

	dsc := sc
	if name.Type() == "qualified_identifier" {
		var parts []string
		var global bool
		parts, _, name, global = splitQualified(content, name)
		dsc = wk.qualify(sc, parts, global)
	}
	spelling, args := text(content, name), ""
	if name.Type() == "template_type" {
		spelling = text(content, name.ChildByFieldName("name"))
		args = templateArgs(content, name.ChildByFieldName("arguments"))
	}

	start := n.StartByte()
	if tmpl != nil {
		start = tmpl.start
	}
	kind := classKinds[n.Type()]
	tag := "@S@"
	if kind == ast.CursorUnion {
		tag = "@U@"
	}
	base := baseUSR(dsc)
	list := tmpl.innermost()

	var usr string
	switch {
	case list != nil && hasParams(list) && args == "":
		kind = ast.CursorClassTemplate
		usr = base + "@ST" + templateSignature(content, list) + "@" + spelling
	case list != nil && hasParams(list):
		kind = ast.CursorPartialSpecialization
		usr = base + "@SP" + templateSignature(content, list) + "@" + spelling + args
	case args != "":
		usr = base + tag + spelling + ">" + args
	default:
		usr = base + tag + spelling
	}

	textEnd := trimEnd(content, start, n.EndByte())
	if body != nil {
		textEnd = trimEnd(content, start, body.StartByte())
	}

	d := wk.newDecl(dsc, kind, spelling, start, n.EndByte(), name)
	d.USR = usr
	d.Keyword = keyword
	d.IsDefinition = body != nil
	d.TextRanges = []ast.Range{makeRange(sc.file, start, textEnd)}
	d.Bases = classBases(sc, n, keyword)
	if hasParams(list) {
		r := makeRange(sc.file, tmpl.start, n.StartByte())
		d.TemplateExtent = &r
	}

	q := d.QualifiedName()
	if args != "" {
		d.IsSpecialization = true
		d.SpecializedUSR = wk.templates[q]
	} else {
		if existing, ok := wk.classes[q]; !ok || (d.IsDefinition && !existing.IsDefinition) {
			wk.classes[q] = d
		}
		if kind == ast.CursorClassTemplate && wk.templates[q] == "" {
			wk.templates[q] = usr
		}
	}

	if !wk.emit(sc, d) || body == nil {
		return
	}
	access := ast.AccessPublic
	if keyword == "class" {
		access = ast.AccessPrivate
	}
	inner := &scope{
		file:   sc.file,
		src:    sc.src,
		ns:     dsc.ns,
		parent: d,
		access: access,
		out:    &d.Children,
		bound:  body.StartByte(),
	}
	wk.walkContainer(inner, body)
}

func classBases(sc *scope, n *sitter.Node, keyword string) []ast.Base {
	clause := firstChildOfType(n, "base_class_clause")
	if clause == nil {
		return nil
	}
	def := ast.AccessPublic
	if keyword == "class" {
		def = ast.AccessPrivate
	}
	var bases []ast.Base
	cur := def
	for _, c := range children(clause) {
		switch c.Type() {
		case ",":
			cur = def
		case "access_specifier":
			cur = parseAccess(text(sc.content(), c))
		case "public", "protected", "private":
			cur = parseAccess(c.Type())
		case ":", "virtual", "...", "comment":
		default:
			if c.IsNamed() {
				bases = append(bases, ast.Base{Range: nodeRange(sc.file, c), Access: cur})
			}
		}
	}
	return bases
}

func (wk *walk) enum(sc *scope, n *sitter.Node) {
	content := sc.content()
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	if name.Type() == "qualified_identifier" {
		_, _, name, _ = splitQualified(content, name)
	}
	body := n.ChildByFieldName("body")
	keyword := ""
	if c := firstChildOfType(n, "class", "struct"); c != nil {
		keyword = c.Type()
	}

	start := n.StartByte()
	textEnd := trimEnd(content, start, n.EndByte())
	if body != nil {
		textEnd = trimEnd(content, start, body.StartByte())
	}
	spelling := text(content, name)
	d := wk.newDecl(sc, ast.CursorEnum, spelling, start, n.EndByte(), name)
	d.USR = baseUSR(sc) + "@E@" + spelling
	d.Keyword = keyword
	d.IsDefinition = body != nil
	d.TextRanges = []ast.Range{makeRange(sc.file, start, textEnd)}
	if !wk.emit(sc, d) || body == nil {
		return
	}

	bound := start
	for _, e := range namedChildren(body) {
		if e.Type() != "enumerator" {
			continue
		}
		en := e.ChildByFieldName("name")
		if en == nil {
			continue
		}
		value := text(content, en)
		c := &ast.Decl{
			Kind:        ast.CursorEnumConstant,
			Spelling:    value,
			USR:         d.USR + "@" + value,
			File:        sc.file,
			Extent:      nodeRange(sc.file, e),
			Location:    sc.file.Location(int(en.StartByte())),
			SearchStart: int(bound),
			Parent:      d,
			Scope:       sc.ns,
			Access:      d.Access,
		}
		c.TextRanges = []ast.Range{c.Extent}
		d.Children = append(d.Children, c)
		bound = e.EndByte()
	}
}

// declaratorSegments splits the declarators following the type of a
// declaration at top-level commas.
func declaratorSegments(n, typeNode *sitter.Node) []segment {
	cs := children(n)
	i := 0
	switch {
	case typeNode != nil:
		for i < len(cs) && !sameNode(cs[i], typeNode) {
			i++
		}
		i++
	default:
		d := n.ChildByFieldName("declarator")
		if d == nil {
			return nil
		}
		for i < len(cs) && !sameNode(cs[i], d) {
			i++
		}
	}

	var segs []segment
	var cur *segment
loop:
	for ; i < len(cs); i++ {
		c := cs[i]
		switch c.Type() {
		case ";", "compound_statement", "field_initializer_list", "try_statement",
			"default_method_clause", "delete_method_clause":
			break loop
		case ",":
			if cur != nil {
				segs = append(segs, *cur)
				cur = nil
			}
			continue
		case "comment":
			continue
		}
		if cur == nil {
			if !c.IsNamed() || declaratorNoise[c.Type()] {
				continue
			}
			cur = &segment{decl: c, start: c.StartByte()}
		}
		cur.end = c.EndByte()
	}
	if cur != nil {
		segs = append(segs, *cur)
	}
	return segs
}

// functionTextEnd is the end of a function's declaration text: before the
// body and any member initializer list.
func functionTextEnd(content []byte, n *sitter.Node, start uint32) uint32 {
	end := n.EndByte()
	for _, c := range children(n) {
		switch c.Type() {
		case "compound_statement", "field_initializer_list", "try_statement":
			if c.StartByte() < end {
				end = c.StartByte()
			}
		}
	}
	return trimEnd(content, start, end)
}

func hasSpecifier(content []byte, n *sitter.Node, word string) bool {
	for _, c := range children(n) {
		switch c.Type() {
		case "storage_class_specifier", "virtual", "explicit_function_specifier":
			if strings.TrimSpace(text(content, c)) == word {
				return true
			}
		}
	}
	return false
}

func (wk *walk) declaration(sc *scope, n *sitter.Node, tmpl *templateInfo, opts declOptions) {
	content := sc.content()
	typeNode := n.ChildByFieldName("type")
	segs := declaratorSegments(n, typeNode)

	if typeNode != nil {
		switch typeNode.Type() {
		case "class_specifier", "struct_specifier", "union_specifier":
			if len(segs) == 0 {
				wk.class(sc, typeNode, tmpl)
			} else if typeNode.ChildByFieldName("body") != nil {
				wk.class(sc, typeNode, nil)
			}
		case "enum_specifier":
			if len(segs) == 0 || typeNode.ChildByFieldName("body") != nil {
				wk.enum(sc, typeNode)
			}
		}
	}
	if len(segs) == 0 {
		return
	}

	start := n.StartByte()
	switch {
	case tmpl != nil:
		start = tmpl.start
	case opts.textStart != 0:
		start = opts.textStart
	}

	for _, seg := range segs {
		var ranges []ast.Range
		if len(segs) == 1 {
			end := trimEnd(content, start, n.EndByte())
			if n.Type() == "function_definition" {
				end = functionTextEnd(content, n, start)
			}
			ranges = []ast.Range{makeRange(sc.file, start, end)}
		} else {
			ranges = []ast.Range{
				makeRange(sc.file, start, typeNode.EndByte()),
				makeRange(sc.file, seg.start, seg.end),
			}
		}

		switch seg.decl.Type() {
		case "operator_cast", "qualified_operator_cast_identifier":
			wk.function(sc, n, seg.decl, tmpl, opts, ranges, start)
			continue
		}
		if fn := functionDeclarator(seg.decl); fn != nil {
			wk.function(sc, n, fn, tmpl, opts, ranges, start)
			continue
		}
		if !opts.friend {
			wk.variable(sc, n, seg, tmpl, ranges, start)
		}
	}
}

// function reports a function declarator. fn is a function_declarator or the
// operator_cast naming a conversion function.
func (wk *walk) function(sc *scope, n, fn *sitter.Node, tmpl *templateInfo, opts declOptions, ranges []ast.Range, start uint32) {
	content := sc.content()

	nameNode, callable := fn.ChildByFieldName("declarator"), fn
	if fn.Type() != "function_declarator" {
		nameNode = fn
	}
	parts, templated, nameNode, global := splitQualified(content, nameNode)
	if nameNode == nil || opts.friend && len(parts) > 0 {
		return
	}
	dsc := wk.qualify(sc, parts, global)

	var spelling, specArgs string
	kind := ast.CursorFunction
	switch nameNode.Type() {
	case "operator_cast":
		kind = ast.CursorConversionFunction
		callable = findDescendant(nameNode, "abstract_function_declarator")
		params := findDescendant(nameNode, "parameter_list")
		if callable == nil || params == nil {
			return
		}
		spelling = normalize(string(content[nameNode.StartByte():params.StartByte()]))
	case "destructor_name":
		kind = ast.CursorDestructor
		spelling = "~" + strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text(content, nameNode)), "~"))
	case "operator_name":
		spelling = normalize(text(content, nameNode))
	case "template_function":
		spelling = text(content, nameNode.ChildByFieldName("name"))
		specArgs = templateArgs(content, nameNode.ChildByFieldName("arguments"))
	case "identifier", "field_identifier":
		spelling = text(content, nameNode)
	default:
		return
	}

	parent := dsc.parent
	if n.ChildByFieldName("type") == nil && kind == ast.CursorFunction {
		switch {
		case parent != nil && spelling == parent.Spelling:
			kind = ast.CursorConstructor
		case parent == nil && firstChildOfType(callable, "trailing_return_type") != nil:
			spelling = "<deduction guide for " + spelling + ">"
		default:
			// macro invocations parse as declarations without a type
			return
		}
	}
	if kind == ast.CursorFunction && parent != nil && !opts.friend {
		kind = ast.CursorMethod
	}

	own := ownTemplateLists(tmpl, countTrue(templated))
	var list *sitter.Node
	if len(own) > 0 {
		list = own[len(own)-1]
	}

	base := baseUSR(dsc)
	if opts.friend {
		base = scopeUSR(dsc.ns)
	}
	usr := base + "@F@" + spelling
	if hasParams(list) {
		usr += templateSignature(content, list)
	}
	sig, count := parameterSignature(content, callable.ChildByFieldName("parameters"))
	usr += specArgs + "#" + sig + functionQualifiers(content, callable)

	d := wk.newDecl(dsc, kind, spelling, start, n.EndByte(), nameNode)
	d.USR = usr
	d.TextRanges = ranges
	d.NumParams = count
	d.IsDefinition = n.Type() == "function_definition"
	d.IsFriend = opts.friend
	d.IsStatic = hasSpecifier(content, n, "static")
	if hasParams(list) {
		r := makeRange(sc.file, tmpl.start, templateEnd(n, opts))
		d.TemplateExtent = &r
	}

	q := d.QualifiedName()
	if specArgs != "" || list != nil && !hasParams(list) {
		d.IsSpecialization = true
		d.SpecializedUSR = wk.templates[q]
	} else if hasParams(list) && wk.templates[q] == "" {
		wk.templates[q] = usr
	}
	wk.emit(sc, d)
}

func templateEnd(n *sitter.Node, opts declOptions) uint32 {
	if opts.textStart != 0 && opts.textStart < n.StartByte() {
		return opts.textStart
	}
	return n.StartByte()
}

func (wk *walk) variable(sc *scope, n *sitter.Node, seg segment, tmpl *templateInfo, ranges []ast.Range, start uint32) {
	content := sc.content()
	nameNode := declaratorName(seg.decl)
	if nameNode == nil {
		return
	}
	parts, templated, nameNode, global := splitQualified(content, nameNode)
	if nameNode == nil {
		return
	}
	dsc := wk.qualify(sc, parts, global)

	var spelling, args string
	switch nameNode.Type() {
	case "template_function":
		spelling = text(content, nameNode.ChildByFieldName("name"))
		args = templateArgs(content, nameNode.ChildByFieldName("arguments"))
	case "identifier", "field_identifier":
		spelling = text(content, nameNode)
	default:
		return
	}

	static := hasSpecifier(content, n, "static")
	own := ownTemplateLists(tmpl, countTrue(templated))
	base := baseUSR(dsc)

	var kind ast.CursorKind
	var usr string
	switch {
	case len(own) > 0:
		kind = ast.CursorUnexposed
		usr = base + "@VT" + templateSignature(content, own[len(own)-1]) + "@" + spelling + args
	case n.Type() == "field_declaration" && !static:
		kind = ast.CursorField
		usr = base + "@FI@" + spelling
	default:
		kind = ast.CursorVariable
		usr = base + "@" + spelling
	}

	d := wk.newDecl(dsc, kind, spelling, start, n.EndByte(), nameNode)
	d.USR = usr
	d.TextRanges = ranges
	d.IsStatic = static
	d.IsDefinition = len(parts) > 0 || n.Type() == "declaration" && !hasSpecifier(content, n, "extern")
	if len(own) > 0 && hasParams(own[len(own)-1]) {
		r := makeRange(sc.file, tmpl.start, n.StartByte())
		d.TemplateExtent = &r
	}

	q := d.QualifiedName()
	switch {
	case len(own) > 0 && (args != "" || !hasParams(own[len(own)-1])):
		d.IsSpecialization = true
		d.SpecializedUSR = wk.templates[q]
	case len(own) > 0 && wk.templates[q] == "":
		wk.templates[q] = usr
	}
	wk.emit(sc, d)
}

func (wk *walk) friend(sc *scope, n *sitter.Node, tmpl *templateInfo) {
	if sc.parent == nil {
		return
	}
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "declaration", "function_definition":
			wk.declaration(sc, c, tmpl, declOptions{friend: true, textStart: n.StartByte()})
		}
	}
}

func (wk *walk) alias(sc *scope, n *sitter.Node, tmpl *templateInfo) {
	content := sc.content()
	name := n.ChildByFieldName("name")
	typ := n.ChildByFieldName("type")
	if name == nil || typ == nil {
		return
	}
	start := n.StartByte()
	if tmpl != nil {
		start = tmpl.start
	}
	spelling := text(content, name)
	d := wk.newDecl(sc, ast.CursorTypeAlias, spelling, start, n.EndByte(), name)
	d.USR = baseUSR(sc) + "@A@" + spelling
	d.TextRanges = []ast.Range{makeRange(sc.file, start, trimEnd(content, start, n.EndByte()))}
	d.TypeRanges = []ast.Range{nodeRange(sc.file, typ)}
	d.IsDefinition = true
	if list := tmpl.innermost(); hasParams(list) {
		r := makeRange(sc.file, tmpl.start, n.StartByte())
		d.TemplateExtent = &r
	}
	wk.emit(sc, d)
}

func (wk *walk) typedef(sc *scope, n *sitter.Node) {
	content := sc.content()
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	switch typeNode.Type() {
	case "class_specifier", "struct_specifier", "union_specifier":
		if typeNode.ChildByFieldName("body") != nil {
			wk.class(sc, typeNode, nil)
		}
	case "enum_specifier":
		if typeNode.ChildByFieldName("body") != nil {
			wk.enum(sc, typeNode)
		}
	}

	typeStart := typeNode.StartByte()
	if kw := firstChildOfType(n, "typedef"); kw != nil {
		for _, c := range children(n) {
			if c.StartByte() >= kw.EndByte() {
				typeStart = c.StartByte()
				break
			}
		}
	}

	segs := declaratorSegments(n, typeNode)
	start := n.StartByte()
	for _, seg := range segs {
		name := declaratorName(seg.decl)
		if name == nil || name.Type() != "type_identifier" && name.Type() != "identifier" {
			continue
		}
		typeRanges := []ast.Range{makeRange(sc.file, typeStart, typeNode.EndByte())}
		if seg.start < name.StartByte() {
			typeRanges = append(typeRanges, makeRange(sc.file, seg.start, name.StartByte()))
		}
		if name.EndByte() < seg.end {
			typeRanges = append(typeRanges, makeRange(sc.file, name.EndByte(), seg.end))
		}

		spelling := text(content, name)
		d := wk.newDecl(sc, ast.CursorTypedef, spelling, start, n.EndByte(), name)
		d.USR = baseUSR(sc) + "@T@" + spelling
		d.TypeRanges = typeRanges
		d.IsDefinition = true
		if len(segs) == 1 {
			d.TextRanges = []ast.Range{makeRange(sc.file, start, trimEnd(content, start, n.EndByte()))}
		} else {
			d.TextRanges = []ast.Range{
				makeRange(sc.file, start, typeNode.EndByte()),
				makeRange(sc.file, seg.start, seg.end),
			}
		}
		wk.emit(sc, d)
	}
}
