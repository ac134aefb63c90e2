package cppast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cppapidoc/pkg/ast"
	"cppapidoc/pkg/parser"
)

// declaratorWrappers are declarator node types whose name lives in a nested declarator.
var declaratorWrappers = map[string]bool{
	"init_declarator":          true,
	"pointer_declarator":       true,
	"reference_declarator":     true,
	"array_declarator":         true,
	"function_declarator":      true,
	"attributed_declarator":    true,
	"parenthesized_declarator": true,
}

// declaratorNoise are named children of declarators that never hold the name.
var declaratorNoise = map[string]bool{
	"type_qualifier":            true,
	"attribute_specifier":       true,
	"attribute_declaration":     true,
	"ms_pointer_modifier":       true,
	"ms_based_modifier":         true,
	"ms_unaligned_ptr_modifier": true,
	"comment":                   true,
}

func text(content []byte, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func children(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, n.Child(i))
	}
	return out
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// firstChildOfType returns the first direct child with one of the given types.
func firstChildOfType(n *sitter.Node, types ...string) *sitter.Node {
	for _, c := range children(n) {
		for _, t := range types {
			if c.Type() == t {
				return c
			}
		}
	}
	return nil
}

// findDescendant returns the first node in pre-order with the given type.
func findDescendant(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == typ {
		return n
	}
	for _, c := range namedChildren(n) {
		if found := findDescendant(c, typ); found != nil {
			return found
		}
	}
	return nil
}

// innerDeclarator steps one level into a declarator wrapper.
func innerDeclarator(d *sitter.Node) *sitter.Node {
	if next := d.ChildByFieldName("declarator"); next != nil {
		return next
	}
	for _, c := range namedChildren(d) {
		if !declaratorNoise[c.Type()] {
			return c
		}
	}
	return nil
}

// declaratorName unwraps declarators down to the node naming the entity:
// an identifier, qualified_identifier, template_function, destructor_name,
// operator_name or operator_cast.
func declaratorName(d *sitter.Node) *sitter.Node {
	for d != nil {
		if !declaratorWrappers[d.Type()] {
			return d
		}
		d = innerDeclarator(d)
	}
	return nil
}

// functionDeclarator returns the function_declarator that makes d a function
// declarator, or nil when d declares an object (including function pointers).
func functionDeclarator(d *sitter.Node) *sitter.Node {
	for d != nil {
		switch d.Type() {
		case "function_declarator":
			inner := d.ChildByFieldName("declarator")
			if inner != nil && inner.Type() == "parenthesized_declarator" {
				return nil
			}
			return d
		case "pointer_declarator", "reference_declarator", "attributed_declarator":
			d = innerDeclarator(d)
		default:
			return nil
		}
	}
	return nil
}

// splitQualified decomposes nested qualified_identifier nodes into the scope
// names and the final name node. global reports a leading "::".
func splitQualified(content []byte, n *sitter.Node) (parts []string, args []bool, name *sitter.Node, global bool) {
	for n != nil && (n.Type() == "qualified_identifier" || n.Type() == "qualified_operator_cast_identifier") {
		scope := n.ChildByFieldName("scope")
		switch {
		case scope == nil:
			if len(parts) == 0 {
				global = true
			}
		case scope.Type() == "template_type":
			parts = append(parts, text(content, scope.ChildByFieldName("name")))
			args = append(args, true)
		default:
			parts = append(parts, strings.TrimSpace(text(content, scope)))
			args = append(args, false)
		}
		n = n.ChildByFieldName("name")
	}
	return parts, args, n, global
}

// normalize canonicalises a source fragment through the token printer.
func normalize(src string) string {
	toks, err := parser.SignificantTokens(src)
	if err != nil {
		return strings.Join(strings.Fields(src), " ")
	}
	return parser.Format(parser.NormalizeAngles(toks, false))
}

// templateArgs spells a template argument list as "<A, B>".
func templateArgs(content []byte, args *sitter.Node) string {
	inner := strings.TrimSpace(text(content, args))
	inner = strings.TrimSuffix(strings.TrimPrefix(inner, "<"), ">")
	return "<" + normalize(inner) + ">"
}

// trimEnd moves end back over whitespace and a trailing semicolon.
func trimEnd(content []byte, start, end uint32) uint32 {
	for end > start && isSpace(content[end-1]) {
		end--
	}
	if end > start && content[end-1] == ';' {
		end--
	}
	for end > start && isSpace(content[end-1]) {
		end--
	}
	return end
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

func makeRange(f *ast.File, start, end uint32) ast.Range {
	return ast.Range{Start: f.Position(int(start)), End: f.Position(int(end))}
}

func nodeRange(f *ast.File, n *sitter.Node) ast.Range {
	return makeRange(f, n.StartByte(), n.EndByte())
}

// firstError returns the first ERROR or missing node below n.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for _, c := range children(n) {
		if found := firstError(c); found != nil {
			return found
		}
	}
	return nil
}
