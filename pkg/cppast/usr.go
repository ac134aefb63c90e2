package cppast

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// USRs identify an entity across redeclarations. They follow the shape of
// clang's unified symbol resolutions closely enough to be stable for the
// declarations this package reports:
//
//	c:@N@ns@S@Name               class, struct
//	c:@N@ns@U@Name               union
//	c:@ST>1#T@Name               class template
//	c:@SP>1#T@Name<T*>           partial specialization
//	c:@S@Name>int                explicit specialization
//	c:@F@name#int#1              function (const member when #1)
//	c:@S@Name@FI@field           field
//	c:@name                      variable
//	c:@VT>1#T@name               variable template
//	c:@E@Name@Value              enum and enumerator
//	c:@T@Name, c:@A@Name         typedef, type alias
//	c:@macro@NAME                macro

const usrPrefix = "c:"

// scopeUSR renders the namespace part of a USR for a scope like "a::b::".
func scopeUSR(ns string) string {
	var sb strings.Builder
	sb.WriteString(usrPrefix)
	for _, part := range strings.Split(strings.TrimSuffix(ns, "::"), "::") {
		if part == "" {
			continue
		}
		sb.WriteString("@N@")
		sb.WriteString(part)
	}
	return sb.String()
}

func macroUSR(name string) string {
	return usrPrefix + "@macro@" + name
}

// templateSignature encodes the parameter kinds of a template parameter list
// as ">count#p1#p2".
func templateSignature(content []byte, list *sitter.Node) string {
	if list == nil {
		return ""
	}
	var parts []string
	for _, p := range namedChildren(list) {
		switch p.Type() {
		case "comment":
			continue
		case "type_parameter_declaration", "optional_type_parameter_declaration":
			parts = append(parts, "T")
		case "variadic_type_parameter_declaration":
			parts = append(parts, "T...")
		case "template_template_parameter_declaration":
			parts = append(parts, "TT")
		case "variadic_parameter_declaration":
			parts = append(parts, "N:"+parameterType(content, p)+"...")
		default:
			parts = append(parts, "N:"+parameterType(content, p))
		}
	}
	return fmt.Sprintf(">%d#%s", len(parts), strings.Join(parts, "#"))
}

// parameterType spells a parameter declaration without its name and default.
func parameterType(content []byte, p *sitter.Node) string {
	start, end := p.StartByte(), p.EndByte()
	if dv := p.ChildByFieldName("default_value"); dv != nil {
		end = dv.StartByte()
		for end > start && (isSpace(content[end-1]) || content[end-1] == '=') {
			end--
		}
	}
	src := string(content[start:end])
	if d := p.ChildByFieldName("declarator"); d != nil {
		if name := declaratorName(d); name != nil && (name.Type() == "identifier" || name.Type() == "field_identifier") &&
			name.EndByte() <= end {
			src = string(content[start:name.StartByte()]) + " " + string(content[name.EndByte():end])
		}
	}
	return normalize(src)
}

// parameterSignature encodes a parameter list for function USRs and counts
// the declared parameters; "(void)" declares none.
func parameterSignature(content []byte, list *sitter.Node) (string, int) {
	if list == nil {
		return "", 0
	}
	var types []string
	for _, p := range children(list) {
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			types = append(types, parameterType(content, p))
		case "...":
			types = append(types, "...")
		}
	}
	if len(types) == 1 && types[0] == "void" {
		return "", 0
	}
	n := len(types)
	if n > 0 && types[n-1] == "..." {
		n--
	}
	return strings.Join(types, "#"), n
}

// functionQualifiers encodes cv- and ref-qualifiers of a member function.
func functionQualifiers(content []byte, fn *sitter.Node) string {
	var suffix string
	params := fn.ChildByFieldName("parameters")
	for _, c := range children(fn) {
		if params != nil && c.StartByte() < params.EndByte() {
			continue
		}
		switch c.Type() {
		case "type_qualifier":
			if text(content, c) == "const" {
				suffix += "#1"
			}
		case "ref_qualifier":
			suffix += "#" + text(content, c)
		}
	}
	return suffix
}
