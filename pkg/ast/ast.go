// Package ast defines the declaration cursors and translation units produced by
// a DeclarationWalker
package ast

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cppapidoc/pkg/parser"
)

// Position represents a position in the source file
type Position struct {
	Line   int // 1-based
	Column int // 1-based, in bytes
	Offset int
}

// Range represents a range in the source file. End is exclusive.
type Range struct {
	Start Position
	End   Position
}

// Empty reports whether the range covers no bytes.
func (r Range) Empty() bool {
	return r.End.Offset <= r.Start.Offset
}

// Location is a file position used for ordering and diagnostics
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// CursorKind represents the kind of a declaration cursor
type CursorKind int

const (
	CursorUnknown CursorKind = iota
	CursorNamespace
	CursorClass
	CursorStruct
	CursorUnion
	CursorClassTemplate
	CursorPartialSpecialization
	CursorFunction
	CursorMethod
	CursorConstructor
	CursorDestructor
	CursorConversionFunction
	CursorVariable
	CursorField
	CursorTypedef
	CursorTypeAlias
	CursorEnum
	CursorEnumConstant
	CursorMacroDefinition
	CursorUnexposed
)

func (k CursorKind) String() string {
	switch k {
	case CursorNamespace:
		return "namespace"
	case CursorClass:
		return "class"
	case CursorStruct:
		return "struct"
	case CursorUnion:
		return "union"
	case CursorClassTemplate:
		return "class template"
	case CursorPartialSpecialization:
		return "partial specialization"
	case CursorFunction:
		return "function"
	case CursorMethod:
		return "method"
	case CursorConstructor:
		return "constructor"
	case CursorDestructor:
		return "destructor"
	case CursorConversionFunction:
		return "conversion function"
	case CursorVariable:
		return "variable"
	case CursorField:
		return "field"
	case CursorTypedef:
		return "typedef"
	case CursorTypeAlias:
		return "type alias"
	case CursorEnum:
		return "enum"
	case CursorEnumConstant:
		return "enum constant"
	case CursorMacroDefinition:
		return "macro definition"
	case CursorUnexposed:
		return "unexposed"
	default:
		return "unknown"
	}
}

// IsClassLike reports whether the kind declares a class, struct, union or
// class template.
func (k CursorKind) IsClassLike() bool {
	switch k {
	case CursorClass, CursorStruct, CursorUnion, CursorClassTemplate, CursorPartialSpecialization:
		return true
	}
	return false
}

// IsFunctionLike reports whether the kind declares a function of any sort.
func (k CursorKind) IsFunctionLike() bool {
	switch k {
	case CursorFunction, CursorMethod, CursorConstructor, CursorDestructor, CursorConversionFunction:
		return true
	}
	return false
}

// Access represents C++ access levels
type Access int

const (
	AccessPublic Access = iota
	AccessProtected
	AccessPrivate
)

func (a Access) String() string {
	switch a {
	case AccessProtected:
		return "protected"
	case AccessPrivate:
		return "private"
	default:
		return "public"
	}
}

// Base is one entry of a class base-clause
type Base struct {
	Range  Range // the base type, without access specifier or "virtual"
	Access Access
}

// Decl is one declaration cursor
type Decl struct {
	Kind     CursorKind
	Spelling string // unqualified name; "<deduction guide for X>" for deduction guides
	USR      string
	File     *File

	Extent      Range    // whole declaration, template introducer and body included
	Location    Location // position of the name
	SearchStart int      // lower offset bound for leading doc comments

	Parent *Decl  // enclosing class, nil at namespace scope
	Scope  string // enclosing namespaces, "a::b::"
	Access Access

	Children []*Decl // class members or enumerators

	TemplateExtent *Range   // "template <...>" introducers; nil for non-templates
	TextRanges     []Range  // ranges spelling the declaration without body or member initializers
	TypeRanges     []Range  // underlying type of typedefs and aliases
	Bases          []Base   // class bases
	Keyword        string   // class/struct/union for classes, class/struct/"" for enums
	MacroParams    []string // nil for object-like macros

	IsDefinition     bool
	IsSpecialization bool   // explicit or partial specialization
	SpecializedUSR   string // USR of the primary template, "" when unknown
	NumParams        int
	IsFriend         bool
	IsStatic         bool
}

// IsTemplate reports whether the declaration has a template introducer.
func (d *Decl) IsTemplate() bool {
	return d.TemplateExtent != nil
}

// QualifiedName returns the ::-qualified name including enclosing classes.
func (d *Decl) QualifiedName() string {
	var parts []string
	for cur := d; cur != nil; cur = cur.Parent {
		parts = append([]string{cur.Spelling}, parts...)
		if cur.Parent == nil {
			return cur.Scope + strings.Join(parts, "::")
		}
	}
	return strings.Join(parts, "::")
}

// File is one source file of a translation unit together with its token stream
type File struct {
	Path    string
	Content string

	tokens      []parser.Token
	lineOffsets []int
}

// NewFile creates a file and tokenizes its content.
func NewFile(path, content string) *File {
	f := &File{Path: path, Content: content}
	f.tokens = parser.NewTokenizer(content).Tokenize()
	f.lineOffsets = append(f.lineOffsets, 0)
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			f.lineOffsets = append(f.lineOffsets, i+1)
		}
	}
	return f
}

// Tokens returns the full token stream including comments and whitespace.
func (f *File) Tokens() []parser.Token {
	return f.tokens
}

// Significant returns the tokens that are neither whitespace nor newlines.
// Comments are kept.
func (f *File) Significant() []parser.Token {
	out := make([]parser.Token, 0, len(f.tokens))
	for _, tok := range f.tokens {
		if tok.Type == parser.TokenWhitespace || tok.Type == parser.TokenNewline || tok.Type == parser.TokenEOF {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// TokenIndex returns the index of the first token starting at or after offset.
func (f *File) TokenIndex(offset int) int {
	return sort.Search(len(f.tokens), func(i int) bool {
		return f.tokens[i].Type == parser.TokenEOF || f.tokens[i].Offset >= offset
	})
}

// TokensIn returns the tokens that start within [start, end). The last token
// may extend past end.
func (f *File) TokensIn(start, end int) []parser.Token {
	i, j := f.TokenIndex(start), f.TokenIndex(end)
	if j < i {
		j = i
	}
	return f.tokens[i:j]
}

// Position converts a byte offset into a 1-based line and column.
func (f *File) Position(offset int) Position {
	line := sort.Search(len(f.lineOffsets), func(i int) bool { return f.lineOffsets[i] > offset })
	return Position{Line: line, Column: offset - f.lineOffsets[line-1] + 1, Offset: offset}
}

// LineStart returns the offset of the first byte of the line containing offset.
func (f *File) LineStart(offset int) int {
	return f.lineOffsets[f.Position(offset).Line-1]
}

// Text returns the source text of r.
func (f *File) Text(r Range) string {
	start, end := r.Start.Offset, r.End.Offset
	if start < 0 {
		start = 0
	}
	if end > len(f.Content) {
		end = len(f.Content)
	}
	if end < start {
		return ""
	}
	return f.Content[start:end]
}

// Location returns the Location of offset in f.
func (f *File) Location(offset int) Location {
	p := f.Position(offset)
	return Location{File: f.Path, Line: p.Line, Column: p.Column}
}

// Severity of a diagnostic
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a message produced while parsing a translation unit
type Diagnostic struct {
	Severity Severity
	Message  string
	Location Location
}

// TranslationUnit is a parsed main file with everything it includes
type TranslationUnit struct {
	Main        *File
	Files       map[string]*File
	Decls       []*Decl // top-level declarations in walk order
	Diagnostics []Diagnostic
}

// ParseOptions configures a DeclarationWalker run
type ParseOptions struct {
	Path    string
	Content *string // overrides the file content when set
	Flags   []string
}

// DeclarationWalker enumerates the declarations of a translation unit
type DeclarationWalker interface {
	Parse(ctx context.Context, opts ParseOptions) (*TranslationUnit, error)
}
