package comments

import (
	"strings"
	"testing"

	"cppapidoc/pkg/ast"
)

// declAt builds a declaration whose extent is the first occurrence of text
// after offset from.
func declAt(t *testing.T, f *ast.File, text string, from int, kind ast.CursorKind) *ast.Decl {
	t.Helper()
	i := strings.Index(f.Content[from:], text)
	if i < 0 {
		t.Fatalf("%q not found in source", text)
	}
	start := from + i
	return &ast.Decl{
		Kind:   kind,
		File:   f,
		Extent: ast.Range{Start: f.Position(start), End: f.Position(start + len(text))},
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		source string
		decl   string
		kind   ast.CursorKind
		bound  string // SearchStart is set just past this text when non-empty
		checks func(t *testing.T, res Result)
	}{
		{
			name:   "line doc comment",
			source: "/// This is the doc.\nint foo(bool x, int y);",
			decl:   "int foo(bool x, int y);",
			kind:   ast.CursorFunction,
			checks: func(t *testing.T, res Result) {
				if res.Doc == nil || res.Doc.Text != "This is the doc." {
					t.Fatalf("unexpected doc %+v", res.Doc)
				}
				if res.Doc.Location.Line != 1 || res.Doc.Location.Column != 1 {
					t.Errorf("unexpected location %v", res.Doc.Location)
				}
			},
		},
		{
			name:   "ordinary comment before doc is discarded",
			source: "// plain\n/// doc\nint a;",
			decl:   "int a;",
			kind:   ast.CursorVariable,
			checks: func(t *testing.T, res Result) {
				if res.Doc == nil || res.Doc.Text != "doc" {
					t.Fatalf("unexpected doc %+v", res.Doc)
				}
				if res.Doc.Location.Line != 2 {
					t.Errorf("expected doc on line 2, got %d", res.Doc.Location.Line)
				}
			},
		},
		{
			name:   "ordinary comment after doc hides it",
			source: "/// doc\n// plain\nint a;",
			decl:   "int a;",
			kind:   ast.CursorFunction,
			checks: func(t *testing.T, res Result) {
				if res.Doc != nil {
					t.Errorf("expected no doc, got %q", res.Doc.Text)
				}
			},
		},
		{
			name:   "one blank line allowed",
			source: "/// doc\n\nvoid f();",
			decl:   "void f();",
			kind:   ast.CursorFunction,
			checks: func(t *testing.T, res Result) {
				if res.Doc == nil || res.Doc.Text != "doc" {
					t.Fatalf("unexpected doc %+v", res.Doc)
				}
			},
		},
		{
			name:   "two blank lines stop the scan",
			source: "/// doc\n\n\nvoid f();",
			decl:   "void f();",
			kind:   ast.CursorFunction,
			checks: func(t *testing.T, res Result) {
				if res.Doc != nil {
					t.Errorf("expected no doc, got %q", res.Doc.Text)
				}
			},
		},
		{
			name:   "blank lines inside a run are kept",
			source: "/// first\n\n/// second\nvoid f();",
			decl:   "void f();",
			kind:   ast.CursorFunction,
			checks: func(t *testing.T, res Result) {
				if res.Doc == nil || res.Doc.Text != "first\n\nsecond" {
					t.Fatalf("unexpected doc %+v", res.Doc)
				}
			},
		},
		{
			name:   "block comment with stars",
			source: "/**\n * Brief.\n *\n * More.\n */\nvoid f();",
			decl:   "void f();",
			kind:   ast.CursorFunction,
			checks: func(t *testing.T, res Result) {
				if res.Doc == nil || res.Doc.Text != "Brief.\n\nMore." {
					t.Fatalf("unexpected doc %+v", res.Doc)
				}
				if res.Doc.Location.Line != 2 {
					t.Errorf("expected location line 2 after dropping the empty first line, got %d", res.Doc.Location.Line)
				}
			},
		},
		{
			name:   "relative indentation survives",
			source: "/// Example:\n///\n///     code();\nvoid f();",
			decl:   "void f();",
			kind:   ast.CursorFunction,
			checks: func(t *testing.T, res Result) {
				if res.Doc == nil || res.Doc.Text != "Example:\n\n    code();" {
					t.Fatalf("unexpected doc %+v", res.Doc)
				}
			},
		},
		{
			name:   "search start bounds the scan",
			source: "/// doc a\nint a; int b;",
			decl:   "int b;",
			kind:   ast.CursorFunction,
			bound:  "int a;",
			checks: func(t *testing.T, res Result) {
				if res.Doc != nil {
					t.Errorf("expected no doc, got %q", res.Doc.Text)
				}
			},
		},
		{
			name:   "macro scan starts at the define line",
			source: "/// Larger value.\n#define MAX(a, b) ((a) > (b) ? (a) : (b))\n",
			decl:   "MAX(a, b) ((a) > (b) ? (a) : (b))",
			kind:   ast.CursorMacroDefinition,
			checks: func(t *testing.T, res Result) {
				if res.Doc == nil || res.Doc.Text != "Larger value." {
					t.Fatalf("unexpected doc %+v", res.Doc)
				}
			},
		},
		{
			name:   "trailing comment on a field",
			source: "struct S {\n  int x; ///< The x.\n};",
			decl:   "int x;",
			kind:   ast.CursorField,
			checks: func(t *testing.T, res Result) {
				if res.Doc == nil || res.Doc.Text != "The x." {
					t.Fatalf("unexpected doc %+v", res.Doc)
				}
				if res.Doc.Location.Line != 2 {
					t.Errorf("unexpected location %v", res.Doc.Location)
				}
			},
		},
		{
			name:   "trailing comments are not used for functions",
			source: "void f(); ///< Not for functions.\n",
			decl:   "void f();",
			kind:   ast.CursorFunction,
			checks: func(t *testing.T, res Result) {
				if res.Doc != nil {
					t.Errorf("expected no doc, got %q", res.Doc.Text)
				}
			},
		},
		{
			name:   "trailing run on consecutive lines",
			source: "int x; ///< One.\n       ///< Two.\n\n       ///< Elsewhere.\n",
			decl:   "int x;",
			kind:   ast.CursorVariable,
			checks: func(t *testing.T, res Result) {
				if res.Doc == nil || res.Doc.Text != "One.\nTwo." {
					t.Fatalf("unexpected doc %+v", res.Doc)
				}
			},
		},
		{
			name:   "enumerator skips the previous trailing comment",
			source: "enum E {\n  A, ///< First.\n  B ///< Second.\n};",
			decl:   "B",
			kind:   ast.CursorEnumConstant,
			bound:  "  A",
			checks: func(t *testing.T, res Result) {
				if res.Doc == nil || res.Doc.Text != "Second." {
					t.Fatalf("unexpected doc %+v", res.Doc)
				}
			},
		},
		{
			name:   "enumerator trailing comment after comma",
			source: "enum E {\n  A, ///< First.\n  B\n};",
			decl:   "A",
			kind:   ast.CursorEnumConstant,
			checks: func(t *testing.T, res Result) {
				if res.Doc == nil || res.Doc.Text != "First." {
					t.Fatalf("unexpected doc %+v", res.Doc)
				}
			},
		},
		{
			name:   "nonitpick markers",
			source: "// NONITPICK: std::vector\n/// Doc.\nint a; ///< NONITPICK: ignored\n",
			decl:   "int a;",
			kind:   ast.CursorVariable,
			checks: func(t *testing.T, res Result) {
				if len(res.Nonitpick) != 1 {
					t.Fatalf("expected 1 marker, got %+v", res.Nonitpick)
				}
				got := res.Nonitpick[0]
				if got.Target != "std::vector" || got.Line != 1 || got.File != "test.hpp" {
					t.Errorf("unexpected marker %+v", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ast.NewFile("test.hpp", tt.source)
			from := 0
			if tt.bound != "" {
				from = strings.Index(tt.source, tt.bound) + len(tt.bound)
			}
			d := declAt(t, f, tt.decl, from, tt.kind)
			d.SearchStart = from
			tt.checks(t, Extract(f, d, DefaultOptions(tt.kind)))
		})
	}
}

func TestExtractOutOfRangeBound(t *testing.T) {
	f := ast.NewFile("test.hpp", "/// Doc.\nint a;")
	d := declAt(t, f, "int a;", 0, ast.CursorVariable)
	d.SearchStart = len(f.Content) + 10

	res := Extract(f, d, Options{})
	if res.Doc == nil || res.Doc.Text != "Doc." {
		t.Fatalf("expected rescan from the file start, got %+v", res.Doc)
	}
}

func TestNormalizeComment(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"/// text", "text"},
		{"//! text", "text"},
		{"///< text", "text"},
		{"/** text */", "text"},
		{"/*! text */", "text"},
		{"/**< trailing */", "trailing"},
		{"/**\n * a\n *   b\n */", "a\n  b"},
		{"/**\n   a\n   b\n*/", "a\nb"},
		{"/** first\n *  second\n */", "first\nsecond"},
		{"/** Block\n *  star\n *\n *  after blank */", "Block\nstar\n\nafter blank"},
		{"/** Block\n *  star\n *    nested */", "Block\nstar\n  nested"},
		{"/**\n * a\n   b\n */", "* a\n  b"},
		{"///", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeComment(tt.raw); got != tt.want {
				t.Errorf("NormalizeComment(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestConvertFields(t *testing.T) {
	in := strings.Join([]string{
		`\brief Brief text.`,
		``,
		`\details Details text.`,
		`@param arg1 First.`,
		`@param[in] arg2 Second.`,
		`@param[in,out] arg3 Third.`,
		`@retval NULL On failure.`,
		`@returns The result.`,
		`\tparam T The type.`,
		`\throws std::bad_alloc When out of memory.`,
		`\return`,
		`Return values are unchanged.`,
	}, "\n")
	want := strings.Join([]string{
		`Brief text.`,
		``,
		`Details text.`,
		`:param arg1: First.`,
		`:param arg2[in]: Second.`,
		`:param arg3[in, out]: Third.`,
		`:retval NULL: On failure.`,
		`:returns: The result.`,
		`:tparam T: The type.`,
		`:throws std::bad_alloc: When out of memory.`,
		`:returns:`,
		`Return values are unchanged.`,
	}, "\n")

	if got := ConvertFields(in); got != want {
		t.Errorf("ConvertFields mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}
