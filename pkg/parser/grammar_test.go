package parser

import (
	"reflect"
	"testing"

	"cppapidoc/pkg/errors"
)

type testLoc string

func (l testLoc) String() string { return string(l) }

const loc = testLoc("test.hpp:1:1")

func TestParseFunction(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		checks func(*testing.T, *Function)
	}{
		{
			name:  "simple",
			input: "int foo(bool x, int y);",
			checks: func(t *testing.T, f *Function) {
				if f.Name.String() != "foo" {
					t.Errorf("name = %q", f.Name.String())
				}
				if len(f.Params) != 2 {
					t.Errorf("params = %d", len(f.Params))
				}
				if got := f.Declaration("__x0"); got != "int __x0(bool x, int y)" {
					t.Errorf("declaration = %q", got)
				}
				if f.Templates != nil {
					t.Errorf("expected no template heads")
				}
			},
		},
		{
			name:  "template with specifiers",
			input: "template <typename T, typename U = int> static constexpr T const& get(std::vector<T> const& v) noexcept;",
			checks: func(t *testing.T, f *Function) {
				if len(f.Templates) != 1 || len(f.Templates[0].Parameters) != 2 {
					t.Fatalf("template heads = %+v", f.Templates)
				}
				u := f.Templates[0].Parameters[1]
				if u.Name != "U" || Format(u.Default) != "int" {
					t.Errorf("U = %+v", u)
				}
				want := "static constexpr T const& __x0(std::vector<T> const& v) noexcept"
				if got := f.Declaration("__x0"); got != want {
					t.Errorf("declaration = %q, want %q", got, want)
				}
			},
		},
		{
			name:  "comparison operator",
			input: "bool operator==(const Foo& other) const;",
			checks: func(t *testing.T, f *Function) {
				if f.Name.String() != "operator==" {
					t.Errorf("name = %q", f.Name.String())
				}
				if got := f.Declaration("__x0"); got != "bool __x0(const Foo& other) const" {
					t.Errorf("declaration = %q", got)
				}
			},
		},
		{
			name:  "call operator",
			input: "void operator()(int x);",
			checks: func(t *testing.T, f *Function) {
				if f.Name.String() != "operator()" {
					t.Errorf("name = %q", f.Name.String())
				}
				if len(f.Params) != 1 || Format(f.Params[0]) != "int x" {
					t.Errorf("params = %v", f.Params)
				}
			},
		},
		{
			name:  "less-than operator",
			input: "friend bool operator<(const A& a, const A& b);",
			checks: func(t *testing.T, f *Function) {
				if f.Name.String() != "operator<" {
					t.Errorf("name = %q", f.Name.String())
				}
				if Format(f.Leading) != "friend bool" {
					t.Errorf("leading = %q", Format(f.Leading))
				}
			},
		},
		{
			name:  "conversion function",
			input: "explicit operator bool() const;",
			checks: func(t *testing.T, f *Function) {
				if f.Name.String() != "operator bool" {
					t.Errorf("name = %q", f.Name.String())
				}
				if got := f.Declaration("__x0"); got != "explicit __x0() const" {
					t.Errorf("declaration = %q", got)
				}
			},
		},
		{
			name:  "destructor",
			input: "virtual ~Foo() = default;",
			checks: func(t *testing.T, f *Function) {
				if f.Name.String() != "~Foo" {
					t.Errorf("name = %q", f.Name.String())
				}
				if got := f.Declaration("__x0"); got != "virtual __x0() = default" {
					t.Errorf("declaration = %q", got)
				}
			},
		},
		{
			name:  "out of line member",
			input: "template <typename T> void Outer<T>::method(int) {}",
			checks: func(t *testing.T, f *Function) {
				if Format(f.Name.Qualifier) != "Outer<T>::" {
					t.Errorf("qualifier = %q", Format(f.Name.Qualifier))
				}
				if f.Name.QualifierTemplateLists() != 1 {
					t.Errorf("qualifier template lists = %d", f.Name.QualifierTemplateLists())
				}
				if f.Name.String() != "method" {
					t.Errorf("name = %q", f.Name.String())
				}
				if got := f.Declaration("__x0"); got != "void __x0(int)" {
					t.Errorf("declaration = %q", got)
				}
			},
		},
		{
			name:  "explicit specialization",
			input: "template <> void f<int>(int);",
			checks: func(t *testing.T, f *Function) {
				if len(f.Templates) != 1 || f.Templates[0].Parameters == nil || len(f.Templates[0].Parameters) != 0 {
					t.Errorf("expected one empty template head, got %+v", f.Templates)
				}
				if f.Name.BaseName() != "f" {
					t.Errorf("base = %q", f.Name.BaseName())
				}
				if args, ok := f.Name.Args(); !ok || args != "<int>" {
					t.Errorf("args = %q, %v", args, ok)
				}
			},
		},
		{
			name:  "trailing requires",
			input: "template <typename T> void g(T t) requires std::integral<T>;",
			checks: func(t *testing.T, f *Function) {
				if FormatExpr(f.Requires) != "std::integral<T>" {
					t.Errorf("requires = %q", FormatExpr(f.Requires))
				}
				if len(f.Trailing) != 0 {
					t.Errorf("trailing = %q", Format(f.Trailing))
				}
			},
		},
		{
			name:  "template head requires",
			input: "template <typename T> requires Foo<T> && Bar<T> void h();",
			checks: func(t *testing.T, f *Function) {
				if got := FormatExpr(f.Templates[0].Requires); got != "Foo<T> && Bar<T>" {
					t.Errorf("requires = %q", got)
				}
				if got := f.Declaration("__x0"); got != "void __x0()" {
					t.Errorf("declaration = %q", got)
				}
			},
		},
		{
			name:  "trailing return type",
			input: "auto k() -> int;",
			checks: func(t *testing.T, f *Function) {
				if got := f.Declaration("__x0"); got != "auto __x0() -> int" {
					t.Errorf("declaration = %q", got)
				}
			},
		},
		{
			name:  "forwarding constructor",
			input: "template <typename U> Foo(U&& u);",
			checks: func(t *testing.T, f *Function) {
				if len(f.Leading) != 0 {
					t.Errorf("leading = %q", Format(f.Leading))
				}
				if Format(f.Params[0]) != "U&& u" {
					t.Errorf("param = %q", Format(f.Params[0]))
				}
			},
		},
		{
			name:  "attribute and decltype",
			input: "[[nodiscard]] decltype(auto) value() const &;",
			checks: func(t *testing.T, f *Function) {
				if f.Name.String() != "value" {
					t.Errorf("name = %q", f.Name.String())
				}
				if got := f.Declaration("__x0"); got != "[[nodiscard]] decltype(auto) __x0() const&" {
					t.Errorf("declaration = %q", got)
				}
			},
		},
	}

	g := NewGrammar()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := g.ParseFunction(tt.input, loc)
			if err != nil {
				t.Fatalf("ParseFunction(%q) error: %v", tt.input, err)
			}
			tt.checks(t, f)
		})
	}
}

func TestParseFunctionErrors(t *testing.T) {
	g := NewGrammar()
	for _, input := range []string{"int (", "int x;", "template <typename T void f();", ""} {
		_, err := g.ParseFunction(input, loc)
		if err == nil {
			t.Errorf("ParseFunction(%q) expected error", input)
			continue
		}
		if errors.GetKind(err) != errors.KindGrammar {
			t.Errorf("ParseFunction(%q) kind = %v", input, errors.GetKind(err))
		}
		if errors.GetAttributes(err)["location"] != "test.hpp:1:1" {
			t.Errorf("ParseFunction(%q) missing location: %v", input, err)
		}
	}
}

func TestParseMember(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		checks func(*testing.T, *Member)
	}{
		{
			name:  "variable template",
			input: "template <typename T> constexpr bool is_foo_v = is_foo<T>::value;",
			checks: func(t *testing.T, m *Member) {
				if len(m.Templates) != 1 {
					t.Errorf("templates = %d", len(m.Templates))
				}
				if m.Name.String() != "is_foo_v" {
					t.Errorf("name = %q", m.Name.String())
				}
				if got := m.Declaration("__x0"); got != "constexpr bool __x0" {
					t.Errorf("declaration = %q", got)
				}
				if got := m.InitializerText(); got != "= is_foo<T>::value" {
					t.Errorf("initializer = %q", got)
				}
			},
		},
		{
			name:  "variable template specialization",
			input: "template <> constexpr bool is_foo_v<int> = true;",
			checks: func(t *testing.T, m *Member) {
				if m.Name.String() != "is_foo_v<int>" {
					t.Errorf("name = %q", m.Name.String())
				}
				if len(m.Templates[0].Parameters) != 0 {
					t.Errorf("parameters = %d", len(m.Templates[0].Parameters))
				}
			},
		},
		{
			name:  "array with initializer",
			input: "static const int table[4] = {1, 2};",
			checks: func(t *testing.T, m *Member) {
				if m.Name.String() != "table" {
					t.Errorf("name = %q", m.Name.String())
				}
				if got := m.Declaration("__x0"); got != "static const int __x0[4]" {
					t.Errorf("declaration = %q", got)
				}
				if got := m.InitializerText(); got != "= {1, 2}" {
					t.Errorf("initializer = %q", got)
				}
			},
		},
		{
			name:  "function pointer",
			input: "void (*callback)(int);",
			checks: func(t *testing.T, m *Member) {
				if m.Name.String() != "callback" {
					t.Errorf("name = %q", m.Name.String())
				}
				if got := m.Declaration("__x0"); got != "void (*__x0)(int)" {
					t.Errorf("declaration = %q", got)
				}
			},
		},
		{
			name:  "bit field",
			input: "unsigned flags : 3;",
			checks: func(t *testing.T, m *Member) {
				if got := m.Declaration("__x0"); got != "unsigned __x0 : 3" {
					t.Errorf("declaration = %q", got)
				}
			},
		},
		{
			name:  "brace initializer",
			input: "int count{0};",
			checks: func(t *testing.T, m *Member) {
				if got := m.InitializerText(); got != "{0}" {
					t.Errorf("initializer = %q", got)
				}
			},
		},
	}

	g := NewGrammar()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := g.ParseMember(tt.input, loc)
			if err != nil {
				t.Fatalf("ParseMember(%q) error: %v", tt.input, err)
			}
			tt.checks(t, m)
		})
	}

	if _, err := g.ParseMember("= 5;", loc); err == nil {
		t.Error("expected error for declaration without declarator")
	}
}

func TestParseTemplateParameter(t *testing.T) {
	tests := []struct {
		input   string
		kind    TemplateParameterKind
		name    string
		pack    bool
		hasDflt bool
	}{
		{"typename T", TemplateTypeParameter, "T", false, false},
		{"class... Ts", TemplateTypeParameter, "Ts", true, false},
		{"typename T = std::vector<int>", TemplateTypeParameter, "T", false, true},
		{"typename = void", TemplateTypeParameter, "", false, true},
		{"int N = 3", TemplateNonTypeParameter, "N", false, true},
		{"std::size_t N", TemplateNonTypeParameter, "N", false, false},
		{"auto... Vs", TemplateNonTypeParameter, "Vs", true, false},
		{"typename T::type* = nullptr", TemplateNonTypeParameter, "", false, true},
		{"template <typename> class TT", TemplateTemplateParameter, "TT", false, false},
		{"template <typename...> typename... TTs", TemplateTemplateParameter, "TTs", true, false},
	}

	g := NewGrammar()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := g.ParseTemplateParameter(tt.input, loc)
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if p.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", p.Kind, tt.kind)
			}
			if p.Name != tt.name {
				t.Errorf("name = %q, want %q", p.Name, tt.name)
			}
			if p.Pack != tt.pack {
				t.Errorf("pack = %v, want %v", p.Pack, tt.pack)
			}
			if (p.Default != nil) != tt.hasDflt {
				t.Errorf("default = %v", p.Default)
			}
			if p.Declaration() != tt.input {
				t.Errorf("declaration = %q, want %q", p.Declaration(), tt.input)
			}
		})
	}

	if _, err := g.ParseTemplateParameter("typename T U", loc); err == nil {
		t.Error("expected error for trailing tokens")
	}
}

func TestNormalizeRequires(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
		want  []string
	}{
		{"parenthesized conjunction", []string{"(A) && (B)"}, []string{"A", "B"}},
		{"bare conjunction", []string{"A && B"}, []string{"A", "B"}},
		{"alternative token", []string{"A and B"}, []string{"A", "B"}},
		{"nested", []string{"(A && (B && C))"}, []string{"A", "B", "C"}},
		{"disjunction kept whole", []string{"A || B"}, []string{"(A || B)"}},
		{"dedup", []string{"A", "A && B", "B"}, []string{"A", "B"}},
		{"template id", []string{"std::is_same_v<T, int>"}, []string{"std::is_same_v<T, int>"}},
		{
			"comparison",
			[]string{"std::is_integral_v<T> && (sizeof(T) > 4)"},
			[]string{"std::is_integral_v<T>", "(sizeof(T) > 4)"},
		},
		{"comparisons are not templates", []string{"a < b && c > d"}, []string{"(a < b)", "(c > d)"}},
		{"negation", []string{"!B"}, []string{"(!B)"}},
		{"literal", []string{"true"}, []string{"true"}},
		{"member value", []string{"is_foo<T>::value"}, []string{"is_foo<T>::value"}},
	}

	g := NewGrammar()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.NormalizeRequires(tt.terms, loc)
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeRequires(%q) = %q, want %q", tt.terms, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"(A && B", "A && ", ""} {
		if _, err := g.NormalizeRequires([]string{bad}, loc); err == nil {
			t.Errorf("NormalizeRequires(%q) expected error", bad)
		}
	}
}

func TestExtractEnableIf(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		terms       []string
		params      int
		declaration string
	}{
		{
			name:        "non-type parameter",
			input:       "template <typename T, std::enable_if_t<std::is_integral_v<T>, int> = 0> void f(T);",
			terms:       []string{"std::is_integral_v<T>"},
			params:      1,
			declaration: "void __x0(T)",
		},
		{
			name:        "defaulted type parameter",
			input:       "template <typename T, typename = std::enable_if_t<(sizeof(T) > 1)>> void g(T);",
			terms:       []string{"(sizeof(T) > 1)"},
			params:      1,
			declaration: "void __x0(T)",
		},
		{
			name:        "pointer parameter",
			input:       "template <typename T, typename std::enable_if<is_foo<T>::value>::type* = nullptr> void p(T);",
			terms:       []string{"is_foo<T>::value"},
			params:      1,
			declaration: "void __x0(T)",
		},
		{
			name:        "return type keeps qualifiers",
			input:       "template <typename T> static std::enable_if_t<std::is_integral_v<T>, T>& h(T);",
			terms:       []string{"std::is_integral_v<T>"},
			params:      1,
			declaration: "static T& __x0(T)",
		},
		{
			name:        "enable_if type member",
			input:       "template <typename T> typename std::enable_if<is_foo<T>::value, int>::type k(T);",
			terms:       []string{"is_foo<T>::value"},
			params:      1,
			declaration: "int __x0(T)",
		},
		{
			name:        "trailing return defaults to void",
			input:       "template <typename T> auto m(T) -> std::enable_if_t<is_foo_v<T>>;",
			terms:       []string{"is_foo_v<T>"},
			params:      1,
			declaration: "auto __x0(T) -> void",
		},
		{
			name:        "no constraint",
			input:       "template <typename T> void n(T);",
			terms:       []string{},
			params:      1,
			declaration: "void __x0(T)",
		},
	}

	g := NewGrammar()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := g.ParseFunction(tt.input, loc)
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			terms := f.ExtractEnableIf()
			if !reflect.DeepEqual(terms, tt.terms) {
				t.Errorf("terms = %q, want %q", terms, tt.terms)
			}
			if n := len(f.Templates[0].Parameters); n != tt.params {
				t.Errorf("parameters = %d, want %d", n, tt.params)
			}
			if got := f.Declaration("__x0"); got != tt.declaration {
				t.Errorf("declaration = %q, want %q", got, tt.declaration)
			}
		})
	}
}

func TestNameSubstitute(t *testing.T) {
	g := NewGrammar()
	tests := []struct {
		text string
		want string
	}{
		{"int foo();", "__x0"},
		{"int __x0(int __x1);", "__x2"},
		{"void f(int __x10);", "__x0"},
		{"void f(int __x0, int __x10);", "__x2"},
	}
	for _, tt := range tests {
		if got := g.NameSubstitute(tt.text); got != tt.want {
			t.Errorf("NameSubstitute(%q) = %q, want %q", tt.text, got, tt.want)
		}
		if again := g.NameSubstitute(tt.text); again != tt.want {
			t.Errorf("NameSubstitute(%q) not deterministic", tt.text)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		input string
		expr  bool
		want  string
	}{
		{"std :: vector < int > const & x", false, "std::vector<int> const& x"},
		{"template<typename T>", false, "template <typename T>"},
		{"std::map<int, std::vector<int>> m", false, "std::map<int, std::vector<int>> m"},
		{"Args && ... args", false, "Args&&... args"},
		{"int x = - 1", false, "int x = -1"},
		{"! std::is_same_v<T,U>", true, "!std::is_same_v<T, U>"},
		{"a*b", true, "a * b"},
		{"sizeof...(Ts) > 0", true, "sizeof...(Ts) > 0"},
		{"operator new[]", false, "operator new[]"},
		{"operator\"\" _km", false, "operator\"\"_km"},
	}
	for _, tt := range tests {
		toks, err := SignificantTokens(tt.input)
		if err != nil {
			t.Fatalf("SignificantTokens(%q): %v", tt.input, err)
		}
		toks = NormalizeAngles(toks, tt.expr)
		var got string
		if tt.expr {
			got = FormatExpr(toks)
		} else {
			got = Format(toks)
		}
		if got != tt.want {
			t.Errorf("format(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsAttributeWord(t *testing.T) {
	for _, w := range []string{"__attribute__", "__declspec", "alignas"} {
		if !IsAttributeWord(w) {
			t.Errorf("IsAttributeWord(%q) = false", w)
		}
		if !isCallLike(w) {
			t.Errorf("isCallLike(%q) = false", w)
		}
	}
	for _, w := range []string{"decltype", "noexcept", "foo"} {
		if IsAttributeWord(w) {
			t.Errorf("IsAttributeWord(%q) = true", w)
		}
	}
}
