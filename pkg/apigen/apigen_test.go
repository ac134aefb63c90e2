package apigen

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cppapidoc/pkg/apidata"
	"cppapidoc/pkg/ast"
	"cppapidoc/pkg/config"
	"cppapidoc/pkg/errors"
)

func generate(t *testing.T, src string, configure ...func(*config.Config)) (*apidata.Output, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.hpp")
	cfg := &config.Config{InputPath: path, InputContent: src}
	for _, f := range configure {
		f(cfg)
	}
	require.NoError(t, cfg.Compile())

	out, err := GenerateOutput(context.Background(), cfg)
	require.NoError(t, err)
	return out, path
}

func byName(t *testing.T, out *apidata.Output, name string) []*apidata.Entity {
	t.Helper()
	var es []*apidata.Entity
	for _, e := range out.Entities {
		if e.Name == name {
			es = append(es, e)
		}
	}
	return es
}

func single(t *testing.T, out *apidata.Output, name string) *apidata.Entity {
	t.Helper()
	es := byName(t, out, name)
	require.Len(t, es, 1, "entities named %q", name)
	return es[0]
}

func warningsWith(out *apidata.Output, s string) []apidata.Diagnostic {
	var ds []apidata.Diagnostic
	for _, d := range out.Warnings {
		if bytes.Contains([]byte(d.Message), []byte(s)) {
			ds = append(ds, d)
		}
	}
	return ds
}

func TestDocComment(t *testing.T) {
	out, _ := generate(t, "/// This is the doc.\nint foo(bool x, int y);")
	require.Len(t, out.Entities, 1)
	e := single(t, out, "foo")
	require.NotNil(t, e.Doc)
	assert.Equal(t, "This is the doc.", e.Doc.Text)
	assert.Equal(t, "foo", e.PageName)
	assert.Empty(t, out.Errors)
}

func TestNondocComment(t *testing.T) {
	src := `/// The class.
/// \ingroup Core
class Foo {
 public:
  /// Documented constructor.
  Foo();

  // Plain comment.
  Foo(int x);
};
`
	out, _ := generate(t, src)

	var classes []*apidata.Entity
	for _, e := range byName(t, out, "Foo") {
		if e.Kind == apidata.KindClass {
			classes = append(classes, e)
		}
	}
	require.Len(t, classes, 1)
	class := classes[0]
	require.Contains(t, class.Members, "Constructors")
	require.Len(t, class.Members["Constructors"], 1)

	ctor := out.Entities[class.Members["Constructors"][0]]
	require.NotNil(t, ctor)
	assert.Equal(t, "Documented constructor.", ctor.Doc.Text)
	assert.Equal(t, 0, ctor.Arity)
	assert.Len(t, out.Entities, 2, "the plain-commented constructor is dropped")
}

func TestRequiresParenthesization(t *testing.T) {
	src := `/// Parenthesized.
template <typename T>
  requires (std::is_integral_v<T>) && (std::is_signed_v<T>)
void f(T t);

/// Bare.
template <typename T>
  requires std::is_integral_v<T> && std::is_signed_v<T>
void g(T t);
`
	out, _ := generate(t, src)
	want := []string{"std::is_integral_v<T>", "std::is_signed_v<T>"}
	assert.Equal(t, want, single(t, out, "f").Requires)
	assert.Equal(t, want, single(t, out, "g").Requires)
	assert.Empty(t, out.Errors)
}

func TestEnableIfTransform(t *testing.T) {
	src := `#include <type_traits>

/// Converts a value.
/// \ingroup conversions
template <typename T, std::enable_if_t<std::is_convertible_v<T, int>, int> = 0>
int convert(T value);
`
	out, _ := generate(t, src)
	e := single(t, out, "convert")
	assert.NotEmpty(t, e.Requires)
	assert.Equal(t, []string{"std::is_convertible_v<T, int>"}, e.Requires)
	assert.Equal(t, "int __x0(T value)", e.Declaration)
	assert.Empty(t, out.Errors)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, []string{e.ID}, out.Groups["conversions"])
}

func TestOverloadDisambiguation(t *testing.T) {
	src := `/// First.
void f(int x);

/// Second.
void f(int x, int y);
`
	out, path := generate(t, src)
	fs := byName(t, out, "f")
	require.Len(t, fs, 2)

	ids := map[int]string{}
	for _, e := range fs {
		ids[e.Arity] = e.SpecialID
	}
	assert.Equal(t, map[int]string{1: "1", 2: "2"}, ids)

	ws := warningsWith(out, "same page name")
	require.Len(t, ws, 1)
	assert.Contains(t, ws[0].Message, path+":2:")
	assert.Contains(t, ws[0].Message, path+":5:")
}

func TestVariableTemplateSpecialization(t *testing.T) {
	src := `/// Primary.
template <typename T>
constexpr bool HasA = false;

/// Specialized.
template <>
constexpr bool HasA<int> = true;
`
	out, _ := generate(t, src)
	primary := single(t, out, "HasA")
	spec := single(t, out, "HasA<int>")

	require.NotNil(t, spec.Specializes)
	assert.Equal(t, primary.ID, spec.Specializes.ID())
	assert.Equal(t, "HasA", primary.PageName)
	assert.Equal(t, "HasA-int", spec.PageName)
	assert.Empty(t, warningsWith(out, "same page name"))
	assert.Empty(t, out.Errors)
}

func TestMacroClassification(t *testing.T) {
	src := `/// Object-like.
#define FOO 1

/// Function-like.
#define BAR(a, b) ((a) + (b))

/// Spaced.
#define BAZ (x)
`
	out, _ := generate(t, src)
	assert.Nil(t, single(t, out, "FOO").Parameters)
	assert.Equal(t, []string{"a", "b"}, single(t, out, "BAR").Parameters)
	assert.Nil(t, single(t, out, "BAZ").Parameters)

	raw, err := json.Marshal(single(t, out, "FOO"))
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "parameters")
}

func TestEnumeratorDocs(t *testing.T) {
	src := `/// Colors.
enum class Color {
  /// Red doc.
  red,
  green,  ///< Green doc.
  /// Blue doc.
  blue,
};
`
	out, _ := generate(t, src)
	e := single(t, out, "Color")
	require.Len(t, e.Enumerators, 3)
	for i, want := range []string{"Red doc.", "Green doc.", "Blue doc."} {
		require.NotNil(t, e.Enumerators[i].Doc, e.Enumerators[i].Name)
		assert.Equal(t, want, e.Enumerators[i].Doc.Text)
	}
}

func TestFunctionFields(t *testing.T) {
	src := `/// \brief Brief text.
/// \details Details text.
/// @param arg1 First argument.
/// @param[in] arg2 Second argument.
/// @param[in,out] arg3 Third argument.
/// @retval NULL On failure.
/// @returns The result.
/// \tparam T The type.
template <typename T>
int fn(int arg1, int arg2, int arg3);
`
	out, _ := generate(t, src)
	e := single(t, out, "fn")
	assert.Equal(t, `Brief text.
Details text.
:param arg1: First argument.
:param arg2[in]: Second argument.
:param arg3[in, out]: Third argument.
:retval NULL: On failure.
:returns: The result.
:tparam T: The type.`, e.Doc.Text)
}

func TestDiagnostics(t *testing.T) {
	src := "#include \"missing.h\"\n\n/// Doc.\nint foo();\n"

	out, path := generate(t, src)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "'missing.h' file not found", out.Errors[0].Message)
	require.NotNil(t, out.Errors[0].Location)
	assert.Equal(t, path, out.Errors[0].Location.File)
	assert.Equal(t, 1, out.Errors[0].Location.Line)
	assert.True(t, out.HasErrors())

	out, _ = generate(t, src, func(c *config.Config) {
		c.IgnoreDiagnostics = []string{`'missing\.h' file not found`}
	})
	assert.Empty(t, out.Errors)
	assert.Len(t, out.Entities, 1)
}

func TestOutputShape(t *testing.T) {
	out, _ := generate(t, "/// Doc.\nint foo();\n", func(c *config.Config) {
		c.DocumentPrefix = "api/"
	})
	var buf bytes.Buffer
	require.NoError(t, out.WriteJSON(&buf))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	for _, key := range []string{"entities", "groups", "errors", "warnings", "nonitpick"} {
		assert.Contains(t, doc, key)
	}
	assert.JSONEq(t, "{}", string(doc["groups"]))
	assert.JSONEq(t, "[]", string(doc["nonitpick"]))

	var entities map[string]map[string]any
	require.NoError(t, json.Unmarshal(doc["entities"], &entities))
	require.Len(t, entities, 1)
	for _, e := range entities {
		assert.Equal(t, "function", e["kind"])
		assert.Equal(t, "foo", e["page_name"])
		assert.Equal(t, "api/", e["document_prefix"])
		assert.Equal(t, "", e["scope"])
		assert.EqualValues(t, 0, e["arity"])
		assert.NotContains(t, e, "template_parameters")
	}
}

type fakeWalker struct {
	tu  *ast.TranslationUnit
	err error
}

func (w fakeWalker) Parse(context.Context, ast.ParseOptions) (*ast.TranslationUnit, error) {
	return w.tu, w.err
}

func TestWithWalker(t *testing.T) {
	cfg := &config.Config{InputContent: "int x;"}
	require.NoError(t, cfg.Compile())

	tu := &ast.TranslationUnit{Diagnostics: []ast.Diagnostic{
		{Severity: ast.SeverityWarning, Message: "odd", Location: ast.Location{File: "input.hpp", Line: 1, Column: 1}},
		{Severity: ast.SeverityError, Message: "broken", Location: ast.Location{File: "input.hpp", Line: 2, Column: 1}},
	}}
	out, err := GenerateOutput(context.Background(), cfg, WithWalker(fakeWalker{tu: tu}))
	require.NoError(t, err)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "broken", out.Errors[0].Message)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, "odd", out.Warnings[0].Message)

	_, err = GenerateOutput(context.Background(), cfg,
		WithWalker(fakeWalker{err: errors.New(errors.KindIO, "no such file")}))
	require.Error(t, err)
	assert.Equal(t, errors.KindIO, errors.GetKind(err))
}

func TestFatalErrorsAbort(t *testing.T) {
	src := `/// First doc.
void f();

/// Second doc.
void f();
`
	path := filepath.Join(t.TempDir(), "test.hpp")
	cfg := &config.Config{InputPath: path, InputContent: src}
	require.NoError(t, cfg.Compile())

	_, err := GenerateOutput(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, errors.KindDuplicate, errors.GetKind(err))
	assert.Equal(t, path, errors.GetAttributes(err)["input"])
}
