package apidata

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestEntityJSON(t *testing.T) {
	t.Run("namespace scope function", func(t *testing.T) {
		got := marshalMap(t, &Entity{
			ID:          "c:@N@ns@F@f#",
			Kind:        KindFunction,
			Name:        "f",
			Scope:       "ns::",
			Declaration: "void __x0()",
		})
		assert.Equal(t, "ns::", got["scope"])
		assert.Equal(t, float64(0), got["arity"])
		assert.NotContains(t, got, "parent")
		assert.NotContains(t, got, "template_parameters")
		assert.NotContains(t, got, "parameters")
		assert.Contains(t, got, "doc")
		assert.Nil(t, got["doc"])
	})

	t.Run("member with empty template parameter list", func(t *testing.T) {
		got := marshalMap(t, &Entity{
			ID:                 "c:@S@A@FI@x",
			Kind:               KindVar,
			Name:               "x",
			Parent:             "c:@S@A",
			TemplateParameters: []TemplateParameter{},
		})
		assert.Equal(t, "c:@S@A", got["parent"])
		assert.NotContains(t, got, "scope")
		assert.NotContains(t, got, "arity")
		assert.Equal(t, []any{}, got["template_parameters"])
	})

	t.Run("macros", func(t *testing.T) {
		object := marshalMap(t, &Entity{ID: "c:@macro@A", Kind: KindMacro, Name: "A"})
		assert.NotContains(t, object, "parameters")

		function := marshalMap(t, &Entity{ID: "c:@macro@F", Kind: KindMacro, Name: "F", Parameters: []string{}})
		assert.Equal(t, []any{}, function["parameters"])
	})
}

func TestSpecialization(t *testing.T) {
	pending := Unresolved()
	assert.True(t, pending.Pending())

	resolved := ResolvedTo("c:@ST>1#T@A")
	assert.False(t, resolved.Pending())
	assert.Equal(t, "c:@ST>1#T@A", resolved.ID())

	got := marshalMap(t, &Entity{ID: "x", Kind: KindClass, Specializes: pending})
	assert.Equal(t, true, got["specializes"])
	got = marshalMap(t, &Entity{ID: "y", Kind: KindClass, Specializes: resolved})
	assert.Equal(t, "c:@ST>1#T@A", got["specializes"])

	var s Specialization
	require.NoError(t, json.Unmarshal([]byte(`"c:@S@B"`), &s))
	assert.Equal(t, "c:@S@B", s.ID())
	require.NoError(t, json.Unmarshal([]byte(`true`), &s))
	assert.True(t, s.Pending())
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	r.Add(&Entity{ID: "b"})
	r.Add(&Entity{ID: "a"})
	r.Add(&Entity{ID: "b", Name: "replaced"})

	require.Equal(t, 2, r.Len())
	ents := r.Entities()
	assert.Equal(t, "b", ents[0].ID)
	assert.Equal(t, "replaced", ents[0].Name)
	assert.Equal(t, "a", ents[1].ID)

	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestOutputWriteJSON(t *testing.T) {
	out := NewOutput()
	out.Warnings = append(out.Warnings, Diagnostic{Message: "careful", Location: &Location{File: "a.hpp", Line: 3, Col: 1}})

	var buf bytes.Buffer
	require.NoError(t, out.WriteJSON(&buf))

	got := marshalMap(t, json.RawMessage(buf.Bytes()))
	assert.Equal(t, map[string]any{}, got["entities"])
	assert.Equal(t, []any{}, got["errors"])
	assert.Equal(t, []any{}, got["nonitpick"])
	require.Len(t, got["warnings"], 1)
	assert.False(t, out.HasErrors())
}
