package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputValue_MarshalRef(t *testing.T) {
	data, err := json.Marshal(Ref("4", 1))
	require.NoError(t, err)
	assert.JSONEq(t, `["4", 1]`, string(data))
}

func TestInputValue_MarshalLiteral(t *testing.T) {
	testCases := []struct {
		name     string
		value    any
		expected string
	}{
		{name: "string", value: "euler", expected: `"euler"`},
		{name: "number", value: 7.5, expected: `7.5`},
		{name: "list", value: []int{512, 512}, expected: `[512, 512]`},
		{name: "nil", value: nil, expected: `null`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(Lit(tc.value))
			require.NoError(t, err)
			assert.JSONEq(t, tc.expected, string(data))
		})
	}
}

func TestInputValue_UnmarshalRef(t *testing.T) {
	var v InputValue

	require.NoError(t, json.Unmarshal([]byte(`["3", 2]`), &v))
	require.True(t, v.IsRef())
	assert.Equal(t, "3", v.Ref.NodeID)
	assert.Equal(t, 2, v.Ref.Output)
}

func TestInputValue_UnmarshalLiteralArrays(t *testing.T) {
	// 2-element arrays that are not [string, integer] stay literals.
	testCases := []struct {
		name string
		data string
	}{
		{name: "two numbers", data: `[512, 512]`},
		{name: "two strings", data: `["a", "b"]`},
		{name: "non-integral index", data: `["1", 0.5]`},
		{name: "three elements", data: `["1", 0, 0]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var v InputValue

			require.NoError(t, json.Unmarshal([]byte(tc.data), &v))
			assert.False(t, v.IsRef())
			assert.NotNil(t, v.Literal)
		})
	}
}

func TestGraph_EncodeWireShape(t *testing.T) {
	g := Graph{
		"1": {ID: "1", ClassType: "CheckpointLoaderSimple", Inputs: map[string]InputValue{
			"ckpt_name": Lit("model.safetensors"),
		}},
		"2": {ID: "2", ClassType: "CLIPTextEncode", Inputs: map[string]InputValue{
			"text": Lit("a cat"),
			"clip": Ref("1", 1),
		}},
	}

	data, err := g.Encode()
	require.NoError(t, err)

	expected := `{
		"1": {"class_type": "CheckpointLoaderSimple", "inputs": {"ckpt_name": "model.safetensors"}},
		"2": {"class_type": "CLIPTextEncode", "inputs": {"text": "a cat", "clip": ["1", 1]}}
	}`
	assert.JSONEq(t, expected, string(data))
}

func TestDecode_RoundTrip(t *testing.T) {
	original := `{
		"1": {"class_type": "LoadImage", "inputs": {"image": "in.png"}},
		"2": {"class_type": "SaveImage", "inputs": {"images": ["1", 0], "filename_prefix": "out"}}
	}`

	g, err := Decode([]byte(original))
	require.NoError(t, err)
	require.Len(t, g, 2)

	assert.Equal(t, "LoadImage", g["1"].ClassType)
	assert.Equal(t, "2", g["2"].ID)
	require.True(t, g["2"].Inputs["images"].IsRef())
	assert.Equal(t, "1", g["2"].Inputs["images"].Ref.NodeID)

	encoded, err := g.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, original, string(encoded))
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode([]byte(`{}`))
	require.ErrorIs(t, err, ErrEmptyGraph)

	_, err = Decode([]byte(`[]`))
	require.Error(t, err)
}

func TestGraph_Raw(t *testing.T) {
	g := Graph{
		"1": {ID: "1", ClassType: "A", Inputs: map[string]InputValue{
			"x": Lit(5),
			"y": Ref("2", 0),
		}},
		"2": {ID: "2", ClassType: "B", Inputs: map[string]InputValue{}},
	}

	raw := g.Raw()
	require.Len(t, raw, 2)
	assert.Equal(t, "A", raw["1"].ClassType)
	assert.True(t, raw["1"].HasInputs)
	assert.Equal(t, []any{"2", float64(0)}, raw["1"].Inputs["y"])
}

func TestGraph_NodeIDs(t *testing.T) {
	g := Graph{
		"10": {ID: "10", ClassType: "A"},
		"2":  {ID: "2", ClassType: "B"},
		"1":  {ID: "1", ClassType: "C"},
	}

	assert.Equal(t, []string{"1", "2", "10"}, g.NodeIDs())
}
