package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefs(t *testing.T) {
	defs, err := ParseDefs([]byte(`[
		{"id": "steps", "type": "integer", "min": 1, "max": 150, "default": 20},
		{"id": "sampler", "type": "dropdown", "values": ["euler", "dpmpp_2m"], "required": true},
		{"id": "prompt", "type": "text", "label": "Prompt"}
	]`))
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, TypeInteger, defs[0].Type)
	require.NotNil(t, defs[0].Min)
	assert.InDelta(t, 1.0, *defs[0].Min, 0.001)
	assert.True(t, defs[1].Required)
	assert.Equal(t, []string{"euler", "dpmpp_2m"}, defs[1].Values)
}

func TestParseDefs_RejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not an array", data: `{"id": "steps", "type": "integer"}`},
		{name: "missing id", data: `[{"type": "integer"}]`},
		{name: "missing type", data: `[{"id": "steps"}]`},
		{name: "unknown type", data: `[{"id": "steps", "type": "slider"}]`},
		{name: "empty id", data: `[{"id": "", "type": "integer"}]`},
		{name: "non-string option", data: `[{"id": "s", "type": "dropdown", "values": [1, 2]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefs([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestValidateParams_MissingRequired(t *testing.T) {
	defs := []ParamDef{
		{ID: "model", Type: TypeModel, Required: true},
		{ID: "steps", Type: TypeInteger, Required: true, Default: float64(20)},
		{ID: "cfg", Type: TypeDecimal},
	}

	result := ValidateParams(defs, map[string]any{})

	assert.Equal(t, []string{"missing_parameter"}, errorCodes(result))
	assert.Equal(t, "model", result.Errors[0].Field)
}

func TestValidateParams_TypeChecks(t *testing.T) {
	tests := []struct {
		name  string
		def   ParamDef
		value any
		codes []string
	}{
		{name: "integer ok", def: ParamDef{ID: "p", Type: TypeInteger}, value: float64(4)},
		{name: "integer fractional", def: ParamDef{ID: "p", Type: TypeInteger}, value: 4.5, codes: []string{"invalid_parameter_type"}},
		{name: "decimal ok", def: ParamDef{ID: "p", Type: TypeDecimal}, value: 4.5},
		{name: "decimal string", def: ParamDef{ID: "p", Type: TypeDecimal}, value: "4.5", codes: []string{"invalid_parameter_type"}},
		{name: "boolean ok", def: ParamDef{ID: "p", Type: TypeBoolean}, value: true},
		{name: "boolean string", def: ParamDef{ID: "p", Type: TypeBoolean}, value: "true", codes: []string{"invalid_parameter_type"}},
		{name: "text ok", def: ParamDef{ID: "p", Type: TypeText}, value: "hello"},
		{name: "image number", def: ParamDef{ID: "p", Type: TypeImage}, value: float64(7), codes: []string{"invalid_parameter_type"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateParams([]ParamDef{tt.def}, map[string]any{"p": tt.value})
			if len(tt.codes) == 0 {
				assert.True(t, result.Valid())
			} else {
				assert.Equal(t, tt.codes, errorCodes(result))
			}
		})
	}
}

func TestValidateParams_Bounds(t *testing.T) {
	low, high := 1.0, 150.0
	defs := []ParamDef{{ID: "steps", Type: TypeInteger, Min: &low, Max: &high}}

	result := ValidateParams(defs, map[string]any{"steps": float64(151)})
	assert.Equal(t, []string{"parameter_out_of_range"}, errorCodes(result))

	result = ValidateParams(defs, map[string]any{"steps": float64(150)})
	assert.True(t, result.Valid())
}

func TestValidateParams_Dropdown(t *testing.T) {
	defs := []ParamDef{{ID: "sampler", Type: TypeDropdown, Values: []string{"euler", "dpmpp_2m"}}}

	result := ValidateParams(defs, map[string]any{"sampler": "euler"})
	assert.True(t, result.Valid())

	result = ValidateParams(defs, map[string]any{"sampler": "ddim"})
	assert.Equal(t, []string{"invalid_option"}, errorCodes(result))
}
