package params

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/genweave/genweave/pkg/validation"
)

// ParamType enumerates the value kinds a declarative parameter may take.
type ParamType string

const (
	TypeInteger  ParamType = "integer"
	TypeDecimal  ParamType = "decimal"
	TypeDropdown ParamType = "dropdown"
	TypeBoolean  ParamType = "boolean"
	TypeText     ParamType = "text"
	TypeImage    ParamType = "image"
	TypeModel    ParamType = "model"
)

// ParamDef declares one user-facing parameter of a stored workflow.
type ParamDef struct {
	ID       string    `json:"id"               validate:"required"`
	Type     ParamType `json:"type"             validate:"required,oneof=integer decimal dropdown boolean text image model"`
	Label    string    `json:"label,omitempty"`
	Required bool      `json:"required,omitempty"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Values   []string  `json:"values,omitempty"`
	Default  any       `json:"default,omitempty"`
}

// defsSchema is the JSON Schema a parameter-definition document must match
// before the declarations are used. Hand-authored documents come from
// preset files, so shape errors are expected input, not bugs.
const defsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "type"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"type": {"enum": ["integer", "decimal", "dropdown", "boolean", "text", "image", "model"]},
			"label": {"type": "string"},
			"required": {"type": "boolean"},
			"min": {"type": "number"},
			"max": {"type": "number"},
			"values": {"type": "array", "items": {"type": "string"}}
		}
	}
}`

var defsValidator = validator.New(validator.WithRequiredStructEnabled())

// ParseDefs validates a raw parameter-definition document against the
// schema and decodes it.
func ParseDefs(data []byte) ([]ParamDef, error) {
	schemaResult, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(defsSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate parameter definitions: %w", err)
	}

	if !schemaResult.Valid() {
		return nil, fmt.Errorf("invalid parameter definitions: %s", schemaResult.Errors()[0])
	}

	var defs []ParamDef
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to decode parameter definitions: %w", err)
	}

	for i := range defs {
		if err := defsValidator.Struct(&defs[i]); err != nil {
			return nil, fmt.Errorf("invalid parameter definition %q: %w", defs[i].ID, err)
		}
	}

	return defs, nil
}

// ValidateParams checks supplied values against a workflow's declarative
// parameter schema, with the same error/warning taxonomy as the standard
// set.
func ValidateParams(defs []ParamDef, values map[string]any) validation.Result {
	var result validation.Result

	for _, def := range defs {
		raw, present := values[def.ID]
		if !present {
			if def.Required && def.Default == nil {
				result.AddError(validation.Issue{
					Code:    "missing_parameter",
					Message: fmt.Sprintf("required parameter %q was not supplied", def.ID),
					Field:   def.ID,
				})
			}

			continue
		}

		checkValue(&result, def, raw)
	}

	return result
}

func checkValue(result *validation.Result, def ParamDef, raw any) {
	switch def.Type {
	case TypeInteger:
		v, ok := intValue(raw)
		if !ok {
			addTypeError(result, def, raw, "an integer")

			return
		}

		checkBounds(result, def, float64(v))
	case TypeDecimal:
		v, ok := floatValue(raw)
		if !ok {
			addTypeError(result, def, raw, "a number")

			return
		}

		checkBounds(result, def, v)
	case TypeDropdown:
		v, ok := raw.(string)
		if !ok {
			addTypeError(result, def, raw, "a string")

			return
		}

		for _, allowed := range def.Values {
			if v == allowed {
				return
			}
		}

		result.AddError(validation.Issue{
			Code:    "invalid_option",
			Message: fmt.Sprintf("parameter %q value %q is not one of the allowed options", def.ID, v),
			Field:   def.ID,
		})
	case TypeBoolean:
		if _, ok := raw.(bool); !ok {
			addTypeError(result, def, raw, "a boolean")
		}
	case TypeText, TypeImage, TypeModel:
		if _, ok := raw.(string); !ok {
			addTypeError(result, def, raw, "a string")
		}
	}
}

func checkBounds(result *validation.Result, def ParamDef, v float64) {
	if (def.Min != nil && v < *def.Min) || (def.Max != nil && v > *def.Max) {
		result.AddError(validation.Issue{
			Code:    "parameter_out_of_range",
			Message: fmt.Sprintf("parameter %q value %v is outside its declared range", def.ID, v),
			Field:   def.ID,
		})
	}
}

func addTypeError(result *validation.Result, def ParamDef, raw any, expected string) {
	result.AddError(validation.Issue{
		Code:    "invalid_parameter_type",
		Message: fmt.Sprintf("parameter %q must be %s, got %v", def.ID, expected, raw),
		Field:   def.ID,
	})
}
