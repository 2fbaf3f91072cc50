// Package params validates user-facing generation parameters, independent
// of any graph: the fixed standard parameter set every workflow accepts,
// and declarative per-workflow parameter schemas.
package params

import (
	"fmt"
	"strconv"

	"github.com/genweave/genweave/pkg/validation"
)

// Bounds for the standard parameter set.
const (
	MinSteps     = 1
	MaxSteps     = 150
	MinDimension = 64
	MaxDimension = 8192
	MinCFG       = 1.0
	MaxCFG       = 30.0
)

// ValidateStandardParams range- and type-checks the standard generation
// parameters. Absent keys are not checked; hard violations are errors,
// soft ones (odd-but-runnable values) are warnings.
func ValidateStandardParams(values map[string]any) validation.Result {
	var result validation.Result

	if seed, present := values["seed"]; present {
		if _, ok := intValue(seed); !ok {
			result.AddError(validation.Issue{
				Code:    "invalid_seed",
				Message: fmt.Sprintf("seed must be an integer, got %v", seed),
				Field:   "seed",
			})
		}
	}

	if raw, present := values["steps"]; present {
		steps, ok := intValue(raw)
		if !ok || steps < MinSteps || steps > MaxSteps {
			result.AddError(validation.Issue{
				Code:    "steps_out_of_range",
				Message: fmt.Sprintf("steps must be an integer in [%d, %d], got %v", MinSteps, MaxSteps, raw),
				Field:   "steps",
			})
		}
	}

	checkDimension(&result, values, "width")
	checkDimension(&result, values, "height")

	if raw, present := values["cfg"]; present {
		cfg, ok := floatValue(raw)
		if !ok {
			result.AddError(validation.Issue{
				Code:    "invalid_cfg",
				Message: fmt.Sprintf("guidance scale must be numeric, got %v", raw),
				Field:   "cfg",
			})
		} else if cfg < MinCFG || cfg > MaxCFG {
			result.AddWarning(validation.Issue{
				Code:     "cfg_out_of_range",
				Message:  fmt.Sprintf("guidance scale %v is outside the usual [%v, %v] band", cfg, MinCFG, MaxCFG),
				Field:    "cfg",
				Severity: validation.SeverityLow,
			})
		}
	}

	if raw, present := values["denoise"]; present {
		denoise, ok := floatValue(raw)
		if !ok || denoise < 0 || denoise > 1 {
			result.AddError(validation.Issue{
				Code:    "denoise_out_of_range",
				Message: fmt.Sprintf("denoise must be a number within [0, 1], got %v", raw),
				Field:   "denoise",
			})
		}
	}

	if raw, present := values["prompt"]; present {
		if prompt, ok := raw.(string); ok && prompt == "" {
			result.AddWarning(validation.Issue{
				Code:     "empty_prompt",
				Message:  "prompt is empty; generation will be unconditioned",
				Field:    "prompt",
				Severity: validation.SeverityLow,
			})
		}
	}

	return result
}

func checkDimension(result *validation.Result, values map[string]any, field string) {
	raw, present := values[field]
	if !present {
		return
	}

	dim, ok := intValue(raw)
	if !ok || dim < MinDimension || dim > MaxDimension {
		result.AddError(validation.Issue{
			Code:    field + "_out_of_range",
			Message: fmt.Sprintf("%s must be an integer in [%d, %d], got %v", field, MinDimension, MaxDimension, raw),
			Field:   field,
		})

		return
	}

	if dim%8 != 0 {
		result.AddWarning(validation.Issue{
			Code:     field + "_not_divisible_by_8",
			Message:  fmt.Sprintf("%s %d is not divisible by 8; the engine will pad it", field, dim),
			Field:    field,
			Severity: validation.SeverityLow,
		})
	}
}

// intValue coerces JSON-decoded numbers and numeric strings to an integer.
func intValue(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}

		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}

		return n, true
	default:
		return 0, false
	}
}

func floatValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
