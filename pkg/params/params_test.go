package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genweave/genweave/pkg/validation"
)

func errorCodes(result validation.Result) []string {
	codes := make([]string, 0, len(result.Errors))
	for _, issue := range result.Errors {
		codes = append(codes, issue.Code)
	}

	return codes
}

func warningCodes(result validation.Result) []string {
	codes := make([]string, 0, len(result.Warnings))
	for _, issue := range result.Warnings {
		codes = append(codes, issue.Code)
	}

	return codes
}

func TestValidateStandardParams_AllValid(t *testing.T) {
	result := ValidateStandardParams(map[string]any{
		"seed":    float64(42),
		"steps":   float64(20),
		"width":   float64(1024),
		"height":  float64(1024),
		"cfg":     7.5,
		"denoise": 1.0,
		"prompt":  "a lighthouse at dusk",
	})

	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestValidateStandardParams_AbsentKeysNotChecked(t *testing.T) {
	result := ValidateStandardParams(map[string]any{})

	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestValidateStandardParams_StepsAboveMax(t *testing.T) {
	result := ValidateStandardParams(map[string]any{"steps": float64(151)})

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "steps_out_of_range", result.Errors[0].Code)
	assert.Equal(t, "steps", result.Errors[0].Field)
}

func TestValidateStandardParams_StepsFractional(t *testing.T) {
	result := ValidateStandardParams(map[string]any{"steps": 20.5})

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "steps_out_of_range", result.Errors[0].Code)
}

func TestValidateStandardParams_WidthNotDivisibleBy8(t *testing.T) {
	result := ValidateStandardParams(map[string]any{"width": float64(513)})

	assert.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "width_not_divisible_by_8", result.Warnings[0].Code)
	assert.Equal(t, validation.SeverityLow, result.Warnings[0].Severity)
}

func TestValidateStandardParams_DimensionBounds(t *testing.T) {
	result := ValidateStandardParams(map[string]any{
		"width":  float64(32),
		"height": float64(16384),
	})

	assert.ElementsMatch(t, []string{"width_out_of_range", "height_out_of_range"}, errorCodes(result))
	assert.Empty(t, result.Warnings)
}

func TestValidateStandardParams_Seed(t *testing.T) {
	result := ValidateStandardParams(map[string]any{"seed": "not-a-number"})
	assert.Equal(t, []string{"invalid_seed"}, errorCodes(result))

	result = ValidateStandardParams(map[string]any{"seed": "12345"})
	assert.True(t, result.Valid())
}

func TestValidateStandardParams_CFG(t *testing.T) {
	result := ValidateStandardParams(map[string]any{"cfg": "high"})
	assert.Equal(t, []string{"invalid_cfg"}, errorCodes(result))

	result = ValidateStandardParams(map[string]any{"cfg": 45.0})
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"cfg_out_of_range"}, warningCodes(result))
}

func TestValidateStandardParams_DenoiseStrict(t *testing.T) {
	for _, value := range []any{-0.1, 1.01, "half"} {
		result := ValidateStandardParams(map[string]any{"denoise": value})
		assert.Equal(t, []string{"denoise_out_of_range"}, errorCodes(result), "denoise=%v", value)
	}

	result := ValidateStandardParams(map[string]any{"denoise": 0.0})
	assert.True(t, result.Valid())
}

func TestValidateStandardParams_EmptyPrompt(t *testing.T) {
	result := ValidateStandardParams(map[string]any{"prompt": ""})

	assert.True(t, result.Valid())
	assert.Equal(t, []string{"empty_prompt"}, warningCodes(result))
}
