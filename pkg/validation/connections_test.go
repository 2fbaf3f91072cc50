package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genweave/genweave/pkg/graph"
)

func rawGraph(t *testing.T, data string) graph.RawGraph {
	t.Helper()

	raw, result := ValidateStructure([]byte(data))
	require.True(t, result.Valid(), "fixture must be structurally valid")

	return raw
}

func issueCodes(issues []Issue) []string {
	codes := make([]string, len(issues))
	for i, issue := range issues {
		codes[i] = issue.Code
	}

	return codes
}

func TestValidateConnections_MissingSourceNode(t *testing.T) {
	raw := rawGraph(t, `{"1": {"class_type": "SaveImage", "inputs": {"images": ["99", 0]}}}`)

	result := ValidateConnections(raw)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, CodeMissingSourceNode, result.Errors[0].Code)
	assert.Equal(t, "1", result.Errors[0].NodeID)
	assert.Equal(t, "images", result.Errors[0].Field)
}

func TestValidateConnections_InvalidOutputIndex(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{name: "negative", data: `{
			"1": {"class_type": "A", "inputs": {}},
			"2": {"class_type": "SaveImage", "inputs": {"images": ["1", -1]}}
		}`},
		{name: "non-number", data: `{
			"1": {"class_type": "A", "inputs": {}},
			"2": {"class_type": "SaveImage", "inputs": {"images": ["1", "0"]}}
		}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateConnections(rawGraph(t, tc.data))

			require.Len(t, result.Errors, 1)
			assert.Equal(t, CodeInvalidOutputIndex, result.Errors[0].Code)
		})
	}
}

func TestValidateConnections_CycleDetected(t *testing.T) {
	raw := rawGraph(t, `{
		"1": {"class_type": "A", "inputs": {"x": ["2", 0]}},
		"2": {"class_type": "B", "inputs": {"y": ["1", 0]}}
	}`)

	result := ValidateConnections(raw)

	require.Equal(t, []string{CodeCycleDetected}, issueCodes(result.Errors))
	assert.NotEmpty(t, result.Errors[0].NodeID)
}

func TestValidateConnections_OnlyFirstCycleReported(t *testing.T) {
	// Two disjoint cycles: exactly one cycle_detected error.
	raw := rawGraph(t, `{
		"1": {"class_type": "A", "inputs": {"x": ["2", 0]}},
		"2": {"class_type": "B", "inputs": {"y": ["1", 0]}},
		"3": {"class_type": "C", "inputs": {"x": ["4", 0]}},
		"4": {"class_type": "D", "inputs": {"y": ["3", 0]}}
	}`)

	result := ValidateConnections(raw)

	assert.Equal(t, []string{CodeCycleDetected}, issueCodes(result.Errors))
}

func TestValidateConnections_SelfReferenceIsCycle(t *testing.T) {
	raw := rawGraph(t, `{"1": {"class_type": "A", "inputs": {"x": ["1", 0]}}}`)

	result := ValidateConnections(raw)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, CodeCycleDetected, result.Errors[0].Code)
	assert.Equal(t, "1", result.Errors[0].NodeID)
}

func TestValidateConnections_DisconnectedNode(t *testing.T) {
	raw := rawGraph(t, `{
		"1": {"class_type": "CheckpointLoaderSimple", "inputs": {}},
		"2": {"class_type": "SaveImage", "inputs": {"images": ["1", 0]}},
		"3": {"class_type": "EmptyLatentImage", "inputs": {}}
	}`)

	result := ValidateConnections(raw)

	require.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, CodeDisconnectedNode, result.Warnings[0].Code)
	assert.Equal(t, "3", result.Warnings[0].NodeID)
	assert.Equal(t, SeverityMedium, result.Warnings[0].Severity)
}

func TestValidateConnections_TerminalClassesNotFlagged(t *testing.T) {
	testCases := []string{"SaveImage", "PreviewImage", "OutputNode", "VHS_VideoCombine", "CreateVideo"}

	for _, classType := range testCases {
		t.Run(classType, func(t *testing.T) {
			raw := rawGraph(t, `{"1": {"class_type": "`+classType+`", "inputs": {}}}`)

			result := ValidateConnections(raw)

			assert.Empty(t, result.Warnings)
		})
	}
}

func TestValidateConnections_NodesWithInputsNotFlagged(t *testing.T) {
	// A node that declares inputs of its own is not a stray even when
	// nothing downstream consumes it.
	raw := rawGraph(t, `{"1": {"class_type": "CLIPTextEncode", "inputs": {"text": "a cat"}}}`)

	result := ValidateConnections(raw)

	assert.Empty(t, result.Warnings)
}

func TestValidateConnections_ValidChain(t *testing.T) {
	raw := rawGraph(t, `{
		"1": {"class_type": "CheckpointLoaderSimple", "inputs": {"ckpt_name": "m.safetensors"}},
		"2": {"class_type": "CLIPTextEncode", "inputs": {"text": "a cat", "clip": ["1", 1]}},
		"3": {"class_type": "SaveImage", "inputs": {"images": ["2", 0]}}
	}`)

	result := ValidateConnections(raw)

	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}
