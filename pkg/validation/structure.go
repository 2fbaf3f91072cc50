package validation

import (
	"encoding/json"
	"fmt"

	"github.com/genweave/genweave/pkg/graph"
)

// ValidateStructure parses a wire-format document and checks its shape: a
// non-empty JSON object whose entries each carry a class_type and, when
// present, an object-typed inputs map. It returns the decoded raw graph for
// the semantic passes; the raw graph is only meaningful when the result has
// no errors, and callers must not run later passes otherwise.
func ValidateStructure(data []byte) (graph.RawGraph, Result) {
	var result Result

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		result.AddError(Issue{
			Code:    CodeInvalidPromptType,
			Message: "workflow must be a JSON object mapping node ids to nodes",
		})

		return nil, result
	}

	if len(doc) == 0 {
		result.AddError(Issue{
			Code:    CodeEmptyPrompt,
			Message: "workflow contains no nodes",
		})

		return nil, result
	}

	raw := make(graph.RawGraph, len(doc))

	for id, entry := range doc {
		var node struct {
			ClassType *string         `json:"class_type"`
			Inputs    json.RawMessage `json:"inputs"`
		}

		// A non-object entry cannot carry a class_type, so it reports as
		// missing one rather than as a malformed document.
		if err := json.Unmarshal(entry, &node); err != nil {
			result.AddError(Issue{
				Code:    CodeMissingClassType,
				Message: fmt.Sprintf("node %q must be a JSON object with class_type", id),
				NodeID:  id,
				Field:   "class_type",
			})

			continue
		}

		if node.ClassType == nil || *node.ClassType == "" {
			result.AddError(Issue{
				Code:    CodeMissingClassType,
				Message: fmt.Sprintf("node %q is missing class_type", id),
				NodeID:  id,
				Field:   "class_type",
			})

			continue
		}

		rawNode := graph.RawNode{ClassType: *node.ClassType}

		if node.Inputs == nil {
			result.AddWarning(Issue{
				Code:     CodeMissingInputs,
				Message:  fmt.Sprintf("node %q declares no inputs", id),
				NodeID:   id,
				Field:    "inputs",
				Severity: SeverityLow,
			})
		} else {
			// A literal null decodes into a nil map without error; a
			// present inputs key must hold an object.
			var inputs map[string]any
			if err := json.Unmarshal(node.Inputs, &inputs); err != nil || inputs == nil {
				result.AddError(Issue{
					Code:    CodeInvalidInputsType,
					Message: fmt.Sprintf("inputs of node %q must be a JSON object", id),
					NodeID:  id,
					Field:   "inputs",
				})

				continue
			}

			rawNode.Inputs = inputs
			rawNode.HasInputs = true
		}

		raw[id] = rawNode
	}

	if !result.Valid() {
		return nil, result
	}

	return raw, result
}
