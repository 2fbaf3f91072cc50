// Package graph defines the workflow-graph data model shared by the builder
// and the validators: nodes keyed by sequential string ids, each holding a
// class type and a map of input bindings that are either literal values or
// references to another node's numbered output.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// PortRef points at one numbered output of another node.
type PortRef struct {
	NodeID string
	Output int
}

// InputValue is one input binding on a node. Exactly one of Literal and Ref
// is meaningful; Ref wins when both are set.
type InputValue struct {
	Literal any
	Ref     *PortRef
}

// Lit wraps a literal scalar, list, or map as an input value.
func Lit(v any) InputValue {
	return InputValue{Literal: v}
}

// Ref builds an input value referencing the given output of another node.
func Ref(nodeID string, output int) InputValue {
	return InputValue{Ref: &PortRef{NodeID: nodeID, Output: output}}
}

// RefTo wraps an existing port reference as an input value.
func RefTo(ref PortRef) InputValue {
	return InputValue{Ref: &ref}
}

// IsRef reports whether the value is a connection rather than a literal.
func (v InputValue) IsRef() bool {
	return v.Ref != nil
}

// MarshalJSON emits the engine wire shape: connections as the 2-element
// array [sourceId, outputIndex], literals as-is.
func (v InputValue) MarshalJSON() ([]byte, error) {
	if v.Ref != nil {
		return json.Marshal([]any{v.Ref.NodeID, v.Ref.Output})
	}

	return json.Marshal(v.Literal)
}

// UnmarshalJSON reverses the wire shape. A 2-element array whose first
// element is a string and whose second is an integral number decodes as a
// connection; anything else stays a literal.
func (v *InputValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if ref, ok := asPortRef(raw); ok {
		v.Ref = ref
		v.Literal = nil

		return nil
	}

	v.Literal = raw
	v.Ref = nil

	return nil
}

func asPortRef(raw any) (*PortRef, bool) {
	arr, ok := raw.([]any)
	if !ok || len(arr) != 2 {
		return nil, false
	}

	id, ok := arr[0].(string)
	if !ok {
		return nil, false
	}

	idx, ok := arr[1].(float64)
	if !ok || idx != float64(int(idx)) {
		return nil, false
	}

	return &PortRef{NodeID: id, Output: int(idx)}, true
}

// Node is one operation instance in a graph.
type Node struct {
	ID        string                `json:"-"`
	ClassType string                `json:"class_type"`
	Inputs    map[string]InputValue `json:"inputs"`
}

// Graph is the full workflow keyed by node id. Its JSON form is exactly the
// shape submitted to the engine's job endpoint.
type Graph map[string]*Node

// ErrEmptyGraph is returned when decoding an empty or non-object document.
var ErrEmptyGraph = errors.New("graph is empty")

// Decode parses the wire-format JSON into a typed graph.
func Decode(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}

	if len(g) == 0 {
		return nil, ErrEmptyGraph
	}

	for id, node := range g {
		node.ID = id
	}

	return g, nil
}

// Encode renders the graph in the engine wire format.
func (g Graph) Encode() ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}

	return data, nil
}

// NodeIDs returns all node ids in deterministic (sorted) order.
func (g Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}

		return ids[i] < ids[j]
	})

	return ids
}

// Raw converts the graph to the generic decoded-JSON view the validators
// operate on, the same shape a hand-authored document decodes to.
func (g Graph) Raw() RawGraph {
	raw := make(RawGraph, len(g))

	for id, node := range g {
		inputs := make(map[string]any, len(node.Inputs))

		for name, value := range node.Inputs {
			if value.Ref != nil {
				inputs[name] = []any{value.Ref.NodeID, float64(value.Ref.Output)}

				continue
			}

			inputs[name] = value.Literal
		}

		raw[id] = RawNode{ClassType: node.ClassType, Inputs: inputs, HasInputs: true}
	}

	return raw
}

// RawNode is the shape-checked but otherwise untyped view of one node entry.
type RawNode struct {
	ClassType string
	Inputs    map[string]any
	HasInputs bool // distinguishes a missing "inputs" key from an empty one
}

// RawGraph is the untyped per-document view validators run against.
type RawGraph map[string]RawNode
