package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/genweave/genweave/pkg/graph"
)

// Video-combine classes that are terminal but carry no Save/Preview/Output
// marker in their name.
var terminalClasses = map[string]bool{
	"VHS_VideoCombine": true,
	"CreateVideo":      true,
}

// ValidateConnections checks referential integrity of a structurally valid
// graph: every connection's source id must be a key of the graph, every
// output index a non-negative integer, and the connection relation must be
// acyclic. Only the first discovered cycle is reported; later disjoint
// cycles surface once the first is fixed.
func ValidateConnections(g graph.RawGraph) Result {
	var result Result

	ids := sortedIDs(g)

	// Reference integrity, plus the edge relation and reverse-reference
	// counts for the passes below.
	edges := make(map[string][]string, len(g))
	referenced := make(map[string]bool, len(g))

	for _, id := range ids {
		node := g[id]

		names := make([]string, 0, len(node.Inputs))
		for name := range node.Inputs {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			source, index, ok := connectionValue(node.Inputs[name])
			if !ok {
				continue
			}

			if _, exists := g[source]; !exists {
				result.AddError(Issue{
					Code:    CodeMissingSourceNode,
					Message: fmt.Sprintf("node %q input %q references missing node %q", id, name, source),
					NodeID:  id,
					Field:   name,
				})
			} else {
				edges[id] = append(edges[id], source)
				referenced[source] = true
			}

			if index < 0 || index != float64(int(index)) {
				result.AddError(Issue{
					Code:    CodeInvalidOutputIndex,
					Message: fmt.Sprintf("node %q input %q has invalid output index %v", id, name, index),
					NodeID:  id,
					Field:   name,
				})
			}
		}
	}

	if nodeID, found := findCycle(ids, edges); found {
		result.AddError(Issue{
			Code:    CodeCycleDetected,
			Message: fmt.Sprintf("workflow contains a connection cycle involving node %q", nodeID),
			NodeID:  nodeID,
		})
	}

	for _, id := range ids {
		node := g[id]

		if referenced[id] || isTerminalClass(node.ClassType) || len(node.Inputs) > 0 {
			continue
		}

		result.AddWarning(Issue{
			Code:     CodeDisconnectedNode,
			Message:  fmt.Sprintf("node %q (%s) is not connected to anything", id, node.ClassType),
			NodeID:   id,
			Severity: SeverityMedium,
		})
	}

	return result
}

// connectionValue interprets a decoded input value as a connection. Any
// 2-element array whose first element is a string is a connection; the
// returned index is -1 when the second element is not a number so the
// caller reports it as invalid.
func connectionValue(value any) (string, float64, bool) {
	arr, ok := value.([]any)
	if !ok || len(arr) != 2 {
		return "", 0, false
	}

	source, ok := arr[0].(string)
	if !ok {
		return "", 0, false
	}

	index, ok := arr[1].(float64)
	if !ok {
		return source, -1, true
	}

	return source, index, true
}

// findCycle runs DFS with an explicit recursion stack over every node and
// returns the node on the first back edge found.
func findCycle(ids []string, edges map[string][]string) (string, bool) {
	visited := make(map[string]bool, len(ids))
	onStack := make(map[string]bool, len(ids))

	var visit func(id string) (string, bool)
	visit = func(id string) (string, bool) {
		visited[id] = true
		onStack[id] = true

		for _, next := range edges[id] {
			if onStack[next] {
				return next, true
			}

			if visited[next] {
				continue
			}

			if nodeID, found := visit(next); found {
				return nodeID, found
			}
		}

		onStack[id] = false

		return "", false
	}

	for _, id := range ids {
		if visited[id] {
			continue
		}

		if nodeID, found := visit(id); found {
			return nodeID, true
		}
	}

	return "", false
}

func isTerminalClass(classType string) bool {
	if terminalClasses[classType] {
		return true
	}

	return strings.Contains(classType, "Save") ||
		strings.Contains(classType, "Preview") ||
		strings.Contains(classType, "Output")
}

func sortedIDs(g graph.RawGraph) []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
