package capability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/genweave/genweave/pkg/graph"
	"github.com/genweave/genweave/pkg/validation"
)

// legacyRenames maps node class types removed from the engine to their
// current names. Checked before any fuzzy matching.
var legacyRenames = map[string]string{
	"SDV_img2vid_Conditioning": "SVD_img2vid_Conditioning",
	"SaveAnimatedWebp":         "SaveAnimatedWEBP",
	"TiledVAEDecode":           "VAEDecodeTiled",
	"ModelSamplingAdvanced":    "ModelSamplingDiscrete",
}

// Checker implements the capability validation passes on top of the cached
// catalog.
type Checker struct {
	cache  *Cache
	logger *slog.Logger
}

// NewChecker creates a checker over a catalog cache.
func NewChecker(cache *Cache) *Checker {
	return &Checker{
		cache:  cache,
		logger: slog.With("module", "capability"),
	}
}

// CheckFeatureSupport verifies every node's class type exists in the
// engine's catalog, attaching a best-effort rename suggestion to each
// unknown type. An unreachable catalog degrades to a warning: absent live
// schema data never makes an otherwise well-formed graph unsubmittable.
func (c *Checker) CheckFeatureSupport(ctx context.Context, g graph.RawGraph) validation.Result {
	var result validation.Result

	catalog, err := c.cache.Get(ctx)
	if catalog == nil {
		result.AddWarning(validation.Issue{
			Code:     validation.CodeCannotCheckFeatures,
			Message:  "engine capability catalog unavailable; feature support not checked",
			Severity: validation.SeverityLow,
		})

		return result
	}

	if err != nil {
		result.AddWarning(validation.Issue{
			Code:     validation.CodeFeatureCheckFailed,
			Message:  "capability catalog refresh failed; checking against stale data",
			Severity: validation.SeverityLow,
		})
	}

	for _, id := range sortedIDs(g) {
		classType := g[id].ClassType
		if _, known := catalog[classType]; known {
			continue
		}

		result.AddError(validation.Issue{
			Code:       validation.CodeMissingNodeType,
			Message:    fmt.Sprintf("node %q uses unknown class type %q", id, classType),
			NodeID:     id,
			Field:      "class_type",
			Suggestion: Suggest(catalog, classType),
		})
	}

	return result
}

// ValidateNodeInputs is the deeper optional pass: for every node with a
// known class type, each declared required input missing from the node is
// reported — as a medium warning when the input is a connection (it may be
// wired implicitly by the engine) and as an error when it is a value.
func (c *Checker) ValidateNodeInputs(ctx context.Context, g graph.RawGraph) validation.Result {
	var result validation.Result

	// CheckFeatureSupport already surfaced any cache condition.
	catalog, _ := c.cache.Get(ctx)
	if catalog == nil {
		return result
	}

	for _, id := range sortedIDs(g) {
		node := g[id]

		class, known := catalog[node.ClassType]
		if !known {
			continue
		}

		for _, name := range sortedInputNames(class.Required) {
			if _, present := node.Inputs[name]; present {
				continue
			}

			if class.Required[name].IsConnection() {
				result.AddWarning(validation.Issue{
					Code:     validation.CodeUnconnectedInput,
					Message:  fmt.Sprintf("node %q (%s) has no connection for required input %q", id, node.ClassType, name),
					NodeID:   id,
					Field:    name,
					Severity: validation.SeverityMedium,
				})

				continue
			}

			result.AddError(validation.Issue{
				Code:    validation.CodeMissingRequiredInput,
				Message: fmt.Sprintf("node %q (%s) is missing required input %q", id, node.ClassType, name),
				NodeID:  id,
				Field:   name,
			})
		}
	}

	return result
}

// Suggest picks a replacement for an unknown class type: the legacy rename
// table first, then the closest catalog name by edit distance, preferring
// names related to the query by substring. Empty when nothing plausible
// exists.
func Suggest(catalog Catalog, classType string) string {
	if renamed, ok := legacyRenames[classType]; ok {
		if _, known := catalog[renamed]; known {
			return renamed
		}
	}

	lower := strings.ToLower(classType)

	var related []string

	all := make([]string, 0, len(catalog))

	for name := range catalog {
		all = append(all, name)

		lowerName := strings.ToLower(name)
		if strings.Contains(lowerName, lower) || strings.Contains(lower, lowerName) {
			related = append(related, name)
		}
	}

	candidates := related
	if len(candidates) == 0 {
		candidates = all
	}

	sort.Strings(candidates)

	best := ""
	bestDistance := -1

	for _, name := range candidates {
		distance := levenshtein.Distance(classType, name, nil)
		if bestDistance == -1 || distance < bestDistance {
			best = name
			bestDistance = distance
		}
	}

	// A distant non-substring match is noise, not a suggestion.
	if len(related) == 0 && bestDistance > len(classType)/2 {
		return ""
	}

	return best
}

func sortedIDs(g graph.RawGraph) []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func sortedInputNames(specs map[string]TypeSpec) []string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
