// Package capability mirrors the engine's live node schema: which node
// classes exist, what inputs they require, and what they emit. The catalog
// is fetched over HTTP, cached with a short TTL, and consulted by the
// feature-support validation pass.
package capability

import (
	"encoding/json"
	"fmt"
)

// Connection type names the engine uses for node-to-node resources, as
// opposed to literal value types. Fixed, enumerable set.
var connectionTypes = map[string]bool{
	"MODEL":              true,
	"CLIP":               true,
	"VAE":                true,
	"CONDITIONING":       true,
	"LATENT":             true,
	"IMAGE":              true,
	"MASK":               true,
	"AUDIO":              true,
	"NOISE":              true,
	"GUIDER":             true,
	"SAMPLER":            true,
	"SIGMAS":             true,
	"CLIP_VISION":        true,
	"CLIP_VISION_OUTPUT": true,
	"CONTROL_NET":        true,
	"UPSCALE_MODEL":      true,
	"STYLE_MODEL":        true,
	"VIDEO":              true,
}

// TypeSpec describes one declared input: either a named type (connection or
// scalar) or an enumerated option list, with optional numeric bounds.
type TypeSpec struct {
	Type    string
	Options []string
	Min     *float64
	Max     *float64
}

// IsConnection reports whether the input expects a wired resource rather
// than a literal value.
func (t TypeSpec) IsConnection() bool {
	return connectionTypes[t.Type]
}

// UnmarshalJSON decodes the engine's declaration shape: either
// ["TYPE", {config...}] or [["option", ...], {config...}], with the config
// element optional.
func (t *TypeSpec) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid input declaration: %w", err)
	}

	if len(parts) == 0 {
		return nil
	}

	var typeName string
	if err := json.Unmarshal(parts[0], &typeName); err == nil {
		t.Type = typeName
	} else {
		var options []string
		if err := json.Unmarshal(parts[0], &options); err != nil {
			// Unrecognized declaration head; treat as untyped.
			return nil
		}

		t.Options = options
	}

	if len(parts) < 2 {
		return nil
	}

	var config struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	}
	if err := json.Unmarshal(parts[1], &config); err == nil {
		t.Min = config.Min
		t.Max = config.Max
	}

	return nil
}

// NodeClass is the catalog entry for one node class type.
type NodeClass struct {
	Required   map[string]TypeSpec
	Optional   map[string]TypeSpec
	Outputs    []string
	OutputNode bool
}

// Catalog maps class types to their declarations. Treated as immutable once
// parsed; the cache replaces whole values, never mutates them.
type Catalog map[string]NodeClass

// ParseCatalog decodes the engine's object-info document.
func ParseCatalog(data []byte) (Catalog, error) {
	var doc map[string]struct {
		Input struct {
			Required map[string]TypeSpec `json:"required"`
			Optional map[string]TypeSpec `json:"optional"`
		} `json:"input"`
		Output     []string `json:"output"`
		OutputNode bool     `json:"output_node"`
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse capability catalog: %w", err)
	}

	catalog := make(Catalog, len(doc))
	for classType, entry := range doc {
		catalog[classType] = NodeClass{
			Required:   entry.Input.Required,
			Optional:   entry.Input.Optional,
			Outputs:    entry.Output,
			OutputNode: entry.OutputNode,
		}
	}

	return catalog, nil
}
