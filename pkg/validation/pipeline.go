package validation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/genweave/genweave/pkg/graph"
)

// FeatureChecker cross-checks a graph against the engine's capability
// catalog. Implementations must degrade network failures to warnings; the
// offline passes never wait on them.
type FeatureChecker interface {
	CheckFeatureSupport(ctx context.Context, g graph.RawGraph) Result
	ValidateNodeInputs(ctx context.Context, g graph.RawGraph) Result
}

// Pipeline runs all validation passes in order: structure short-circuits,
// everything after it runs and accumulates even when an earlier semantic
// pass already failed.
type Pipeline struct {
	features    FeatureChecker
	checkInputs bool
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFeatureChecker enables the capability passes.
func WithFeatureChecker(fc FeatureChecker) Option {
	return func(p *Pipeline) { p.features = fc }
}

// WithInputChecks enables the deeper required-input pass on top of the
// class-type pass.
func WithInputChecks() Option {
	return func(p *Pipeline) { p.checkInputs = true }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline assembles a validation pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{logger: slog.With("module", "validation")}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Validate runs the full pipeline over a wire-format document.
func (p *Pipeline) Validate(ctx context.Context, data []byte) Result {
	raw, result := ValidateStructure(data)
	if !result.Valid() {
		p.logger.DebugContext(ctx, "structural validation failed", "errors", len(result.Errors))

		return result
	}

	return p.validateGraph(ctx, raw, result)
}

// ValidateGraph runs the semantic passes over an already-built graph.
func (p *Pipeline) ValidateGraph(ctx context.Context, g graph.Graph) Result {
	return p.validateGraph(ctx, g.Raw(), Result{})
}

func (p *Pipeline) validateGraph(ctx context.Context, raw graph.RawGraph, result Result) Result {
	result.Merge(ValidateConnections(raw))

	if p.features != nil {
		result.Merge(p.features.CheckFeatureSupport(ctx, raw))

		if p.checkInputs {
			result.Merge(p.features.ValidateNodeInputs(ctx, raw))
		}
	}

	result.Merge(SanityChecks(raw))

	p.logger.DebugContext(ctx, "validation finished",
		"errors", len(result.Errors),
		"warnings", len(result.Warnings))

	return result
}

// SanityChecks flags graphs that validate but cannot do useful work: no
// terminal node to persist a result, or no sampler to produce one.
func SanityChecks(g graph.RawGraph) Result {
	var result Result

	hasOutput := false
	hasSampler := false

	for _, node := range g {
		if isTerminalClass(node.ClassType) {
			hasOutput = true
		}

		if strings.Contains(node.ClassType, "Sampler") {
			hasSampler = true
		}
	}

	if !hasOutput {
		result.AddWarning(Issue{
			Code:     CodeNoOutputNode,
			Message:  "workflow has no output node; nothing will be saved",
			Severity: SeverityMedium,
		})
	}

	if !hasSampler {
		result.AddWarning(Issue{
			Code:     CodeNoSamplerNode,
			Message:  "workflow has no sampler node; no generation will run",
			Severity: SeverityLow,
		})
	}

	return result
}

// Summary renders a short human-readable digest for logs and CLI output.
func Summary(result Result) string {
	return fmt.Sprintf("%d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
}
