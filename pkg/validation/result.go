// Package validation checks workflow graphs for structural correctness,
// referential integrity, absence of cycles, and conformance to the engine's
// capability catalog. Issues never panic and never block each other: every
// pass after the structural one runs and accumulates into one result.
package validation

// Severity grades warnings only; errors are always blocking.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Stable issue codes surfaced to callers. Codes are part of the API: the UI
// layer keys display logic off them.
const (
	CodeInvalidPromptType    = "invalid_prompt_type"
	CodeEmptyPrompt          = "empty_prompt"
	CodeMissingClassType     = "missing_class_type"
	CodeInvalidInputsType    = "invalid_inputs_type"
	CodeMissingInputs        = "missing_inputs"
	CodeMissingSourceNode    = "missing_source_node"
	CodeInvalidOutputIndex   = "invalid_output_index"
	CodeCycleDetected        = "cycle_detected"
	CodeDisconnectedNode     = "disconnected_node"
	CodeMissingNodeType      = "missing_node_type"
	CodeUnconnectedInput     = "unconnected_input"
	CodeMissingRequiredInput = "missing_required_input"
	CodeFeatureCheckFailed   = "feature_check_failed"
	CodeCannotCheckFeatures  = "cannot_check_features"
	CodeNoOutputNode         = "no_output_node"
	CodeNoSamplerNode        = "no_sampler_node"
)

// Issue is one validation finding, error or warning.
type Issue struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Field      string   `json:"field,omitempty"`
	NodeID     string   `json:"node_id,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Severity   Severity `json:"severity,omitempty"` // warnings only
}

// Result accumulates the findings of one or more passes.
type Result struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether the graph may be submitted: warnings never block.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// AddError appends a blocking issue.
func (r *Result) AddError(issue Issue) {
	issue.Severity = ""
	r.Errors = append(r.Errors, issue)
}

// AddWarning appends a non-blocking issue.
func (r *Result) AddWarning(issue Issue) {
	if issue.Severity == "" {
		issue.Severity = SeverityLow
	}

	r.Warnings = append(r.Warnings, issue)
}

// Merge folds another result into this one.
func (r *Result) Merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}
