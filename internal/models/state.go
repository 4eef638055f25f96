// Package models defines the shared pipeline state that flows through
// Planner -> Executor -> Reporter, plus the action and result records that
// every stage reads and appends to.
package models

import (
	"time"
)

// PlannedAction is one step of a plan produced by the planner. It is
// immutable once created.
type PlannedAction struct {
	ActionName string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	Reason     string         `json:"reason"`
}

// ActionResult is the outcome of one planned action, with full provenance
// metadata. Success and Error are mutually exclusive: a successful result
// carries no error text, a failed result carries no data.
type ActionResult struct {
	ActionName     string         `json:"tool_name"`
	Parameters     map[string]any `json:"parameters"`
	Data           any            `json:"data"`
	Source         string         `json:"source"`
	Timestamp      string         `json:"timestamp"`
	Confidence     float64        `json:"confidence"`
	Success        bool           `json:"success"`
	Error          string         `json:"error,omitempty"`
	SourceUsed     string         `json:"source_used,omitempty"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
}

// NewSuccessResult builds a successful result stamped with the current time.
func NewSuccessResult(name string, params map[string]any, data any, source string, confidence float64) ActionResult {
	return ActionResult{
		ActionName: name,
		Parameters: params,
		Data:       data,
		Source:     source,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Confidence: confidence,
		Success:    true,
	}
}

// NewErrorResult builds a failed result. Data stays nil and confidence is
// pinned to zero.
func NewErrorResult(name string, params map[string]any, source, errMsg string) ActionResult {
	return ActionResult{
		ActionName: name,
		Parameters: params,
		Source:     source,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Confidence: 0.0,
		Success:    false,
		Error:      errMsg,
	}
}

// PipelineState is the complete memory of one query. It is created once per
// query, owned by the orchestrator, and advanced by applying stage deltas.
type PipelineState struct {
	// Input
	Query string `json:"query"`

	// Planning
	Plan          []PlannedAction `json:"plan"`
	PlanReasoning string          `json:"plan_reasoning"`

	// Execution
	Results      []ActionResult `json:"tool_results"`
	ExecutionLog []string       `json:"execution_log"`

	// Validation. NeedsRetry and RetryCount are carried for schema
	// compatibility; no stage currently reads or increments them.
	OverallConfidence float64 `json:"overall_confidence"`
	NeedsRetry        bool    `json:"needs_retry"`
	RetryCount        int     `json:"retry_count"`

	// Output
	Answer     string         `json:"answer"`
	AuditTrail map[string]any `json:"audit_trail"`

	// Telemetry
	StartTime      string  `json:"start_time"`
	TotalLatencyMS float64 `json:"total_latency_ms"`
}

// NewPipelineState creates fresh state for a new query.
func NewPipelineState(query string) PipelineState {
	return PipelineState{
		Query:        query,
		Plan:         []PlannedAction{},
		Results:      []ActionResult{},
		ExecutionLog: []string{},
		AuditTrail:   map[string]any{},
		StartTime:    time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// StateDelta is the partial update a stage returns. Stages never mutate the
// state they receive; the orchestrator merges deltas with Apply so each
// stage can be tested in isolation and replayed.
type StateDelta struct {
	Plan              []PlannedAction
	PlanReasoning     *string
	Results           []ActionResult
	Log               []string
	OverallConfidence *float64
	Answer            *string
	AuditTrail        map[string]any
	TotalLatencyMS    *float64
}

// Apply merges a delta into a copy of the state and returns the copy.
// Slices are appended, never aliased, so a retained delta cannot corrupt
// the running state.
func (s PipelineState) Apply(d StateDelta) PipelineState {
	next := s

	next.Plan = append(append([]PlannedAction{}, s.Plan...), d.Plan...)
	next.Results = append(append([]ActionResult{}, s.Results...), d.Results...)
	next.ExecutionLog = append(append([]string{}, s.ExecutionLog...), d.Log...)

	if d.PlanReasoning != nil {
		next.PlanReasoning = *d.PlanReasoning
	}
	if d.OverallConfidence != nil {
		next.OverallConfidence = *d.OverallConfidence
	}
	if d.Answer != nil {
		next.Answer = *d.Answer
	}
	if d.TotalLatencyMS != nil {
		next.TotalLatencyMS = *d.TotalLatencyMS
	}
	if d.AuditTrail != nil {
		trail := make(map[string]any, len(s.AuditTrail)+len(d.AuditTrail))
		for k, v := range s.AuditTrail {
			trail[k] = v
		}
		for k, v := range d.AuditTrail {
			trail[k] = v
		}
		next.AuditTrail = trail
	}

	return next
}

// StringParam extracts a string parameter by key. Missing keys and
// non-string values come back empty.
func StringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// IntParam extracts an integer parameter, accepting the float64 values that
// JSON decoding produces. Returns fallback when absent or unusable.
func IntParam(params map[string]any, key string, fallback int) int {
	if params == nil {
		return fallback
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}
