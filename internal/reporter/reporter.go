// Package reporter is the final pipeline stage: it aggregates execution
// results into a confidence score, a human-readable answer, and a complete
// audit trail. It degrades to placeholders instead of failing.
package reporter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finsightai/finsight/internal/models"
)

// Reporter composes the report delta from executed state.
type Reporter struct {
	now func() time.Time
}

// New creates a reporter stamped by the wall clock.
func New() *Reporter {
	return &Reporter{now: time.Now}
}

// Report builds the final answer, overall confidence, latency, and audit
// trail. It never returns an error: malformed inputs degrade to zeroes and
// placeholder text so the pipeline always produces a report.
func (r *Reporter) Report(state models.PipelineState) models.StateDelta {
	confidence := overallConfidence(state.Results)
	latency := r.latencyMS(state.StartTime)
	answer := composeAnswer(state)

	numSuccess := 0
	for _, res := range state.Results {
		if res.Success {
			numSuccess++
		}
	}

	trail := map[string]any{
		"audit_id":      uuid.NewString(),
		"query":         state.Query,
		"plan":          state.Plan,
		"results":       state.Results,
		"execution_log": state.ExecutionLog,
		"metrics": map[string]any{
			"num_tools_called":   len(state.Results),
			"num_success":        numSuccess,
			"num_failed":         len(state.Results) - numSuccess,
			"overall_confidence": confidence,
			"total_latency_ms":   latency,
			"retry_count":        state.RetryCount,
		},
	}

	return models.StateDelta{
		OverallConfidence: &confidence,
		Answer:            &answer,
		AuditTrail:        trail,
		TotalLatencyMS:    &latency,
		Log: []string{fmt.Sprintf(
			"Reporter: %d/%d steps succeeded, overall confidence %.0f%%",
			numSuccess, len(state.Results), confidence*100,
		)},
	}
}

// overallConfidence is the arithmetic mean of confidence over successful
// results only. No successes means 0.0.
func overallConfidence(results []models.ActionResult) float64 {
	var sum float64
	var n int
	for _, res := range results {
		if res.Success {
			sum += res.Confidence
			n++
		}
	}
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// latencyMS measures wall time since the pipeline's start timestamp. An
// unparsable start time yields 0 rather than an error.
func (r *Reporter) latencyMS(startTime string) float64 {
	if startTime == "" {
		return 0
	}
	start, err := time.Parse(time.RFC3339Nano, startTime)
	if err != nil {
		start, err = time.Parse(time.RFC3339, startTime)
	}
	if err != nil {
		return 0
	}
	elapsed := r.now().Sub(start)
	if elapsed < 0 {
		return 0
	}
	return float64(elapsed) / float64(time.Millisecond)
}

// composeAnswer renders one section per result, in plan order, with
// failures reported inline.
func composeAnswer(state models.PipelineState) string {
	if len(state.Results) == 0 {
		return "No results were produced for this query. Please try rephrasing your question."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analysis for: %s\n", state.Query)

	for i, res := range state.Results {
		b.WriteString("\n")
		fmt.Fprintf(&b, "## Step %d: %s\n", i+1, res.ActionName)
		if !res.Success {
			fmt.Fprintf(&b, "This step failed: %s\n", res.Error)
			continue
		}
		fmt.Fprintf(&b, "Source: %s (confidence: %.0f%%)\n", displaySource(res), res.Confidence*100)
		b.WriteString(renderData(res.Data))
	}

	return b.String()
}

func displaySource(res models.ActionResult) string {
	if res.SourceUsed != "" {
		return res.SourceUsed
	}
	return res.Source
}

// renderData flattens tool payloads into readable lines. Tool payloads are
// maps or lists of maps; anything else falls through fmt.
func renderData(data any) string {
	switch v := data.(type) {
	case nil:
		return "(no data)\n"
	case string:
		return v + "\n"
	case map[string]any:
		return renderMap(v, "")
	case []any:
		var b strings.Builder
		for i, item := range v {
			fmt.Fprintf(&b, "%d. %s", i+1, renderData(item))
		}
		return b.String()
	default:
		return fmt.Sprintf("%v\n", v)
	}
}

func renderMap(m map[string]any, indent string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		switch val := m[k].(type) {
		case map[string]any:
			fmt.Fprintf(&b, "%s%s:\n%s", indent, k, renderMap(val, indent+"  "))
		case []any:
			fmt.Fprintf(&b, "%s%s:\n", indent, k)
			for i, item := range val {
				if im, ok := item.(map[string]any); ok {
					fmt.Fprintf(&b, "%s  %d.\n%s", indent, i+1, renderMap(im, indent+"    "))
				} else {
					fmt.Fprintf(&b, "%s  - %v\n", indent, item)
				}
			}
		default:
			fmt.Fprintf(&b, "%s%s: %v\n", indent, k, val)
		}
	}
	return b.String()
}
