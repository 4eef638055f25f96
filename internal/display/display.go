// Package display renders pipeline reports for the terminal with lipgloss.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/finsightai/finsight/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	answerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(1, 2).
		Width(80)

	metaStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	failStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B"))
)

// Banner prints the startup banner.
func Banner() {
	banner := titleStyle.Render("FinSight — AI-powered financial analysis")
	fmt.Println(banner)
	fmt.Println(metaStyle.Render("Ask about financials, competitors, sectors, and AI disruption"))
	fmt.Println()
}

// Report renders the final state of one query: the answer panel followed by
// a per-step status line and the confidence summary.
func Report(state models.PipelineState) string {
	var b strings.Builder

	b.WriteString(answerStyle.Render(state.Answer))
	b.WriteString("\n\n")

	for i, res := range state.Results {
		line := fmt.Sprintf("  %d. %s", i+1, res.ActionName)
		if res.Success {
			line += successStyle.Render(" ok")
			if res.SourceUsed != "" {
				line += metaStyle.Render(fmt.Sprintf(" via %s", res.SourceUsed))
			}
			if res.FallbackReason != "" {
				line += warnStyle.Render(" (fallback)")
			}
		} else {
			line += failStyle.Render(" failed")
		}
		b.WriteString(line + "\n")
	}

	confStyle := successStyle
	if state.OverallConfidence < 0.5 {
		confStyle = warnStyle
	}
	b.WriteString(fmt.Sprintf("\n%s %s\n",
		metaStyle.Render("Overall confidence:"),
		confStyle.Render(fmt.Sprintf("%.0f%%", state.OverallConfidence*100)),
	))
	b.WriteString(metaStyle.Render(fmt.Sprintf("Completed in %.0f ms", state.TotalLatencyMS)))
	b.WriteString("\n")

	return b.String()
}

// ExecutionLog renders the execution log for debug output.
func ExecutionLog(state models.PipelineState) string {
	var b strings.Builder
	b.WriteString(metaStyle.Render("Execution log:"))
	b.WriteString("\n")
	for _, line := range state.ExecutionLog {
		b.WriteString(metaStyle.Render("  " + line))
		b.WriteString("\n")
	}
	return b.String()
}
