// Package executor routes planned actions to their handlers and runs a
// plan step by step, isolating every failure to its own result.
package executor

import "strings"

// ActionKind is the closed set of actions the executor understands. Plans
// arrive with string tool names; ParseActionKind maps them onto this enum,
// with ActionUnknown as the explicit unrecognized variant.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionQuarterlyFinancials
	ActionFindCompetitors
	ActionTopCompanies
	ActionAIDisruption
	ActionGeneralResearch
)

// actionNames holds the wire names in their canonical listing order.
var actionNames = []struct {
	kind ActionKind
	name string
}{
	{ActionQuarterlyFinancials, "get_quarterly_financials"},
	{ActionFindCompetitors, "find_competitors"},
	{ActionTopCompanies, "get_top_companies"},
	{ActionAIDisruption, "research_ai_disruption"},
	{ActionGeneralResearch, "general_financial_research"},
}

// requiredParams lists the parameters an action cannot run without. An
// absent or empty-string value counts as missing.
var requiredParams = map[ActionKind][]string{
	ActionQuarterlyFinancials: {"ticker"},
	ActionFindCompetitors:     {"ticker"},
	ActionTopCompanies:        {"industry"},
	ActionAIDisruption:        {"industry"},
	ActionGeneralResearch:     {"query"},
}

// ParseActionKind maps a tool name from a plan onto the action enum.
func ParseActionKind(name string) ActionKind {
	for _, entry := range actionNames {
		if entry.name == name {
			return entry.kind
		}
	}
	return ActionUnknown
}

// String returns the wire name of the action.
func (k ActionKind) String() string {
	for _, entry := range actionNames {
		if entry.kind == k {
			return entry.name
		}
	}
	return "unknown"
}

// KnownActionNames lists every recognized tool name in canonical order,
// for the unknown-tool error message.
func KnownActionNames() []string {
	names := make([]string, 0, len(actionNames))
	for _, entry := range actionNames {
		names = append(names, entry.name)
	}
	return names
}

// AvailableActionList renders the known names as one comma-separated string.
func AvailableActionList() string {
	return strings.Join(KnownActionNames(), ", ")
}
