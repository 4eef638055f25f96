package planner

import (
	"strings"
	"testing"
)

func TestParsePlanPlainJSON(t *testing.T) {
	raw := `{
		"reasoning": "Apple financials need the latest 10-Q",
		"steps": [
			{"tool_name": "get_quarterly_financials", "parameters": {"ticker": "AAPL"}, "reason": "Get revenue"}
		]
	}`

	plan, reasoning, err := ParsePlan(raw)
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if reasoning != "Apple financials need the latest 10-Q" {
		t.Fatalf("reasoning = %q", reasoning)
	}
	if len(plan) != 1 {
		t.Fatalf("expected 1 step, got %d", len(plan))
	}
	if plan[0].ActionName != "get_quarterly_financials" {
		t.Fatalf("action name = %q", plan[0].ActionName)
	}
	if plan[0].Parameters["ticker"] != "AAPL" {
		t.Fatalf("parameters = %v", plan[0].Parameters)
	}
}

func TestParsePlanStripsCodeFences(t *testing.T) {
	raw := "```json\n" + `{"reasoning": "r", "steps": [{"tool_name": "find_competitors", "parameters": {"ticker": "NVDA"}, "reason": "peers"}]}` + "\n```"

	plan, _, err := ParsePlan(raw)
	if err != nil {
		t.Fatalf("fenced JSON should parse: %v", err)
	}
	if plan[0].ActionName != "find_competitors" {
		t.Fatalf("action name = %q", plan[0].ActionName)
	}
}

func TestParsePlanMalformed(t *testing.T) {
	cases := []string{
		"I think you should call get_quarterly_financials for AAPL.",
		`{"reasoning": "r", "steps": []}`,
		`{"reasoning": "r"}`,
		`{"reasoning": "r", "steps": [{"parameters": {"ticker": "AAPL"}}]}`,
	}
	for _, raw := range cases {
		_, _, err := ParsePlan(raw)
		if err == nil {
			t.Fatalf("expected parse error for %q", raw)
		}
		if _, ok := err.(*ParseError); !ok {
			t.Fatalf("error should be a ParseError, got %T", err)
		}
	}
}

func TestParsePlanNilParametersBecomeEmptyMap(t *testing.T) {
	raw := `{"reasoning": "r", "steps": [{"tool_name": "general_financial_research", "reason": "fallback"}]}`

	plan, _, err := ParsePlan(raw)
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if plan[0].Parameters == nil {
		t.Fatal("parameters should never be nil")
	}
}

func TestParseErrorTruncatesRaw(t *testing.T) {
	raw := strings.Repeat("x", 500)
	_, _, err := ParsePlan(raw)
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected ParseError, got %T", err)
	}
	if len(pe.Raw) > 210 {
		t.Fatalf("raw output not truncated: %d bytes", len(pe.Raw))
	}
}

func TestFallbackPlan(t *testing.T) {
	plan, reasoning := FallbackPlan("what is the outlook for semiconductors?")

	if len(plan) != 1 {
		t.Fatalf("fallback should be a single step, got %d", len(plan))
	}
	if plan[0].ActionName != "general_financial_research" {
		t.Fatalf("fallback action = %q", plan[0].ActionName)
	}
	if plan[0].Parameters["query"] != "what is the outlook for semiconductors?" {
		t.Fatalf("fallback should carry the raw query: %v", plan[0].Parameters)
	}
	if reasoning == "" {
		t.Fatal("fallback reasoning should explain the substitution")
	}
}
