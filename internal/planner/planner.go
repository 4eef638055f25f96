// Package planner turns a natural-language financial question into an
// ordered plan of tool calls via an LLM, with strict parsing and a
// deterministic fallback when the model's output cannot be used.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"

	"github.com/finsightai/finsight/internal/dataflows"
	"github.com/finsightai/finsight/internal/llm"
	"github.com/finsightai/finsight/internal/models"
)

const systemPrompt = `You are a financial analysis planning expert. Your ONLY job is to create a plan.

AVAILABLE TOOLS:

1. get_quarterly_financials(ticker: str)
   Purpose: extract financial data from a company's latest 10-Q SEC filing
   Returns: revenue, net_income, operating_expenses, cost_of_revenue
   When to use: user asks about financials, revenue, income, profits, costs

2. find_competitors(ticker: str, limit: int)
   Purpose: find the main competitors for a company
   Returns: list of competitor tickers with names and market caps
   When to use: user asks about competitors, peers, rivals

3. get_top_companies(industry: str, n: int)
   Purpose: get top N companies in an industry ranked by market cap
   Returns: ranked list with tickers, names, market caps
   When to use: user asks for top/largest/biggest companies in a sector

4. research_ai_disruption(industry: str)
   Purpose: research how AI is disrupting an industry
   Returns: AI use cases, disruption analysis, examples
   When to use: user asks about AI impact, disruption, use cases

5. general_financial_research(query: str)
   Purpose: web research for any question the other tools cannot answer
   When to use: anything outside the four tools above

YOUR TASK:
1. Read the user's question
2. Figure out which tools to call and in what order
3. Output ONLY valid JSON (no markdown, no explanation, no preamble)

OUTPUT FORMAT:
{
  "reasoning": "Brief explanation of your approach",
  "steps": [
    {
      "tool_name": "name_of_tool",
      "parameters": {"param": "value"},
      "reason": "Why this step is needed"
    }
  ]
}

RULES:
- If the user asks about multiple companies, create separate steps for each
- Preserve logical order (e.g., get_top_companies BEFORE getting financials)
- Be specific with parameters (use exact ticker symbols when mentioned)
- Only use tools that are necessary
- If the query is ambiguous, make reasonable assumptions

Remember: output ONLY the JSON, nothing else.`

// planResponse is the interchange format the LLM must produce.
type planResponse struct {
	Reasoning string `json:"reasoning"`
	Steps     []struct {
		ToolName   string         `json:"tool_name"`
		Parameters map[string]any `json:"parameters"`
		Reason     string         `json:"reason"`
	} `json:"steps"`
}

// ParseError is a structured parse failure carrying the offending output,
// truncated for logs.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("plan parse error: %s", e.Reason)
}

// ParsePlan decodes the planner LLM's output into planned actions.
// Markdown code fences are tolerated; anything else non-conforming is a
// ParseError, never a panic.
func ParsePlan(raw string) ([]models.PlannedAction, string, error) {
	cleaned := dataflows.StripCodeFences(raw)

	var resp planResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, "", &ParseError{Reason: err.Error(), Raw: truncate(raw, 200)}
	}
	if len(resp.Steps) == 0 {
		return nil, "", &ParseError{Reason: "plan has no steps", Raw: truncate(raw, 200)}
	}

	plan := make([]models.PlannedAction, 0, len(resp.Steps))
	for _, step := range resp.Steps {
		if step.ToolName == "" {
			return nil, "", &ParseError{Reason: "step missing tool_name", Raw: truncate(raw, 200)}
		}
		params := step.Parameters
		if params == nil {
			params = map[string]any{}
		}
		plan = append(plan, models.PlannedAction{
			ActionName: step.ToolName,
			Parameters: params,
			Reason:     step.Reason,
		})
	}
	return plan, resp.Reasoning, nil
}

// FallbackPlan is the single-step recovery plan substituted when the LLM
// output cannot be parsed: route the raw query to general research.
func FallbackPlan(query string) ([]models.PlannedAction, string) {
	plan := []models.PlannedAction{{
		ActionName: "general_financial_research",
		Parameters: map[string]any{"query": query},
		Reason:     "Fallback: research the raw query directly",
	}}
	return plan, "Planner output was unusable; falling back to general research"
}

// Planner is the planning stage. It owns the LLM call and guarantees a
// usable plan comes back for every query.
type Planner struct {
	model model.BaseChatModel
}

// New creates a planner over a chat model.
func New(m model.BaseChatModel) *Planner {
	return &Planner{model: m}
}

// Plan produces the planning delta for a query. Every failure path lands
// on the fallback plan; Plan never returns an error.
func (p *Planner) Plan(ctx context.Context, state models.PipelineState) models.StateDelta {
	raw, err := llm.Complete(ctx, p.model, systemPrompt, state.Query)
	if err != nil {
		log.Printf("planner: LLM call failed: %v", err)
		return fallbackDelta(state.Query, fmt.Sprintf("Planner: LLM call failed (%v), using fallback plan", err))
	}

	plan, reasoning, err := ParsePlan(raw)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			log.Printf("planner: unparseable output: %s (raw: %s)", parseErr.Reason, parseErr.Raw)
		}
		return fallbackDelta(state.Query, fmt.Sprintf("Planner: unparseable plan (%v), using fallback plan", err))
	}

	return models.StateDelta{
		Plan:          plan,
		PlanReasoning: &reasoning,
		Log:           []string{fmt.Sprintf("Planner: created plan with %d step(s)", len(plan))},
	}
}

func fallbackDelta(query, logLine string) models.StateDelta {
	plan, reasoning := FallbackPlan(query)
	return models.StateDelta{
		Plan:          plan,
		PlanReasoning: &reasoning,
		Log:           []string{logLine, "Planner: substituted single-step fallback plan"},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
