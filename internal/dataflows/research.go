package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/go-resty/resty/v2"

	"github.com/finsightai/finsight/internal/llm"
	"github.com/finsightai/finsight/internal/models"
)

// TavilyClient performs web searches through the Tavily API, the search
// tier behind the two research capabilities. Confidence here is 0.7:
// synthesized web content, not a structured source.
type TavilyClient struct {
	client *resty.Client
	apiKey string
}

// NewTavilyClient creates a Tavily search client.
func NewTavilyClient(apiKey string) *TavilyClient {
	client := resty.New()
	client.SetBaseURL("https://api.tavily.com")
	client.SetTimeout(attemptTimeout)

	return &TavilyClient{client: client, apiKey: apiKey}
}

// SearchResult is one hit returned by Tavily.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type tavilyResponse struct {
	Results []SearchResult `json:"results"`
}

// Search runs an advanced-depth web search.
func (tc *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if tc.apiKey == "" {
		return nil, fmt.Errorf("%w: TAVILY_API_KEY not set", ErrNotConfigured)
	}

	var out tavilyResponse
	resp, err := tc.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"api_key":      tc.apiKey,
			"query":        query,
			"search_depth": "advanced",
			"max_results":  maxResults,
		}).
		SetResult(&out).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	if resp.StatusCode() == 429 {
		return nil, fmt.Errorf("%w: tavily returned 429", ErrRateLimited)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("tavily returned %d", resp.StatusCode())
	}
	if len(out.Results) == 0 {
		return nil, fmt.Errorf("%w: web search found nothing for %q", ErrNoData, query)
	}
	return out.Results, nil
}

// aiDisruptionProvider researches how AI is reshaping an industry: web
// search, then structured LLM synthesis.
type aiDisruptionProvider struct {
	tavily *TavilyClient
	model  model.BaseChatModel
}

// NewAIDisruptionProvider builds the AI-disruption research provider.
func NewAIDisruptionProvider(tavily *TavilyClient, m model.BaseChatModel) Provider {
	return &aiDisruptionProvider{tavily: tavily, model: m}
}

func (p *aiDisruptionProvider) Name() string        { return "web_research" }
func (p *aiDisruptionProvider) Confidence() float64 { return 0.7 }

const disruptionSystemPrompt = `You are a technology analyst. Based only on the provided search results, produce a JSON object with exactly these fields:
{
  "summary": "2-3 sentence overview of how AI is disrupting the industry",
  "use_cases": ["specific AI application", ...],
  "examples": ["company or project applying AI in this industry", ...]
}
Output ONLY the JSON, nothing else.`

func (p *aiDisruptionProvider) Fetch(ctx context.Context, params map[string]any) (any, string, error) {
	industry := strings.TrimSpace(models.StringParam(params, "industry"))
	if industry == "" {
		return nil, "", fmt.Errorf("industry cannot be empty")
	}

	results, err := p.tavily.Search(ctx, fmt.Sprintf("how AI is disrupting the %s industry use cases 2025", industry), 5)
	if err != nil {
		return nil, "", err
	}

	analysis, err := synthesizeJSON(ctx, p.model, disruptionSystemPrompt, industry, results)
	if err != nil {
		return nil, "", err
	}

	analysis["industry"] = industry
	analysis["sources"] = sourceList(results)
	source := fmt.Sprintf("Web research + LLM synthesis (%d sources)", len(results))
	return analysis, source, nil
}

// generalResearchProvider is the catch-all: web search plus free-form LLM
// synthesis for queries outside the structured capabilities.
type generalResearchProvider struct {
	tavily *TavilyClient
	model  model.BaseChatModel
}

// NewGeneralResearchProvider builds the fallback research provider.
func NewGeneralResearchProvider(tavily *TavilyClient, m model.BaseChatModel) Provider {
	return &generalResearchProvider{tavily: tavily, model: m}
}

func (p *generalResearchProvider) Name() string        { return "web_research" }
func (p *generalResearchProvider) Confidence() float64 { return 0.7 }

const generalSystemPrompt = `You are a financial research assistant. Answer the question concisely and factually based only on the provided search results. Cite which sources you used. If the results are contradictory or unclear, say so.`

func (p *generalResearchProvider) Fetch(ctx context.Context, params map[string]any) (any, string, error) {
	query := strings.TrimSpace(models.StringParam(params, "query"))
	if query == "" {
		return nil, "", fmt.Errorf("query cannot be empty")
	}

	results, err := p.tavily.Search(ctx, query, 5)
	if err != nil {
		return nil, "", err
	}

	var contexts []string
	for _, r := range results {
		contexts = append(contexts, r.Content)
	}
	prompt := fmt.Sprintf("Question: %s\n\nSearch Results:\n%s", query, strings.Join(contexts, "\n\n"))

	answer, err := llm.Complete(ctx, p.model, generalSystemPrompt, prompt)
	if err != nil {
		return nil, "", err
	}

	data := map[string]any{
		"answer":       answer,
		"sources":      sourceList(results),
		"search_query": query,
	}
	return data, "Web Search + LLM Synthesis", nil
}

// synthesizeJSON asks the model for a JSON object over the search corpus
// and decodes it, tolerating markdown code fences.
func synthesizeJSON(ctx context.Context, m model.BaseChatModel, system, topic string, results []SearchResult) (map[string]any, error) {
	var contexts []string
	for _, r := range results {
		contexts = append(contexts, fmt.Sprintf("%s\n%s", r.Title, r.Content))
	}
	prompt := fmt.Sprintf("Industry: %s\n\nSearch Results:\n%s", topic, strings.Join(contexts, "\n\n"))

	raw, err := llm.Complete(ctx, m, system, prompt)
	if err != nil {
		return nil, err
	}

	var analysis map[string]any
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &analysis); err != nil {
		log.Printf("research: synthesis was not valid JSON, wrapping as summary")
		analysis = map[string]any{"summary": raw}
	}

	// Downstream rendering expects these keys to exist.
	for _, key := range []string{"summary", "use_cases", "examples"} {
		if _, ok := analysis[key]; !ok {
			analysis[key] = nil
		}
	}
	return analysis, nil
}

func sourceList(results []SearchResult) []map[string]string {
	sources := make([]map[string]string, 0, len(results))
	for _, r := range results {
		snippet := r.Content
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		sources = append(sources, map[string]string{
			"title":   r.Title,
			"url":     r.URL,
			"snippet": snippet,
		})
	}
	return sources
}

// StripCodeFences removes a surrounding markdown code fence from LLM
// output, which models add despite instructions not to.
func StripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
