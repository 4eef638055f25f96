// Package agent wires the data providers, resolver chains, and pipeline
// stages into a ready-to-ask financial analysis agent.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/finsightai/finsight/config"
	"github.com/finsightai/finsight/internal/dataflows"
	"github.com/finsightai/finsight/internal/executor"
	"github.com/finsightai/finsight/internal/llm"
	"github.com/finsightai/finsight/internal/models"
	"github.com/finsightai/finsight/internal/planner"
	"github.com/finsightai/finsight/internal/reporter"
)

// polygonCallLimit matches the Polygon free tier: 5 calls per minute.
const polygonCallLimit = 5

// Agent is the top-level entry point for queries.
type Agent struct {
	pipeline *Pipeline
	chains   map[executor.ActionKind]*dataflows.ProviderChain
}

// New builds the full agent from configuration: shared cache and rate
// limiter, one provider chain per tool, and the three pipeline stages.
func New(ctx context.Context, cfg *config.Config) (*Agent, error) {
	chatModel, err := llm.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	cache := dataflows.NewResultCache(cfg.DataCacheDir, time.Duration(cfg.CacheTTLHours)*time.Hour, cfg.CacheEnabled)
	limiter := dataflows.NewRateLimiter(time.Minute)
	limiter.SetLimit("polygon", polygonCallLimit)

	universe := dataflows.NewUniverseClient(cfg.DataCacheDir)
	yahoo := dataflows.NewYahooClient(universe)
	polygon := dataflows.NewPolygonClient(cfg.PolygonAPIKey)
	edgar := dataflows.NewEDGARClient(cfg.SECUserAgent)
	tavily := dataflows.NewTavilyClient(cfg.TavilyAPIKey)

	chains := map[executor.ActionKind]*dataflows.ProviderChain{
		executor.ActionQuarterlyFinancials: dataflows.NewProviderChain(
			executor.ActionQuarterlyFinancials.String(), cache, limiter,
			dataflows.NewEDGARFinancialsProvider(edgar),
		),
		executor.ActionFindCompetitors: dataflows.NewProviderChain(
			executor.ActionFindCompetitors.String(), cache, limiter,
			dataflows.NewPolygonPeersProvider(polygon, yahoo, universe),
			dataflows.NewYahooPeersProvider(yahoo),
		),
		executor.ActionTopCompanies: dataflows.NewProviderChain(
			executor.ActionTopCompanies.String(), cache, limiter,
			dataflows.NewYahooTopCompaniesProvider(yahoo),
		),
	}

	// Web research chains are only wired when online tools are enabled;
	// without them the chain degrades to stale cache or a clean failure.
	researchProviders := []dataflows.Provider{}
	generalProviders := []dataflows.Provider{}
	if cfg.OnlineTools {
		researchProviders = append(researchProviders, dataflows.NewAIDisruptionProvider(tavily, chatModel))
		generalProviders = append(generalProviders, dataflows.NewGeneralResearchProvider(tavily, chatModel))
	}
	chains[executor.ActionAIDisruption] = dataflows.NewProviderChain(
		executor.ActionAIDisruption.String(), cache, limiter, researchProviders...)
	chains[executor.ActionGeneralResearch] = dataflows.NewProviderChain(
		executor.ActionGeneralResearch.String(), cache, limiter, generalProviders...)

	router := executor.NewRouter()
	for kind, chain := range chains {
		router.Register(kind, chainHandler(chain))
	}

	return &Agent{
		pipeline: NewPipeline(planner.New(chatModel), executor.New(router), reporter.New()),
		chains:   chains,
	}, nil
}

// chainHandler adapts a provider chain into an executor handler.
func chainHandler(chain *dataflows.ProviderChain) executor.Handler {
	return func(ctx context.Context, params map[string]any) models.ActionResult {
		return chain.Resolve(ctx, params)
	}
}

// Ask runs one query through the full pipeline.
func (a *Agent) Ask(ctx context.Context, query string) models.PipelineState {
	return a.pipeline.Run(ctx, query)
}

// Chain exposes the resolver chain backing a tool, used by the precache
// command to warm results without running the LLM planner.
func (a *Agent) Chain(kind executor.ActionKind) *dataflows.ProviderChain {
	return a.chains[kind]
}
