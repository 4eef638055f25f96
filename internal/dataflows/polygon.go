package dataflows

import (
	"context"
	"fmt"
	"log"

	"github.com/go-resty/resty/v2"
)

// PolygonClient talks to the Polygon.io reference API, the primary
// market-data tier. The free tier allows 5 calls per minute, which the
// shared RateLimiter enforces locally before any request leaves the
// process; a 429 from upstream still maps to ErrRateLimited so the chain
// can fall back.
type PolygonClient struct {
	client *resty.Client
	apiKey string
}

// NewPolygonClient creates a Polygon client. An empty API key is allowed;
// providers report ErrNotConfigured on use so the chain records why it
// fell back.
func NewPolygonClient(apiKey string) *PolygonClient {
	client := resty.New()
	client.SetBaseURL("https://api.polygon.io")
	client.SetTimeout(attemptTimeout)

	return &PolygonClient{
		client: client,
		apiKey: apiKey,
	}
}

type PolygonTickerDetails struct {
	Results struct {
		Ticker         string  `json:"ticker"`
		Name           string  `json:"name"`
		Market         string  `json:"market"`
		SICCode        string  `json:"sic_code"`
		SICDescription string  `json:"sic_description"`
		MarketCap      float64 `json:"market_cap"`
	} `json:"results"`
}

type PolygonTickerList struct {
	Results []struct {
		Ticker          string `json:"ticker"`
		Name            string `json:"name"`
		PrimaryExchange string `json:"primary_exchange"`
	} `json:"results"`
}

// TickerDetails fetches reference details for one ticker.
func (pc *PolygonClient) TickerDetails(ctx context.Context, ticker string) (*PolygonTickerDetails, error) {
	if pc.apiKey == "" {
		return nil, fmt.Errorf("%w: POLYGON_API_KEY not set", ErrNotConfigured)
	}

	var details PolygonTickerDetails
	resp, err := pc.client.R().
		SetContext(ctx).
		SetQueryParam("apiKey", pc.apiKey).
		SetResult(&details).
		Get("/v3/reference/tickers/" + NormalizeSymbol(ticker))
	if err != nil {
		return nil, fmt.Errorf("polygon request failed: %w", err)
	}
	if resp.StatusCode() == 429 {
		return nil, fmt.Errorf("%w: polygon returned 429", ErrRateLimited)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("polygon returned %d", resp.StatusCode())
	}
	return &details, nil
}

// TickersBySIC lists active stocks sharing a SIC industry code.
func (pc *PolygonClient) TickersBySIC(ctx context.Context, sicCode string, limit int) (*PolygonTickerList, error) {
	if pc.apiKey == "" {
		return nil, fmt.Errorf("%w: POLYGON_API_KEY not set", ErrNotConfigured)
	}

	var list PolygonTickerList
	resp, err := pc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"sic_code": sicCode,
			"active":   "true",
			"market":   "stocks",
			"limit":    fmt.Sprintf("%d", limit),
			"apiKey":   pc.apiKey,
		}).
		SetResult(&list).
		Get("/v3/reference/tickers")
	if err != nil {
		return nil, fmt.Errorf("polygon request failed: %w", err)
	}
	if resp.StatusCode() == 429 {
		return nil, fmt.Errorf("%w: polygon returned 429", ErrRateLimited)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("polygon search returned %d", resp.StatusCode())
	}
	return &list, nil
}

// polygonPeersProvider serves the find-competitors capability from Polygon
// SIC-code classification: companies in the target's SIC industry, ranked
// by market-cap proximity through RankPeers.
type polygonPeersProvider struct {
	polygon  *PolygonClient
	yahoo    *YahooClient
	universe *UniverseClient
}

// NewPolygonPeersProvider builds the Polygon-backed competitor provider.
// Yahoo supplies candidate market caps in one batch call because Polygon's
// list endpoint does not include them.
func NewPolygonPeersProvider(polygon *PolygonClient, yahoo *YahooClient, universe *UniverseClient) Provider {
	return &polygonPeersProvider{polygon: polygon, yahoo: yahoo, universe: universe}
}

func (p *polygonPeersProvider) Name() string        { return "polygon" }
func (p *polygonPeersProvider) Confidence() float64 { return 0.85 }

func (p *polygonPeersProvider) Fetch(ctx context.Context, params map[string]any) (any, string, error) {
	ticker, limit, err := peerParams(params)
	if err != nil {
		return nil, "", err
	}

	details, err := p.polygon.TickerDetails(ctx, ticker)
	if err != nil {
		return nil, "", err
	}
	if details.Results.SICCode == "" {
		return nil, "", fmt.Errorf("%w: no SIC code for %s", ErrNoData, ticker)
	}

	log.Printf("polygon: %s (SIC %s)", details.Results.Name, details.Results.SICCode)

	list, err := p.polygon.TickersBySIC(ctx, details.Results.SICCode, 50)
	if err != nil {
		return nil, "", err
	}

	seen := map[string]bool{ticker: true}
	candidates := make([]PeerCandidate, 0, len(list.Results))
	for _, r := range list.Results {
		sym := NormalizeSymbol(r.Ticker)
		if seen[sym] {
			continue
		}
		seen[sym] = true
		cand := PeerCandidate{
			Symbol:      sym,
			Name:        r.Name,
			SubIndustry: details.Results.SICDescription,
		}
		// Same SIC code means same sub-industry by construction; fill
		// the GICS classification when the index knows the symbol.
		if c, ok := p.universe.Lookup(ctx, sym); ok {
			cand.Sector = c.Sector
		}
		candidates = append(candidates, cand)
	}

	// The rest of the index universe joins the pool so RankPeers can
	// backfill when the SIC cohort is thin.
	for _, c := range p.universe.Constituents(ctx) {
		if seen[c.Symbol] {
			continue
		}
		seen[c.Symbol] = true
		candidates = append(candidates, PeerCandidate{
			Symbol:      c.Symbol,
			Name:        c.Name,
			Sector:      c.Sector,
			SubIndustry: c.SubIndustry,
		})
	}

	symbols := make([]string, 0, len(candidates))
	for _, c := range candidates {
		symbols = append(symbols, c.Symbol)
	}
	caps := p.yahoo.MarketCaps(symbols)
	for i := range candidates {
		candidates[i].MarketCap = caps[candidates[i].Symbol]
	}

	target := PeerCandidate{
		Symbol:      ticker,
		Name:        details.Results.Name,
		SubIndustry: details.Results.SICDescription,
		MarketCap:   int64(details.Results.MarketCap),
	}
	if c, ok := p.universe.Lookup(ctx, ticker); ok {
		target.Sector = c.Sector
	}

	ranked := RankPeers(target, candidates, limit)

	data := map[string]any{
		"target_company":    details.Results.Name,
		"target_ticker":     ticker,
		"sector":            target.Sector,
		"industry":          fmt.Sprintf("SIC %s (%s)", details.Results.SICCode, details.Results.SICDescription),
		"target_market_cap": target.MarketCap,
		"competitors":       ranked,
		"total_found":       len(ranked),
	}
	return data, "Polygon.io reference API", nil
}
