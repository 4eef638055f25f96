package dataflows

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"
)

// YahooClient wraps the Yahoo Finance quote API. It is the secondary,
// keyless market-data tier: free and reliable, 15-minute delayed.
type YahooClient struct {
	universe *UniverseClient
	getQuote func(symbol string) (*finance.Equity, error)
	listCaps func(symbols []string) map[string]int64
}

// NewYahooClient creates a Yahoo client over the shared universe.
func NewYahooClient(universe *UniverseClient) *YahooClient {
	return &YahooClient{
		universe: universe,
		getQuote: equity.Get,
		listCaps: fetchMarketCaps,
	}
}

// Quote fetches the current quote for one symbol.
func (y *YahooClient) Quote(symbol string) (*finance.Equity, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	q, err := y.getQuote(NormalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}
	if q == nil {
		return nil, fmt.Errorf("%w: no quote for %s", ErrNoData, symbol)
	}
	return q, nil
}

// MarketCaps fetches market capitalizations for a batch of symbols in one
// list call. Symbols Yahoo does not know are simply absent from the map.
func (y *YahooClient) MarketCaps(symbols []string) map[string]int64 {
	if len(symbols) == 0 {
		return map[string]int64{}
	}
	return y.listCaps(symbols)
}

func fetchMarketCaps(symbols []string) map[string]int64 {
	caps := make(map[string]int64, len(symbols))
	iter := equity.List(symbols)
	for iter.Next() {
		q := iter.Equity()
		if q == nil {
			continue
		}
		caps[strings.ToUpper(q.Symbol)] = q.MarketCap
	}
	if err := iter.Err(); err != nil {
		log.Printf("yahoo: batch quote error: %v", err)
	}
	return caps
}

// yahooPeersProvider serves the find-competitors capability from the index
// universe plus live Yahoo market caps.
type yahooPeersProvider struct {
	yahoo *YahooClient
}

// NewYahooPeersProvider builds the Yahoo-backed competitor provider.
func NewYahooPeersProvider(yahoo *YahooClient) Provider {
	return &yahooPeersProvider{yahoo: yahoo}
}

func (p *yahooPeersProvider) Name() string        { return "yahoo" }
func (p *yahooPeersProvider) Confidence() float64 { return 0.80 }

func (p *yahooPeersProvider) Fetch(ctx context.Context, params map[string]any) (any, string, error) {
	ticker, limit, err := peerParams(params)
	if err != nil {
		return nil, "", err
	}

	target, ok := p.yahoo.universe.Lookup(ctx, ticker)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s is not in the reference universe", ErrNoData, ticker)
	}

	q, err := p.yahoo.Quote(ticker)
	if err != nil {
		return nil, "", err
	}
	targetCand := PeerCandidate{
		Symbol:      target.Symbol,
		Name:        target.Name,
		Sector:      target.Sector,
		SubIndustry: target.SubIndustry,
		MarketCap:   q.MarketCap,
	}

	// Every other universe member is a candidate. RankPeers owns the
	// classification and band filtering, and when nothing in the target's
	// category survives it backfills from the rest so the caller still
	// gets a full list.
	var pool []Constituent
	for _, c := range p.yahoo.universe.Constituents(ctx) {
		if c.Symbol == target.Symbol {
			continue
		}
		pool = append(pool, c)
	}

	symbols := make([]string, 0, len(pool))
	for _, c := range pool {
		symbols = append(symbols, c.Symbol)
	}
	caps := p.yahoo.MarketCaps(symbols)

	candidates := make([]PeerCandidate, 0, len(pool))
	for _, c := range pool {
		candidates = append(candidates, PeerCandidate{
			Symbol:      c.Symbol,
			Name:        c.Name,
			Sector:      c.Sector,
			SubIndustry: c.SubIndustry,
			MarketCap:   caps[c.Symbol],
		})
	}

	ranked := RankPeers(targetCand, candidates, limit)
	log.Printf("yahoo: found %d peers for %s (checked %d candidates)", len(ranked), ticker, len(candidates))

	data := map[string]any{
		"target_company":    target.Name,
		"target_ticker":     target.Symbol,
		"sector":            target.Sector,
		"industry":          target.SubIndustry,
		"target_market_cap": targetCand.MarketCap,
		"competitors":       ranked,
		"total_found":       len(ranked),
	}
	return data, "Yahoo Finance quote API", nil
}

// yahooTopCompaniesProvider ranks index members of one sector by market cap.
type yahooTopCompaniesProvider struct {
	yahoo *YahooClient
}

// NewYahooTopCompaniesProvider builds the Yahoo-backed sector ranking
// provider.
func NewYahooTopCompaniesProvider(yahoo *YahooClient) Provider {
	return &yahooTopCompaniesProvider{yahoo: yahoo}
}

func (p *yahooTopCompaniesProvider) Name() string        { return "yahoo" }
func (p *yahooTopCompaniesProvider) Confidence() float64 { return 0.80 }

func (p *yahooTopCompaniesProvider) Fetch(ctx context.Context, params map[string]any) (any, string, error) {
	industry, n, sector, err := topCompaniesParams(params)
	if err != nil {
		return nil, "", err
	}

	var members []Constituent
	for _, c := range p.yahoo.universe.Constituents(ctx) {
		if strings.EqualFold(c.Sector, sector) {
			members = append(members, c)
		}
	}
	if len(members) == 0 {
		return nil, "", fmt.Errorf("%w: no index members in sector %q", ErrNoData, sector)
	}

	symbols := make([]string, 0, len(members))
	for _, c := range members {
		symbols = append(symbols, c.Symbol)
	}
	caps := p.yahoo.MarketCaps(symbols)

	ranked := make([]PeerCandidate, 0, len(members))
	for _, c := range members {
		ranked = append(ranked, PeerCandidate{
			Symbol:      c.Symbol,
			Name:        c.Name,
			Sector:      c.Sector,
			SubIndustry: c.SubIndustry,
			MarketCap:   caps[c.Symbol],
			Matched:     true,
		})
	}
	sortByMarketCapDesc(ranked)
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	companies := make([]map[string]any, 0, len(ranked))
	for i, c := range ranked {
		companies = append(companies, map[string]any{
			"rank":           i + 1,
			"ticker":         c.Symbol,
			"name":           c.Name,
			"industry":       c.SubIndustry,
			"market_cap":     c.MarketCap,
			"market_cap_usd": decimal.NewFromInt(c.MarketCap).String(),
		})
	}

	data := map[string]any{
		"industry":        industry,
		"sector":          sector,
		"companies":       companies,
		"total_in_sector": len(members),
	}
	return data, "Yahoo Finance quote API", nil
}
