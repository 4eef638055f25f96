package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const sp500URL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Constituent is one member of the reference index with its GICS
// classification. Sector is the primary category, SubIndustry the
// sub-category used for exact peer matching.
type Constituent struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Sector      string `json:"sector"`
	SubIndustry string `json:"sub_industry"`
}

type universeEnvelope struct {
	Constituents []Constituent `json:"constituents"`
	CachedAt     time.Time     `json:"cached_at"`
}

// UniverseClient provides the candidate universe for peer finding and
// sector rankings: the S&P 500 constituent list scraped from Wikipedia.
// The list changes quarterly at most, so it is cached for 30 days.
type UniverseClient struct {
	client   *resty.Client
	cacheDir string
	cacheTTL time.Duration

	mu     sync.Mutex
	loaded []Constituent
}

// NewUniverseClient creates a universe client caching under cacheDir.
func NewUniverseClient(cacheDir string) *UniverseClient {
	client := resty.New()
	client.SetTimeout(attemptTimeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; FinSight/1.0)")

	return &UniverseClient{
		client:   client,
		cacheDir: cacheDir,
		cacheTTL: 30 * 24 * time.Hour,
	}
}

// Constituents returns the index members, from memory, then disk cache,
// then the network, then a minimal hardcoded fallback.
func (u *UniverseClient) Constituents(ctx context.Context) []Constituent {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.loaded) > 0 {
		return u.loaded
	}

	if cached, ok := u.readCache(); ok {
		u.loaded = cached
		return cached
	}

	fetched, err := u.fetch(ctx)
	if err != nil {
		log.Printf("universe: fetch failed (%v), using fallback list", err)
		u.loaded = fallbackUniverse()
		return u.loaded
	}

	u.writeCache(fetched)
	u.loaded = fetched
	return fetched
}

// Lookup finds a constituent by ticker symbol.
func (u *UniverseClient) Lookup(ctx context.Context, symbol string) (Constituent, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, c := range u.Constituents(ctx) {
		if c.Symbol == symbol {
			return c, true
		}
	}
	return Constituent{}, false
}

func (u *UniverseClient) fetch(ctx context.Context) ([]Constituent, error) {
	resp, err := u.client.R().SetContext(ctx).Get(sp500URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch constituent list: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP error %d when fetching constituent list", resp.StatusCode())
	}

	constituents, err := parseConstituents(resp.String())
	if err != nil {
		return nil, err
	}

	log.Printf("universe: fetched %d constituents", len(constituents))
	return constituents, nil
}

func parseConstituents(html string) ([]Constituent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var constituents []Constituent
	doc.Find("table#constituents tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		symbol := strings.TrimSpace(cells.Eq(0).Text())
		if symbol == "" {
			return
		}
		constituents = append(constituents, Constituent{
			// Yahoo uses dashes where the index list uses dots (BRK.B)
			Symbol:      strings.ReplaceAll(symbol, ".", "-"),
			Name:        strings.TrimSpace(cells.Eq(1).Text()),
			Sector:      strings.TrimSpace(cells.Eq(2).Text()),
			SubIndustry: strings.TrimSpace(cells.Eq(3).Text()),
		})
	})

	if len(constituents) == 0 {
		return nil, fmt.Errorf("constituent table yielded no rows")
	}
	return constituents, nil
}

func (u *UniverseClient) readCache() ([]Constituent, bool) {
	data, err := os.ReadFile(u.cachePath())
	if err != nil {
		return nil, false
	}
	var env universeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if time.Since(env.CachedAt) >= u.cacheTTL || len(env.Constituents) == 0 {
		return nil, false
	}
	return env.Constituents, true
}

func (u *UniverseClient) writeCache(constituents []Constituent) {
	if err := os.MkdirAll(u.cacheDir, 0o755); err != nil {
		return
	}
	env := universeEnvelope{Constituents: constituents, CachedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(u.cachePath(), data, 0o644)
}

func (u *UniverseClient) cachePath() string {
	return filepath.Join(u.cacheDir, "sp500_universe.json")
}

// fallbackUniverse is the minimal list used when the index fetch fails.
func fallbackUniverse() []Constituent {
	return []Constituent{
		{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Information Technology", SubIndustry: "Technology Hardware, Storage & Peripherals"},
		{Symbol: "MSFT", Name: "Microsoft", Sector: "Information Technology", SubIndustry: "Systems Software"},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", Sector: "Communication Services", SubIndustry: "Interactive Media & Services"},
		{Symbol: "AMZN", Name: "Amazon.com", Sector: "Consumer Discretionary", SubIndustry: "Broadline Retail"},
		{Symbol: "NVDA", Name: "Nvidia", Sector: "Information Technology", SubIndustry: "Semiconductors"},
		{Symbol: "META", Name: "Meta Platforms", Sector: "Communication Services", SubIndustry: "Interactive Media & Services"},
		{Symbol: "TSLA", Name: "Tesla, Inc.", Sector: "Consumer Discretionary", SubIndustry: "Automobile Manufacturers"},
		{Symbol: "BRK-B", Name: "Berkshire Hathaway", Sector: "Financials", SubIndustry: "Multi-Sector Holdings"},
		{Symbol: "UNH", Name: "UnitedHealth Group", Sector: "Health Care", SubIndustry: "Managed Health Care"},
		{Symbol: "JNJ", Name: "Johnson & Johnson", Sector: "Health Care", SubIndustry: "Pharmaceuticals"},
		{Symbol: "JPM", Name: "JPMorgan Chase", Sector: "Financials", SubIndustry: "Diversified Banks"},
		{Symbol: "V", Name: "Visa Inc.", Sector: "Financials", SubIndustry: "Transaction & Payment Processing Services"},
		{Symbol: "PG", Name: "Procter & Gamble", Sector: "Consumer Staples", SubIndustry: "Household Products"},
		{Symbol: "XOM", Name: "ExxonMobil", Sector: "Energy", SubIndustry: "Integrated Oil & Gas"},
		{Symbol: "HD", Name: "Home Depot", Sector: "Consumer Discretionary", SubIndustry: "Home Improvement Retail"},
	}
}
