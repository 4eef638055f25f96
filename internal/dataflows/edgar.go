package dataflows

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/finsightai/finsight/internal/models"
)

// revenueTags is the XBRL tag cascade for revenue: companies report under
// different GAAP concepts, so the first tag with usable facts wins.
var revenueTags = []string{
	"Revenues",
	"RevenueFromContractWithCustomerExcludingAssessedTax",
}

// EDGARClient extracts quarterly financials from SEC EDGAR XBRL company
// facts. This is the authoritative tier: structured filings, no parsing of
// PDFs, confidence 1.0.
type EDGARClient struct {
	client *resty.Client

	mu          sync.Mutex
	cikByTicker map[string]string
}

// NewEDGARClient creates an EDGAR client. The SEC requires a descriptive
// User-Agent with contact information on every request.
func NewEDGARClient(userAgent string) *EDGARClient {
	client := resty.New()
	client.SetTimeout(attemptTimeout)
	client.SetHeader("User-Agent", userAgent)

	return &EDGARClient{client: client}
}

type companyFacts struct {
	CIK        int                               `json:"cik"`
	EntityName string                            `json:"entityName"`
	Facts      map[string]map[string]xbrlConcept `json:"facts"`
}

type xbrlConcept struct {
	Label string                `json:"label"`
	Units map[string][]xbrlFact `json:"units"`
}

type xbrlFact struct {
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
	FP    string  `json:"fp"`
	FY    int     `json:"fy"`
}

// resolveCIK maps a ticker to its zero-padded CIK using the SEC's public
// company_tickers.json, fetched once per process.
func (ec *EDGARClient) resolveCIK(ctx context.Context, ticker string) (string, error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	if ec.cikByTicker == nil {
		var listing map[string]struct {
			CIK    int    `json:"cik_str"`
			Ticker string `json:"ticker"`
		}
		resp, err := ec.client.R().
			SetContext(ctx).
			SetResult(&listing).
			Get("https://www.sec.gov/files/company_tickers.json")
		if err != nil {
			return "", fmt.Errorf("failed to fetch ticker listing: %w", err)
		}
		if resp.StatusCode() != 200 {
			return "", fmt.Errorf("SEC ticker listing returned %d", resp.StatusCode())
		}

		ec.cikByTicker = make(map[string]string, len(listing))
		for _, entry := range listing {
			ec.cikByTicker[strings.ToUpper(entry.Ticker)] = fmt.Sprintf("%010d", entry.CIK)
		}
		log.Printf("edgar: loaded %d ticker-to-CIK mappings", len(ec.cikByTicker))
	}

	cik, ok := ec.cikByTicker[ticker]
	if !ok {
		return "", fmt.Errorf("%w: no CIK for ticker %s", ErrNoData, ticker)
	}
	return cik, nil
}

// QuarterlyFinancials pulls the latest 10-Q figures for a ticker.
func (ec *EDGARClient) QuarterlyFinancials(ctx context.Context, ticker string) (map[string]any, string, error) {
	ticker = NormalizeSymbol(ticker)
	if err := ValidateSymbol(ticker); err != nil {
		return nil, "", err
	}

	cik, err := ec.resolveCIK(ctx, ticker)
	if err != nil {
		return nil, "", err
	}

	factsURL := fmt.Sprintf("https://data.sec.gov/api/xbrl/companyfacts/CIK%s.json", cik)

	var facts companyFacts
	resp, err := ec.client.R().
		SetContext(ctx).
		SetResult(&facts).
		Get(factsURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch company facts: %w", err)
	}
	if resp.StatusCode() == 429 {
		return nil, "", fmt.Errorf("%w: SEC returned 429", ErrRateLimited)
	}
	if resp.StatusCode() != 200 {
		return nil, "", fmt.Errorf("SEC company facts returned %d", resp.StatusCode())
	}

	gaap, ok := facts.Facts["us-gaap"]
	if !ok {
		return nil, "", fmt.Errorf("%w: no us-gaap facts for %s", ErrNoData, ticker)
	}

	financials := map[string]any{}
	var periodEnd, filedDate string

	for _, tag := range revenueTags {
		if fact, ok := latestQuarterlyFact(gaap, tag); ok {
			financials["revenue"] = map[string]any{
				"value": decimal.NewFromFloat(fact.Val),
				"label": "Revenue",
				"tag":   "us-gaap:" + tag,
			}
			periodEnd, filedDate = fact.End, fact.Filed
			break
		}
	}

	if fact, ok := latestQuarterlyFact(gaap, "NetIncomeLoss"); ok {
		financials["net_income"] = map[string]any{
			"value": decimal.NewFromFloat(fact.Val),
			"label": "Net Income",
			"tag":   "us-gaap:NetIncomeLoss",
		}
		if periodEnd == "" {
			periodEnd, filedDate = fact.End, fact.Filed
		}
	}
	if fact, ok := latestQuarterlyFact(gaap, "OperatingExpenses"); ok {
		financials["operating_expenses"] = map[string]any{
			"value": decimal.NewFromFloat(fact.Val),
			"label": "Operating Expenses",
			"tag":   "us-gaap:OperatingExpenses",
		}
	}
	if fact, ok := latestQuarterlyFact(gaap, "CostOfRevenue"); ok {
		financials["cost_of_revenue"] = map[string]any{
			"value": decimal.NewFromFloat(fact.Val),
			"label": "Cost of Revenue",
			"tag":   "us-gaap:CostOfRevenue",
		}
	}

	if len(financials) == 0 {
		return nil, "", fmt.Errorf("%w: could not extract financials for %s", ErrNoData, ticker)
	}

	data := map[string]any{
		"ticker":       ticker,
		"company_name": facts.EntityName,
		"filing_date":  filedDate,
		"period_end":   periodEnd,
		"financials":   financials,
		"filing_url":   factsURL,
	}
	return data, factsURL, nil
}

// latestQuarterlyFact picks the most recent 10-Q USD fact for a tag.
func latestQuarterlyFact(gaap map[string]xbrlConcept, tag string) (xbrlFact, bool) {
	concept, ok := gaap[tag]
	if !ok {
		return xbrlFact{}, false
	}
	usd, ok := concept.Units["USD"]
	if !ok {
		return xbrlFact{}, false
	}

	var quarterly []xbrlFact
	for _, fact := range usd {
		if fact.Form == "10-Q" {
			quarterly = append(quarterly, fact)
		}
	}
	if len(quarterly) == 0 {
		return xbrlFact{}, false
	}

	sort.Slice(quarterly, func(i, j int) bool {
		if quarterly[i].End != quarterly[j].End {
			return quarterly[i].End > quarterly[j].End
		}
		return quarterly[i].Filed > quarterly[j].Filed
	})
	return quarterly[0], true
}

// edgarFinancialsProvider adapts the EDGAR client to the provider chain.
type edgarFinancialsProvider struct {
	edgar *EDGARClient
}

// NewEDGARFinancialsProvider builds the authoritative filings provider.
func NewEDGARFinancialsProvider(edgar *EDGARClient) Provider {
	return &edgarFinancialsProvider{edgar: edgar}
}

func (p *edgarFinancialsProvider) Name() string        { return "sec_edgar" }
func (p *edgarFinancialsProvider) Confidence() float64 { return 1.0 }

func (p *edgarFinancialsProvider) Fetch(ctx context.Context, params map[string]any) (any, string, error) {
	ticker := NormalizeSymbol(models.StringParam(params, "ticker"))
	return p.edgar.QuarterlyFinancials(ctx, ticker)
}
