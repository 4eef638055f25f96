package dataflows

import (
	"fmt"
	"sort"
	"strings"

	"github.com/finsightai/finsight/internal/models"
)

// industryToSector maps loose industry terms users (and the planner) write
// to the GICS sector names the reference index uses.
var industryToSector = map[string]string{
	"technology": "Information Technology",
	"tech":       "Information Technology",
	"software":   "Information Technology",
	"it":         "Information Technology",

	"healthcare": "Health Care",
	"health":     "Health Care",
	"pharma":     "Health Care",
	"biotech":    "Health Care",

	"finance":   "Financials",
	"financial": "Financials",
	"banking":   "Financials",
	"insurance": "Financials",

	"retail":     "Consumer Discretionary",
	"automotive": "Consumer Discretionary",
	"auto":       "Consumer Discretionary",

	"media":   "Communication Services",
	"telecom": "Communication Services",

	"energy":     "Energy",
	"oil":        "Energy",
	"industrial": "Industrials",
	"materials":  "Materials",
	"utilities":  "Utilities",
	"realestate": "Real Estate",
	"staples":    "Consumer Staples",
}

// SectorForIndustry resolves a loose industry term to its GICS sector.
func SectorForIndustry(industry string) (string, bool) {
	sector, ok := industryToSector[strings.ToLower(strings.TrimSpace(industry))]
	return sector, ok
}

// KnownIndustryTerms lists accepted industry terms, sorted, for error text.
func KnownIndustryTerms() []string {
	terms := make([]string, 0, len(industryToSector))
	for term := range industryToSector {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func peerParams(params map[string]any) (ticker string, limit int, err error) {
	ticker = NormalizeSymbol(models.StringParam(params, "ticker"))
	if err := ValidateSymbol(ticker); err != nil {
		return "", 0, err
	}
	limit = models.IntParam(params, "limit", 5)
	if limit <= 0 {
		limit = 5
	}
	return ticker, limit, nil
}

func topCompaniesParams(params map[string]any) (industry string, n int, sector string, err error) {
	industry = models.StringParam(params, "industry")
	sector, ok := SectorForIndustry(industry)
	if !ok {
		return "", 0, "", fmt.Errorf("unknown industry: %q. Try: %s",
			industry, strings.Join(KnownIndustryTerms(), ", "))
	}
	n = models.IntParam(params, "n", 10)
	if n <= 0 {
		n = 10
	}
	return industry, n, sector, nil
}

func sortByMarketCapDesc(candidates []PeerCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MarketCap > candidates[j].MarketCap
	})
}
