package dataflows

import (
	"sort"
	"strings"
)

// Market-cap ratio bands relative to the target. Exact sub-industry peers
// get a wide net (true peers can differ greatly in size); sector-only
// matches get a tight band to avoid comparing wildly different companies.
const (
	exactIndustryMinRatio = 0.1
	exactIndustryMaxRatio = 10.0
	sectorOnlyMinRatio    = 0.3
	sectorOnlyMaxRatio    = 3.0
)

// competingSectors lists sectors that legitimately compete across GICS
// boundaries. Static and explicit, not inferred: an automaker competes with
// tech platforms on autonomy, banks compete with payment-tech firms.
var competingSectors = map[string][]string{
	"Information Technology": {"Communication Services", "Consumer Discretionary"},
	"Communication Services": {"Information Technology", "Consumer Discretionary"},
	"Consumer Discretionary": {"Information Technology", "Communication Services"},
	"Financials":             {"Information Technology"},
}

// PeerCandidate is one scored entry from the candidate universe.
type PeerCandidate struct {
	Symbol        string `json:"ticker"`
	Name          string `json:"name"`
	Sector        string `json:"sector"`
	SubIndustry   string `json:"industry"`
	MarketCap     int64  `json:"market_cap"`
	ExactIndustry bool   `json:"exact_industry_match"`
	Matched       bool   `json:"matched"`
}

// RankPeers applies the similarity heuristic: classification match, then
// market-cap band filter, then ordering by (exact sub-industry match,
// market cap descending). If fewer than limit candidates survive the
// filters, the largest remaining candidates backfill the list, flagged as
// non-matching, so the caller still gets limit entries when possible.
func RankPeers(target PeerCandidate, candidates []PeerCandidate, limit int) []PeerCandidate {
	if limit <= 0 {
		limit = 5
	}

	var matched []PeerCandidate
	var rest []PeerCandidate

	for _, cand := range candidates {
		if strings.EqualFold(cand.Symbol, target.Symbol) {
			continue
		}

		exact := cand.SubIndustry != "" && strings.EqualFold(cand.SubIndustry, target.SubIndustry)
		sectorMatch := exact || sectorsCompete(target.Sector, cand.Sector)

		if !sectorMatch {
			rest = append(rest, cand)
			continue
		}

		// Unknown target size disables the band filter entirely.
		if target.MarketCap > 0 && cand.MarketCap > 0 {
			ratio := float64(cand.MarketCap) / float64(target.MarketCap)
			minRatio, maxRatio := sectorOnlyMinRatio, sectorOnlyMaxRatio
			if exact {
				minRatio, maxRatio = exactIndustryMinRatio, exactIndustryMaxRatio
			}
			if ratio < minRatio || ratio > maxRatio {
				rest = append(rest, cand)
				continue
			}
		}

		cand.ExactIndustry = exact
		cand.Matched = true
		matched = append(matched, cand)
	}

	// Exact sub-industry peers outrank cross-sector ones regardless of
	// size; within a tier, larger entities first.
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].ExactIndustry != matched[j].ExactIndustry {
			return matched[i].ExactIndustry
		}
		return matched[i].MarketCap > matched[j].MarketCap
	})

	if len(matched) >= limit {
		return matched[:limit]
	}

	// Backfill with the largest leftovers so the caller still receives
	// the requested count whenever any candidates exist.
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].MarketCap > rest[j].MarketCap
	})
	for _, cand := range rest {
		if len(matched) >= limit {
			break
		}
		cand.Matched = false
		matched = append(matched, cand)
	}

	return matched
}

// sectorsCompete reports whether candidate's sector matches the target's,
// directly or through the cross-sector competing set.
func sectorsCompete(targetSector, candidateSector string) bool {
	if targetSector == "" || candidateSector == "" {
		return false
	}
	if strings.EqualFold(targetSector, candidateSector) {
		return true
	}
	for _, s := range competingSectors[targetSector] {
		if strings.EqualFold(s, candidateSector) {
			return true
		}
	}
	return false
}
