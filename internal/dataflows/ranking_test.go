package dataflows

import (
	"testing"
)

func cand(symbol, sector, subIndustry string, cap int64) PeerCandidate {
	return PeerCandidate{Symbol: symbol, Name: symbol, Sector: sector, SubIndustry: subIndustry, MarketCap: cap}
}

func TestRankPeersExactIndustryFirst(t *testing.T) {
	target := cand("AAPL", "Information Technology", "Technology Hardware, Storage & Peripherals", 3000)

	candidates := []PeerCandidate{
		cand("MSFT", "Information Technology", "Systems Software", 2800),
		cand("HPQ", "Information Technology", "Technology Hardware, Storage & Peripherals", 400),
		cand("DELL", "Information Technology", "Technology Hardware, Storage & Peripherals", 500),
	}

	peers := RankPeers(target, candidates, 3)
	if len(peers) != 3 {
		t.Fatalf("expected 3 peers, got %d", len(peers))
	}

	// Exact sub-industry matches outrank the larger sector-only match.
	if peers[0].Symbol != "DELL" || peers[1].Symbol != "HPQ" {
		t.Fatalf("exact matches should lead, cap-descending: got %s, %s", peers[0].Symbol, peers[1].Symbol)
	}
	if peers[2].Symbol != "MSFT" {
		t.Fatalf("sector match should trail: got %s", peers[2].Symbol)
	}
	if !peers[0].ExactIndustry || peers[2].ExactIndustry {
		t.Fatal("exact-industry flags are wrong")
	}
}

func TestRankPeersExcludesTarget(t *testing.T) {
	target := cand("AAPL", "Information Technology", "Systems Software", 3000)
	candidates := []PeerCandidate{
		cand("aapl", "Information Technology", "Systems Software", 3000),
		cand("MSFT", "Information Technology", "Systems Software", 2800),
	}

	peers := RankPeers(target, candidates, 5)
	for _, p := range peers {
		if p.Symbol == "aapl" {
			t.Fatal("target leaked into its own peer list")
		}
	}
}

func TestRankPeersMarketCapBands(t *testing.T) {
	target := cand("ACME", "Information Technology", "Systems Software", 1000)

	candidates := []PeerCandidate{
		// Exact sub-industry: 0.1x-10x allowed.
		cand("TINY", "Information Technology", "Systems Software", 50),    // 0.05x, out
		cand("SMALL", "Information Technology", "Systems Software", 150),  // 0.15x, in
		cand("HUGE", "Information Technology", "Systems Software", 15000), // 15x, out
		// Sector-only: 0.3x-3x allowed.
		cand("NEAR", "Information Technology", "Application Software", 2000), // 2x, in
		cand("FAR", "Information Technology", "Application Software", 5000),  // 5x, out
	}

	peers := RankPeers(target, candidates, 2)
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}
	if peers[0].Symbol != "SMALL" || peers[1].Symbol != "NEAR" {
		t.Fatalf("band filter wrong: got %s, %s", peers[0].Symbol, peers[1].Symbol)
	}
}

func TestRankPeersUnknownTargetCapDisablesBands(t *testing.T) {
	target := cand("ACME", "Information Technology", "Systems Software", 0)
	candidates := []PeerCandidate{
		cand("HUGE", "Information Technology", "Systems Software", 3000000),
	}

	peers := RankPeers(target, candidates, 1)
	if len(peers) != 1 || !peers[0].Matched {
		t.Fatal("band filter should be disabled when the target cap is unknown")
	}
}

func TestRankPeersBackfillFlaggedNonMatching(t *testing.T) {
	target := cand("ACME", "Energy", "Oil & Gas Exploration & Production", 1000)
	candidates := []PeerCandidate{
		cand("XOM", "Energy", "Oil & Gas Exploration & Production", 2000),
		cand("JNJ", "Health Care", "Pharmaceuticals", 4000),
		cand("PFE", "Health Care", "Pharmaceuticals", 1500),
	}

	peers := RankPeers(target, candidates, 3)
	if len(peers) != 3 {
		t.Fatalf("expected backfill to 3, got %d", len(peers))
	}
	if peers[0].Symbol != "XOM" || !peers[0].Matched {
		t.Fatalf("real match should lead: %+v", peers[0])
	}
	// Backfill is cap-descending and explicitly flagged.
	if peers[1].Symbol != "JNJ" || peers[1].Matched {
		t.Fatalf("backfill order or flag wrong: %+v", peers[1])
	}
	if peers[2].Symbol != "PFE" || peers[2].Matched {
		t.Fatalf("backfill order or flag wrong: %+v", peers[2])
	}
}

func TestSectorsCompeteCrossSector(t *testing.T) {
	if !sectorsCompete("Information Technology", "Communication Services") {
		t.Fatal("IT should compete with Communication Services")
	}
	if !sectorsCompete("Financials", "Information Technology") {
		t.Fatal("Financials should compete with IT")
	}
	// Asymmetric: IT does not reach back into Financials.
	if sectorsCompete("Information Technology", "Financials") {
		t.Fatal("IT should not compete with Financials")
	}
	if sectorsCompete("Energy", "Health Care") {
		t.Fatal("unrelated sectors should not compete")
	}
	if sectorsCompete("", "Energy") {
		t.Fatal("empty sector never competes")
	}
}
