package dataflows

import (
	"strings"
	"testing"
)

func TestSectorForIndustry(t *testing.T) {
	cases := []struct {
		industry string
		sector   string
	}{
		{"technology", "Information Technology"},
		{"Tech", "Information Technology"},
		{"  SOFTWARE  ", "Information Technology"},
		{"healthcare", "Health Care"},
		{"banking", "Financials"},
		{"automotive", "Consumer Discretionary"},
		{"oil", "Energy"},
	}
	for _, tc := range cases {
		sector, ok := SectorForIndustry(tc.industry)
		if !ok {
			t.Fatalf("%q not recognized", tc.industry)
		}
		if sector != tc.sector {
			t.Fatalf("%q mapped to %q, want %q", tc.industry, sector, tc.sector)
		}
	}

	if _, ok := SectorForIndustry("underwater basket weaving"); ok {
		t.Fatal("nonsense industry should not resolve")
	}
}

func TestTopCompaniesParamsUnknownIndustry(t *testing.T) {
	_, _, _, err := topCompaniesParams(map[string]any{"industry": "astrology"})
	if err == nil {
		t.Fatal("expected error for unknown industry")
	}
	if !strings.Contains(err.Error(), `unknown industry: "astrology"`) {
		t.Fatalf("error should name the industry: %v", err)
	}
	if !strings.Contains(err.Error(), "tech") {
		t.Fatalf("error should suggest known terms: %v", err)
	}
}

func TestTopCompaniesParamsDefaults(t *testing.T) {
	industry, n, sector, err := topCompaniesParams(map[string]any{"industry": "tech"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if industry != "tech" || sector != "Information Technology" {
		t.Fatalf("got industry=%q sector=%q", industry, sector)
	}
	if n != 10 {
		t.Fatalf("default n should be 10, got %d", n)
	}
}

func TestPeerParams(t *testing.T) {
	ticker, limit, err := peerParams(map[string]any{"ticker": " aapl ", "limit": 3.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticker != "AAPL" {
		t.Fatalf("ticker not normalized: %q", ticker)
	}
	if limit != 3 {
		t.Fatalf("limit should decode from JSON float, got %d", limit)
	}

	if _, _, err := peerParams(map[string]any{"ticker": "not a ticker!"}); err == nil {
		t.Fatal("expected validation error for malformed ticker")
	}
}

func TestValidateAndNormalizeSymbol(t *testing.T) {
	if err := ValidateSymbol("BRK.B"); err != nil {
		t.Fatalf("dotted class symbol should validate: %v", err)
	}
	if err := ValidateSymbol(""); err == nil {
		t.Fatal("empty symbol should fail")
	}
	if err := ValidateSymbol("WAYTOOLONGSYM"); err == nil {
		t.Fatal("overlong symbol should fail")
	}
	if err := ValidateSymbol("AA PL"); err == nil {
		t.Fatal("symbol with space should fail")
	}
	if got := NormalizeSymbol("  msft "); got != "MSFT" {
		t.Fatalf("NormalizeSymbol: got %q", got)
	}
}
