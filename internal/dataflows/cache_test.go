package dataflows

import (
	"testing"
	"time"

	"github.com/finsightai/finsight/internal/models"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("get_quarterly_financials", map[string]any{"ticker": "AAPL", "limit": 5})
	b := Fingerprint("get_quarterly_financials", map[string]any{"limit": 5, "ticker": "AAPL"})
	if a != b {
		t.Fatalf("same params in different order produced different fingerprints: %s vs %s", a, b)
	}

	c := Fingerprint("get_quarterly_financials", map[string]any{"ticker": "MSFT", "limit": 5})
	if a == c {
		t.Fatalf("different params produced the same fingerprint: %s", a)
	}

	d := Fingerprint("find_competitors", map[string]any{"ticker": "AAPL", "limit": 5})
	if a == d {
		t.Fatal("different capabilities produced the same fingerprint")
	}
}

func TestFingerprintFoldsStringValues(t *testing.T) {
	a := Fingerprint("get_quarterly_financials", map[string]any{"ticker": "AAPL"})
	b := Fingerprint("get_quarterly_financials", map[string]any{"ticker": "aapl"})
	c := Fingerprint("get_quarterly_financials", map[string]any{"ticker": " AAPL "})
	if a != b || a != c {
		t.Fatalf("ticker casing/whitespace should not change the fingerprint: %s, %s, %s", a, b, c)
	}
}

func TestCachePutGetFresh(t *testing.T) {
	cache := NewResultCache(t.TempDir(), time.Hour, true)
	fp := Fingerprint("find_competitors", map[string]any{"ticker": "AAPL"})

	result := models.NewSuccessResult("find_competitors", map[string]any{"ticker": "AAPL"}, map[string]any{"total_found": 3.0}, "yahoo", 0.8)
	cache.Put(fp, result)

	got, ok := cache.Get(fp)
	if !ok {
		t.Fatal("expected fresh cache hit")
	}
	if got.Confidence != 0.8 || got.Source != "yahoo" || !got.Success {
		t.Fatalf("cached result corrupted: %+v", got)
	}
}

func TestCacheExpiryAndStaleRead(t *testing.T) {
	cache := NewResultCache(t.TempDir(), time.Hour, true)
	fp := Fingerprint("find_competitors", map[string]any{"ticker": "AAPL"})

	cache.Put(fp, models.NewSuccessResult("find_competitors", nil, "data", "yahoo", 0.8))

	// Advance the clock past the TTL.
	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, ok := cache.Get(fp); ok {
		t.Fatal("expired entry served as fresh")
	}
	stale, ok := cache.GetStale(fp)
	if !ok {
		t.Fatal("expired entry should still be readable via GetStale")
	}
	if stale.Source != "yahoo" {
		t.Fatalf("stale result corrupted: %+v", stale)
	}
}

func TestCacheDisabled(t *testing.T) {
	cache := NewResultCache(t.TempDir(), time.Hour, false)
	fp := Fingerprint("find_competitors", map[string]any{"ticker": "AAPL"})

	cache.Put(fp, models.NewSuccessResult("find_competitors", nil, "data", "yahoo", 0.8))

	if _, ok := cache.Get(fp); ok {
		t.Fatal("disabled cache returned a hit")
	}
	if _, ok := cache.GetStale(fp); ok {
		t.Fatal("disabled cache returned a stale hit")
	}
}

func TestCacheMissingEntry(t *testing.T) {
	cache := NewResultCache(t.TempDir(), time.Hour, true)
	if _, ok := cache.Get("no_such_entry"); ok {
		t.Fatal("missing entry reported as hit")
	}
}
