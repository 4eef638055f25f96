package dataflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type fakeProvider struct {
	name       string
	confidence float64
	data       any
	source     string
	err        error
	panics     bool
	calls      int
}

func (f *fakeProvider) Name() string        { return f.name }
func (f *fakeProvider) Confidence() float64 { return f.confidence }

func (f *fakeProvider) Fetch(ctx context.Context, params map[string]any) (any, string, error) {
	f.calls++
	if f.panics {
		panic("provider blew up")
	}
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, f.source, nil
}

func newTestChain(t *testing.T, providers ...Provider) *ProviderChain {
	t.Helper()
	cache := NewResultCache(t.TempDir(), time.Hour, true)
	limiter := NewRateLimiter(time.Minute)
	return NewProviderChain("find_competitors", cache, limiter, providers...)
}

func TestChainPrimarySuccess(t *testing.T) {
	primary := &fakeProvider{name: "polygon", confidence: 0.85, data: "peers", source: "Polygon API"}
	secondary := &fakeProvider{name: "yahoo", confidence: 0.80, data: "peers", source: "Yahoo Finance"}
	chain := newTestChain(t, primary, secondary)

	result := chain.Resolve(context.Background(), map[string]any{"ticker": "AAPL"})

	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
	if result.SourceUsed != "polygon" {
		t.Fatalf("expected polygon, got %s", result.SourceUsed)
	}
	if result.Confidence != 0.85 {
		t.Fatalf("confidence should come from the serving provider, got %v", result.Confidence)
	}
	if result.FallbackReason != "" {
		t.Fatalf("no fallback happened, but reason is %q", result.FallbackReason)
	}
	if secondary.calls != 0 {
		t.Fatal("secondary provider should not be touched when primary succeeds")
	}
}

func TestChainFallsBackToSecondary(t *testing.T) {
	primary := &fakeProvider{name: "polygon", confidence: 0.85, err: errors.New("HTTP 500")}
	secondary := &fakeProvider{name: "yahoo", confidence: 0.80, data: "peers", source: "Yahoo Finance"}
	chain := newTestChain(t, primary, secondary)

	result := chain.Resolve(context.Background(), map[string]any{"ticker": "AAPL"})

	if !result.Success {
		t.Fatalf("expected success from secondary, got error: %s", result.Error)
	}
	if result.SourceUsed != "yahoo" {
		t.Fatalf("expected yahoo, got %s", result.SourceUsed)
	}
	if result.Confidence != 0.80 {
		t.Fatalf("confidence should be the secondary tier, got %v", result.Confidence)
	}
	if !strings.Contains(result.FallbackReason, "polygon") || !strings.Contains(result.FallbackReason, "HTTP 500") {
		t.Fatalf("fallback reason missing the primary failure: %q", result.FallbackReason)
	}
}

func TestChainRateLimitedProviderSkipped(t *testing.T) {
	primary := &fakeProvider{name: "polygon", confidence: 0.85, data: "peers", source: "Polygon API"}
	secondary := &fakeProvider{name: "yahoo", confidence: 0.80, data: "peers", source: "Yahoo Finance"}

	cache := NewResultCache(t.TempDir(), time.Hour, true)
	limiter := NewRateLimiter(time.Minute)
	limiter.SetLimit("polygon", 0)
	chain := NewProviderChain("find_competitors", cache, limiter, primary, secondary)

	result := chain.Resolve(context.Background(), map[string]any{"ticker": "AAPL"})

	if primary.calls != 0 {
		t.Fatal("rate-limited provider was still called")
	}
	if result.SourceUsed != "yahoo" {
		t.Fatalf("expected yahoo, got %s", result.SourceUsed)
	}
	if !strings.Contains(result.FallbackReason, "rate budget") {
		t.Fatalf("fallback reason should mention the rate budget: %q", result.FallbackReason)
	}
}

func TestChainPanicIsolatedToFailure(t *testing.T) {
	primary := &fakeProvider{name: "polygon", confidence: 0.85, panics: true}
	secondary := &fakeProvider{name: "yahoo", confidence: 0.80, data: "peers", source: "Yahoo Finance"}
	chain := newTestChain(t, primary, secondary)

	result := chain.Resolve(context.Background(), map[string]any{"ticker": "AAPL"})

	if !result.Success {
		t.Fatalf("panic in primary should not fail the chain: %s", result.Error)
	}
	if result.SourceUsed != "yahoo" {
		t.Fatalf("expected yahoo after panic, got %s", result.SourceUsed)
	}
}

func TestChainFreshCacheShortCircuits(t *testing.T) {
	provider := &fakeProvider{name: "polygon", confidence: 0.85, data: "peers", source: "Polygon API"}
	chain := newTestChain(t, provider)
	params := map[string]any{"ticker": "AAPL"}

	first := chain.Resolve(context.Background(), params)
	second := chain.Resolve(context.Background(), params)

	if provider.calls != 1 {
		t.Fatalf("provider called %d times, cache should have served the second call", provider.calls)
	}
	if first.SourceUsed != second.SourceUsed {
		t.Fatalf("cached result differs: %s vs %s", first.SourceUsed, second.SourceUsed)
	}
}

func TestChainServesStaleCacheWhenAllFail(t *testing.T) {
	provider := &fakeProvider{name: "polygon", confidence: 0.85, data: "peers", source: "Polygon API"}
	cache := NewResultCache(t.TempDir(), time.Hour, true)
	limiter := NewRateLimiter(time.Minute)
	chain := NewProviderChain("find_competitors", cache, limiter, provider)
	params := map[string]any{"ticker": "AAPL"}

	chain.Resolve(context.Background(), params)

	// Entry expires and the provider starts failing.
	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	provider.err = errors.New("HTTP 503")

	result := chain.Resolve(context.Background(), params)

	if !result.Success {
		t.Fatalf("stale cache should have been served: %s", result.Error)
	}
	if result.SourceUsed != "stale_cache" {
		t.Fatalf("expected stale_cache, got %s", result.SourceUsed)
	}
	if !strings.Contains(result.FallbackReason, "HTTP 503") {
		t.Fatalf("fallback reason missing provider failure: %q", result.FallbackReason)
	}
}

func TestChainAllSourcesFailed(t *testing.T) {
	primary := &fakeProvider{name: "polygon", confidence: 0.85, err: errors.New("HTTP 500")}
	secondary := &fakeProvider{name: "yahoo", confidence: 0.80, err: errors.New("no data")}
	chain := newTestChain(t, primary, secondary)

	result := chain.Resolve(context.Background(), map[string]any{"ticker": "ZZZZ"})

	if result.Success {
		t.Fatal("expected failure when every provider fails and no cache exists")
	}
	if result.Confidence != 0.0 {
		t.Fatalf("failed result should carry zero confidence, got %v", result.Confidence)
	}
	if !strings.HasPrefix(result.Error, "all data sources failed") {
		t.Fatalf("unexpected error text: %q", result.Error)
	}
	if !strings.Contains(result.Error, "polygon") || !strings.Contains(result.Error, "yahoo") {
		t.Fatalf("error should enumerate each provider failure: %q", result.Error)
	}
}

func TestChainSuccessIsCached(t *testing.T) {
	provider := &fakeProvider{name: "polygon", confidence: 0.85, data: "peers", source: "Polygon API"}
	cache := NewResultCache(t.TempDir(), time.Hour, true)
	chain := NewProviderChain("find_competitors", cache, NewRateLimiter(time.Minute), provider)
	params := map[string]any{"ticker": "AAPL"}

	chain.Resolve(context.Background(), params)

	if _, ok := cache.Get(Fingerprint("find_competitors", params)); !ok {
		t.Fatal("successful resolution was not written to the cache")
	}
}

func TestChainFallbackReasonNamesErrorClass(t *testing.T) {
	primary := &fakeProvider{name: "polygon", confidence: 0.85, err: fmt.Errorf("%w: polygon returned 429", ErrRateLimited)}
	middle := &fakeProvider{name: "sec_edgar", confidence: 1.0, err: fmt.Errorf("%w: SEC_API_USER_AGENT not set", ErrNotConfigured)}
	secondary := &fakeProvider{name: "yahoo", confidence: 0.80, data: "peers", source: "Yahoo Finance"}
	chain := newTestChain(t, primary, middle, secondary)

	result := chain.Resolve(context.Background(), map[string]any{"ticker": "AAPL"})

	if !result.Success {
		t.Fatalf("expected success from secondary, got error: %s", result.Error)
	}
	if !strings.Contains(result.FallbackReason, "rate limited upstream") {
		t.Fatalf("reason should classify the 429: %q", result.FallbackReason)
	}
	if !strings.Contains(result.FallbackReason, "not configured") {
		t.Fatalf("reason should classify the missing key: %q", result.FallbackReason)
	}
}
