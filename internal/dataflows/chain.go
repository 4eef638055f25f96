package dataflows

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/finsightai/finsight/internal/models"
)

// Provider is one concrete upstream source serving a capability. Fetch
// returns the payload and a human-readable provenance string; every failure
// mode is an error return, never a panic that crosses the chain boundary.
type Provider interface {
	Name() string
	Confidence() float64
	Fetch(ctx context.Context, params map[string]any) (data any, source string, err error)
}

// attemptTimeout bounds each provider network attempt.
const attemptTimeout = 10 * time.Second

// ProviderChain resolves one capability through an ordered list of
// providers with graceful degradation: fresh cache, then each provider in
// priority order, then the most recent stale cache entry, then a
// standardized failure. Resolve always returns a result, never an error.
type ProviderChain struct {
	capability string
	cache      *ResultCache
	limiter    *RateLimiter
	providers  []Provider
}

// NewProviderChain wires a capability to its providers and the shared
// cache/rate-limiter services.
func NewProviderChain(capability string, cache *ResultCache, limiter *RateLimiter, providers ...Provider) *ProviderChain {
	return &ProviderChain{
		capability: capability,
		cache:      cache,
		limiter:    limiter,
		providers:  providers,
	}
}

// Capability returns the logical operation this chain serves.
func (pc *ProviderChain) Capability() string {
	return pc.capability
}

// Resolve runs the cascade for one invocation.
func (pc *ProviderChain) Resolve(ctx context.Context, params map[string]any) models.ActionResult {
	fingerprint := Fingerprint(pc.capability, params)

	// Fresh cache short-circuits everything: no network call, no
	// rate-limit consumption.
	if cached, ok := pc.cache.Get(fingerprint); ok {
		log.Printf("%s: using cached result", pc.capability)
		return cached
	}

	var reasons []string

	for _, provider := range pc.providers {
		if !pc.limiter.Allow(provider.Name()) {
			reason := fmt.Sprintf("%s: local rate budget exhausted", provider.Name())
			log.Printf("%s: skipping provider, %s", pc.capability, reason)
			reasons = append(reasons, reason)
			continue
		}

		data, source, err := pc.fetch(ctx, provider, params)
		if err != nil {
			reason := fmt.Sprintf("%s: %s (%v)", provider.Name(), classifyError(err), err)
			log.Printf("%s: provider failed, %s", pc.capability, reason)
			reasons = append(reasons, reason)
			continue
		}

		result := models.NewSuccessResult(pc.capability, params, data, source, provider.Confidence())
		result.SourceUsed = provider.Name()
		result.FallbackReason = strings.Join(reasons, "; ")

		pc.cache.Put(fingerprint, result)
		return result
	}

	// All providers exhausted: a stale entry beats no answer.
	if stale, ok := pc.cache.GetStale(fingerprint); ok {
		log.Printf("%s: all providers failed, serving stale cache", pc.capability)
		stale.SourceUsed = "stale_cache"
		stale.FallbackReason = strings.Join(reasons, "; ")
		return stale
	}

	errMsg := "all data sources failed"
	if len(reasons) > 0 {
		errMsg = "all data sources failed: " + strings.Join(reasons, "; ")
	}
	return models.NewErrorResult(pc.capability, params, pc.capability, errMsg)
}

// classifyError names the failure class carried by a provider error so
// fallback reasons distinguish upstream throttling from hard failures.
func classifyError(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate limited upstream"
	case errors.Is(err, ErrNotConfigured):
		return "not configured"
	case errors.Is(err, ErrNoData):
		return "no usable data"
	default:
		return "failed"
	}
}

// fetch invokes one provider with a bounded context and converts any panic
// into an ordinary error so the cascade can continue.
func (pc *ProviderChain) fetch(ctx context.Context, provider Provider, params map[string]any) (data any, source string, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	return provider.Fetch(attemptCtx, params)
}
