package dataflows

import (
	"sync"
	"time"
)

// RateLimiter enforces a sliding-window call budget per provider. It is a
// shared, process-wide resource injected into every provider chain; the
// prune-check-record sequence is atomic per call under one mutex.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	limits map[string]int
	calls  map[string][]time.Time
	now    func() time.Time
}

// NewRateLimiter creates a limiter with the given sliding window. Providers
// without a configured limit are unmetered.
func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		limits: make(map[string]int),
		calls:  make(map[string][]time.Time),
		now:    time.Now,
	}
}

// SetLimit caps a provider at maxCalls per window.
func (rl *RateLimiter) SetLimit(provider string, maxCalls int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limits[provider] = maxCalls
}

// Allow reports whether the provider still has budget in the current
// window, and records the call when it does. Entries older than the window
// are pruned first, so budget is restored as calls slide out.
func (rl *RateLimiter) Allow(provider string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, limited := rl.limits[provider]

	now := rl.now()
	recent := rl.calls[provider][:0]
	for _, t := range rl.calls[provider] {
		if now.Sub(t) < rl.window {
			recent = append(recent, t)
		}
	}
	rl.calls[provider] = recent

	if limited && len(recent) >= limit {
		return false
	}

	rl.calls[provider] = append(recent, now)
	return true
}
