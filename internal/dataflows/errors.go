package dataflows

import "errors"

// Provider error classes. The provider chain inspects these with errors.Is
// to decide how to describe a fallback; any other error is treated as an
// unexpected upstream failure. No error escapes Resolve.
var (
	// ErrRateLimited signals the provider's own upstream rate limit
	// (e.g. an HTTP 429), as opposed to the local call budget.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrNotConfigured signals a provider whose API key is absent.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrNoData signals a well-formed response with nothing usable in it.
	ErrNoData = errors.New("no data available")
)
