package dataflows

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/finsightai/finsight/internal/models"
)

// cacheEnvelope is the on-disk shape of one cache entry.
type cacheEnvelope struct {
	Result   models.ActionResult `json:"result"`
	CachedAt time.Time           `json:"cached_at"`
}

// ResultCache is a TTL-keyed file cache mapping a request fingerprint to a
// previously resolved ActionResult. It is a shared, process-wide resource:
// all read-modify-write sections hold the mutex so concurrent queries
// cannot corrupt the store. Writes are idempotent last-writer-wins.
type ResultCache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	mu      sync.Mutex
	now     func() time.Time
}

// NewResultCache creates a cache rooted at dir with the given TTL.
func NewResultCache(dir string, ttl time.Duration, enabled bool) *ResultCache {
	return &ResultCache{
		dir:     dir,
		ttl:     ttl,
		enabled: enabled,
		now:     time.Now,
	}
}

// Fingerprint derives a deterministic cache key from a capability name and
// its normalized parameters. Map keys are sorted by json.Marshal and string
// values are case-folded, so "aapl" and "AAPL" hit the same entry.
func Fingerprint(capability string, params map[string]any) string {
	norm := make(map[string]any, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			norm[k] = strings.ToLower(strings.TrimSpace(s))
		} else {
			norm[k] = v
		}
	}
	data, _ := json.Marshal(norm)
	hash := md5.Sum(data)
	return fmt.Sprintf("%s_%x", strings.ToLower(capability), hash)
}

// Get returns the cached result for a fingerprint if it is younger than the
// TTL. Expired and missing entries report false.
func (c *ResultCache) Get(fingerprint string) (models.ActionResult, bool) {
	env, ok := c.read(fingerprint)
	if !ok {
		return models.ActionResult{}, false
	}
	if c.now().Sub(env.CachedAt) >= c.ttl {
		return models.ActionResult{}, false
	}
	return env.Result, true
}

// GetStale returns the cached result regardless of age. Used as the
// last-resort fallback when every provider has failed.
func (c *ResultCache) GetStale(fingerprint string) (models.ActionResult, bool) {
	env, ok := c.read(fingerprint)
	if !ok {
		return models.ActionResult{}, false
	}
	return env.Result, true
}

// Put stores a result under the fingerprint. Cache write failures are
// swallowed: a broken cache must never fail the request that produced
// the result.
func (c *ResultCache) Put(fingerprint string, result models.ActionResult) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}

	env := cacheEnvelope{Result: result, CachedAt: c.now().UTC()}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path(fingerprint), data, 0o644)
}

func (c *ResultCache) read(fingerprint string) (cacheEnvelope, bool) {
	if !c.enabled {
		return cacheEnvelope{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(fingerprint))
	if err != nil {
		return cacheEnvelope{}, false
	}

	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return cacheEnvelope{}, false
	}
	return env, true
}

func (c *ResultCache) path(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".json")
}
