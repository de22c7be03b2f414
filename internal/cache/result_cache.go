package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Dsipek/nj-search-engine/pkg/logger"
)

// keyPrefix namespaces score-vector entries in the shared backend. The full
// key is the prefix plus the raw, unnormalised query text.
const keyPrefix = "tfidf:"

// ResultCache memoises per-document score vectors keyed by raw query string.
type ResultCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewResultCache creates a ResultCache over the given backend. Entries
// expire ttl after insertion.
func NewResultCache(backend Backend, ttl time.Duration) *ResultCache {
	return &ResultCache{
		backend: backend,
		ttl:     ttl,
		logger:  logger.WithComponent("result-cache"),
	}
}

// Get returns the cached score vector for query, if present and unexpired.
func (c *ResultCache) Get(ctx context.Context, query string) ([]float64, bool) {
	data, ok := c.backend.Get(ctx, keyPrefix+query)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	var scores []float64
	if err := json.Unmarshal(data, &scores); err != nil {
		c.logger.Error("cache unmarshal failed", "query", query, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query)
	return scores, true
}

// Set stores the score vector for query with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, query string, scores []float64) {
	data, err := json.Marshal(scores)
	if err != nil {
		c.logger.Error("cache marshal failed", "query", query, "error", err)
		return
	}
	c.backend.Set(ctx, keyPrefix+query, data, c.ttl)
}

// GetOrCompute returns the cached vector for query or computes and stores
// it. Concurrent calls for the same query are collapsed into a single
// computation. The bool result reports whether the value came from the
// cache.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	query string,
	computeFn func() ([]float64, error),
) ([]float64, bool, error) {
	if scores, ok := c.Get(ctx, query); ok {
		return scores, true, nil
	}
	val, err, _ := c.group.Do(keyPrefix+query, func() (interface{}, error) {
		if scores, ok := c.Get(ctx, query); ok {
			return scores, nil
		}
		scores, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, scores)
		return scores, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]float64), false, nil
}

// Invalidate removes every cached score vector.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	return c.backend.FlushPrefix(ctx, keyPrefix)
}

// Stats returns the hit and miss counters.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
