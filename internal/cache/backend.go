// Package cache memoises query score vectors. A Backend is a key-value store
// with expiry; the Redis implementation is used when the backend answered the
// startup probe, and the no-op implementation otherwise, so the scorer never
// branches on cache availability.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dsipek/nj-search-engine/pkg/logger"
	pkgredis "github.com/Dsipek/nj-search-engine/pkg/redis"
)

// Backend is the minimal key-value contract the result cache needs.
type Backend interface {
	// Get returns the stored value and whether the key was present and
	// unexpired. Backend failures are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key with the given TTL, best effort.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// FlushPrefix removes all keys starting with prefix and returns how many
	// were deleted.
	FlushPrefix(ctx context.Context, prefix string) (int64, error)
}

// RedisBackend stores cache entries in Redis.
type RedisBackend struct {
	client *pkgredis.Client
	logger *slog.Logger
}

// NewRedisBackend wraps an already-probed Redis client.
func NewRedisBackend(client *pkgredis.Client) *RedisBackend {
	return &RedisBackend{
		client: client,
		logger: logger.WithComponent("cache-backend"),
	}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := b.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			b.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return []byte(data), true
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := b.client.Set(ctx, key, value, ttl); err != nil {
		b.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (b *RedisBackend) FlushPrefix(ctx context.Context, prefix string) (int64, error) {
	return b.client.FlushByPattern(ctx, prefix+"*")
}

// NopBackend is used when the cache backend is unreachable: every lookup
// misses and every store is discarded, so scoring proceeds uncached.
type NopBackend struct{}

func (NopBackend) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }

func (NopBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {}

func (NopBackend) FlushPrefix(ctx context.Context, prefix string) (int64, error) { return 0, nil }
