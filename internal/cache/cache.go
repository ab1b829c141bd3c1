// Package cache maps application query signatures to serialized result
// blobs with TTL in the shared key-value store. The cache is best-effort:
// a cache failure must never surface as a request failure, so every
// operation here degrades to a miss or a logged warning.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/phrazzld/taskboard-api/internal/platform/redis"
)

// Cache provides typed read/write access to the key-value store with
// best-effort semantics.
type Cache struct {
	kv         *redis.KV
	defaultTTL time.Duration
	logger     *slog.Logger
}

// New creates a Cache backed by the given key-value adapter.
func New(kv *redis.KV, defaultTTL time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		kv:         kv,
		defaultTTL: defaultTTL,
		logger:     logger.With(slog.String("component", "cache")),
	}
}

// Key derives a stable cache key from a prefix and a parameter map.
// Parameters are canonicalized by sorting their names lexicographically and
// joining them as name=value pairs, so two logically identical queries hash
// to the same key regardless of caller-supplied ordering.
func Key(prefix string, params map[string]string) string {
	if len(params) == 0 {
		return prefix
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(prefix)
	for _, name := range names {
		b.WriteByte(':')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}
	return b.String()
}

// Read fetches and deserializes the value stored at key. A store error or a
// deserialization failure is treated as a miss, never returned to the caller.
func Read[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T

	raw, found, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return zero, false
	}
	if !found {
		return zero, false
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		c.logger.Warn("cache payload corrupt, treating as miss",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return zero, false
	}

	return value, true
}

// Write serializes and stores the value at key. TTL <= 0 uses the default.
// Store errors are logged and swallowed so the caller's operation still
// succeeds.
func (c *Cache) Write(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache serialization failed, skipping write",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}

	if err := c.kv.Set(ctx, key, raw, ttl); err != nil {
		c.logger.Warn("cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

// Invalidate deletes the exact keys. Best-effort: errors are logged.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if err := c.kv.Delete(ctx, keys...); err != nil {
		c.logger.Warn("cache invalidation failed",
			slog.String("keys", strings.Join(keys, ",")),
			slog.String("error", err.Error()))
	}
}

// InvalidateByPrefix deletes every key matching the glob pattern.
// Best-effort: errors are logged.
func (c *Cache) InvalidateByPrefix(ctx context.Context, pattern string) {
	if err := c.kv.DeleteByPattern(ctx, pattern); err != nil {
		c.logger.Warn("cache pattern invalidation failed",
			slog.String("pattern", pattern),
			slog.String("error", err.Error()))
	}
}
