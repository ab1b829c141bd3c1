// Package ratelimit implements a fixed-window request limiter whose counters
// live in the shared key-value store, so the same identity maps to the same
// counter regardless of which instance handles the request.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/taskboard-api/internal/platform/redis"
)

// keyPrefix namespaces rate-limit counters in the key-value store.
const keyPrefix = "throttle:"

// Decision is the outcome of a rate-limit check for a single request.
type Decision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter counts requests per identity within a fixed window.
type Limiter struct {
	kv     *redis.KV
	limit  int64
	window time.Duration
}

// New creates a Limiter with the given per-window request limit.
func New(kv *redis.KV, limit int64, window time.Duration) *Limiter {
	return &Limiter{kv: kv, limit: limit, window: window}
}

// Allow records a request for the identity and decides whether it is within
// the window's limit. The increment and TTL read execute atomically in the
// store, so concurrent requests from multiple instances never under-count.
// A store error propagates to the caller, which owns the fail-open versus
// fail-closed decision.
func (l *Limiter) Allow(ctx context.Context, identity string) (Decision, error) {
	count, remaining, err := l.kv.IncrWithTTL(ctx, keyPrefix+identity, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check for %q: %w", identity, err)
	}

	if count > l.limit {
		return Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: remaining,
		}, nil
	}

	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - count,
	}, nil
}
