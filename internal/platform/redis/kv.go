// Package redis provides a thin client adapter for the shared key-value
// store. Both the cache layer and the rate limiter build on it.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is a thin adapter over a Redis client exposing only the operations the
// application needs: get/set/delete, pattern delete, and the atomic
// increment-with-expiry used by the rate limiter.
type KV struct {
	client *redis.Client
}

// NewKV creates a KV adapter connected to the given address.
func NewKV(addr, password string, db int) *KV {
	return &KV{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// NewKVFromClient wraps an existing client. Used by tests.
func NewKVFromClient(client *redis.Client) *KV {
	return &KV{client: client}
}

// Get returns the bytes stored at key. found is false when the key is absent.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := kv.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return val, true, nil
}

// Set stores value at key with the given TTL.
func (kv *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := kv.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// Delete removes the given keys. Absent keys are not an error.
func (kv *KV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := kv.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("kv delete: %w", err)
	}
	return nil
}

// DeleteByPattern removes all keys matching the glob pattern using an
// incremental SCAN rather than KEYS, which would block the store.
func (kv *KV) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := kv.client.Scan(ctx, 0, pattern, 100).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			if err := kv.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("kv delete pattern %q: %w", pattern, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("kv scan pattern %q: %w", pattern, err)
	}

	if len(batch) > 0 {
		if err := kv.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("kv delete pattern %q: %w", pattern, err)
		}
	}

	return nil
}

// IncrWithTTL atomically increments the counter at key and reads its
// remaining TTL in one pipelined round trip, so concurrent callers never
// under-count. If the key was just created by this increment it carries no
// expiry yet; a follow-up PEXPIRE sets the window. That follow-up is not
// atomic with the increment — only the creating caller observes the missing
// TTL, and overlapping requests are still counted correctly by the
// increment itself.
//
// Errors propagate to the caller; the fail-open/fail-closed decision belongs
// to the rate limiter, not this adapter.
func (kv *KV) IncrWithTTL(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error) {
	pipe := kv.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pttl := pipe.PTTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("kv incr %q: %w", key, err)
	}

	count = incr.Val()
	remaining = pttl.Val()

	// PTTL returns a negative duration when the key has no expiry set,
	// which means this increment created it.
	if remaining < 0 {
		if err := kv.client.PExpire(ctx, key, window).Err(); err != nil {
			return count, window, fmt.Errorf("kv expire %q: %w", key, err)
		}
		remaining = window
	}

	return count, remaining, nil
}

// Ping verifies connectivity to the store. Used by readiness checks.
func (kv *KV) Ping(ctx context.Context) error {
	if err := kv.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("kv ping: %w", err)
	}
	return nil
}

// Close releases the underlying client connections.
func (kv *KV) Close() error {
	return kv.client.Close()
}
