package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskboard-api/internal/platform/redis"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	kv := redis.NewKVFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = kv.Close() })

	return New(kv, time.Minute, slog.Default()), mr
}

func TestKeyCanonicalization(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		params map[string]string
		want   string
	}{
		{
			name:   "no params",
			prefix: "tasks:stats",
			params: nil,
			want:   "tasks:stats",
		},
		{
			name:   "single param",
			prefix: "tasks:item",
			params: map[string]string{"id": "42"},
			want:   "tasks:item:id=42",
		},
		{
			name:   "params sorted by name",
			prefix: "tasks:list",
			params: map[string]string{"status": "pending", "limit": "20", "page": "2"},
			want:   "tasks:list:limit=20:page=2:status=pending",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Key(tc.prefix, tc.params))
		})
	}
}

func TestKeyOrderIndependent(t *testing.T) {
	// Map iteration order varies between runs; the derived key must not.
	a := Key("tasks:list", map[string]string{"page": "1", "limit": "20", "status": "pending", "priority": "high"})
	b := Key("tasks:list", map[string]string{"priority": "high", "status": "pending", "limit": "20", "page": "1"})
	assert.Equal(t, a, b)
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, found := Read[payload](ctx, c, "missing")
	assert.False(t, found)

	c.Write(ctx, "p", payload{Name: "report", Count: 3}, 0)

	got, found := Read[payload](ctx, c, "p")
	require.True(t, found)
	assert.Equal(t, payload{Name: "report", Count: 3}, got)
}

func TestCacheEntryExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Write(ctx, "p", payload{Name: "brief"}, 30*time.Second)

	mr.FastForward(31 * time.Second)

	_, found := Read[payload](ctx, c, "p")
	assert.False(t, found, "entry should expire with its TTL")
}

func TestCacheCorruptPayloadIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("p", "{not json"))

	_, found := Read[payload](ctx, c, "p")
	assert.False(t, found, "corrupt payload must read as a miss")
}

func TestCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Write(ctx, "a", payload{Name: "a"}, 0)
	c.Write(ctx, "b", payload{Name: "b"}, 0)

	c.Invalidate(ctx, "a", "b")

	_, found := Read[payload](ctx, c, "a")
	assert.False(t, found)
	_, found = Read[payload](ctx, c, "b")
	assert.False(t, found)
}

func TestCacheInvalidateByPrefix(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Write(ctx, "tasks:list:u1:page=1", payload{}, 0)
	c.Write(ctx, "tasks:list:u1:page=2", payload{}, 0)
	c.Write(ctx, "tasks:list:u2:page=1", payload{Name: "other"}, 0)

	c.InvalidateByPrefix(ctx, "tasks:list:u1:*")

	_, found := Read[payload](ctx, c, "tasks:list:u1:page=1")
	assert.False(t, found)
	_, found = Read[payload](ctx, c, "tasks:list:u2:page=1")
	assert.True(t, found, "other users' entries must survive")
}

func TestCacheReadFailureIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Write(ctx, "p", payload{Name: "x"}, 0)
	mr.Close()

	_, found := Read[payload](ctx, c, "p")
	assert.False(t, found, "store failure must degrade to a miss")
}
