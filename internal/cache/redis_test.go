package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, ttl), mr
}

func TestRedisRoundTrip(t *testing.T) {
	store, mr := newRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Entry{Query: "what is go?", Response: `{"answer":"a language"}`}))
	assert.True(t, mr.Exists(keyPrefix+"what is go?"))
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"what is go?"))

	e, ok, err := store.Get(ctx, "what is go?")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"answer":"a language"}`, e.Response)
	assert.False(t, e.CreatedAt.IsZero())

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisTTLExpiry(t *testing.T) {
	store, mr := newRedis(t, time.Hour)
	c := New(store, zap.NewNop())
	ctx := context.Background()
	var calls int32

	_, _, err := c.GetOrCompute(ctx, "q", counting(&calls, "r1"))
	require.NoError(t, err)
	_, cached, err := c.GetOrCompute(ctx, "Q", counting(&calls, "r2"))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	mr.FastForward(time.Hour + time.Second)
	resp, cached, err := c.GetOrCompute(ctx, "q", counting(&calls, "r3"))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "r3", resp)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestRedisLenAndClear(t *testing.T) {
	store, mr := newRedis(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, mr.Set("unrelated", "x"))
	for _, q := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, Entry{Query: q, Response: q}))
	}

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, store.Clear(ctx))
	n, err = store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisGetFailsWhenDown(t *testing.T) {
	store, mr := newRedis(t, time.Minute)
	mr.Close()

	c := New(store, zap.NewNop())
	var calls int32
	resp, cached, err := c.GetOrCompute(context.Background(), "q", counting(&calls, "fresh"))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "fresh", resp)
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	store, err := DialRedis(context.Background(), addr, "", 0, 0)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, DefaultTTL, store.ttl)

	mr.Close()
	_, err = DialRedis(context.Background(), addr, "", 0, 0)
	assert.Error(t, err)
}
