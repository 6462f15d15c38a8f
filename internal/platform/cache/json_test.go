package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*JSONCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewJSONCache(client, "test", time.Minute), mr
}

type payload struct {
	Score float64 `json:"score"`
}

func TestFetchJSONPopulatesOnce(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key, err := c.BuildKey(ctx, "analysis", "abc")
	require.NoError(t, err)
	require.Equal(t, "test:analysis:abc:1", key)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Score: 0.42}, nil
	}
	var first, second payload
	require.NoError(t, c.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, 0.42, second.Score)
	require.True(t, mr.Exists(key))
	require.Equal(t, time.Minute, mr.TTL(key))
}

func TestBumpChangesKeys(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	before, err := c.BuildKey(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))
	after, err := c.BuildKey(ctx, "k")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestGetSet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	var out payload
	require.True(t, errors.Is(c.Get(ctx, "missing", &out), ErrMiss))
	require.NoError(t, c.Set(ctx, "present", payload{Score: 1}, 0))
	require.NoError(t, c.Get(ctx, "present", &out))
	require.Equal(t, 1.0, out.Score)
}

func TestNilCacheIsPassThrough(t *testing.T) {
	var c *JSONCache
	ctx := context.Background()
	var out payload
	require.NoError(t, c.FetchJSON(ctx, "k", &out, func(context.Context) (any, error) { return payload{Score: 2}, nil }))
	require.Equal(t, 2.0, out.Score)
	require.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)
	require.NoError(t, c.Bump(ctx))
}
