package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetString(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, GenerateKey("prior", "BTC"), "62000.5", time.Hour))

	var got string
	require.NoError(t, c.Get(ctx, "prior:BTC", &got))
	assert.Equal(t, "62000.5", got)

	ok, err := c.Exists(ctx, "prior:BTC")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(WithMemoryClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	now = now.Add(2 * time.Minute)

	var got string
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	var v string
	require.NoError(t, c.Get(ctx, "a", &v))
	require.NoError(t, c.Set(ctx, "c", "3", 0))

	assert.ErrorIs(t, c.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, c.Get(ctx, "a", &v))
	assert.NoError(t, c.Get(ctx, "c", &v))
}

func TestMemoryCache_JSONValues(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", map[string]float64{"v": 1.5}, 0))

	var got map[string]float64
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 1.5, got["v"])

	require.NoError(t, c.Delete(ctx, "k"))
	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
