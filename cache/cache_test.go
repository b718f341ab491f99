package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[[]string](0)

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []string{"x"}))
	val, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"x"}, val)

	exists, err := c.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Del(ctx, "a"))
	exists, err = c.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	c := NewMemoryCache[int](time.Minute)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", 1))
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCacheDropsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	c := NewMemoryCache[int](time.Minute)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "read", 1))
	require.NoError(t, c.Set(ctx, "idle", 2))
	now = now.Add(2 * time.Minute)

	exists, err := c.Exists(ctx, "read")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NotContains(t, c.m, "read")

	// the next write sweeps entries nobody asked for
	require.NoError(t, c.Set(ctx, "fresh", 3))
	assert.NotContains(t, c.m, "idle")
	assert.Equal(t, 1, c.Len())
}

func TestRedisCacheLive(t *testing.T) {
	url := os.Getenv("MOVIEBOT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("set MOVIEBOT_TEST_REDIS_URL to run")
	}
	ctx := context.Background()
	client, err := DialRedis(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisCache[[]string](client, time.Minute)
	require.NoError(t, c.Set(ctx, "moviebot:test", []string{"a", "b"}))
	val, ok, err := c.Get(ctx, "moviebot:test")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, val)
	require.NoError(t, c.Del(ctx, "moviebot:test"))
}
