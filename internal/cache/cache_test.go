package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewFromRedis(rc), mr
}

func TestClient_IncrSetsTTLOnce(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	n, ok := c.Incr(ctx, "k", time.Minute)
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	mr.FastForward(30 * time.Second)
	n, ok = c.Incr(ctx, "k", time.Minute)
	require.True(t, ok)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 30*time.Second, mr.TTL("k"))

	mr.FastForward(31 * time.Second)
	n, _ = c.Incr(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), n)
}

func TestClient_IncrRepairsMissingTTL(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("k", "9"))
	require.Zero(t, mr.TTL("k"))

	n, ok := c.Incr(ctx, "k", time.Minute)
	require.True(t, ok)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	mr.FastForward(time.Minute + time.Second)
	assert.False(t, mr.Exists("k"))
}

func TestClient_Delete(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	c.Incr(ctx, "k", time.Minute)
	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestClient_FailsSafe(t *testing.T) {
	c, mr := newTestClient(t)
	mr.Close()
	ctx := context.Background()

	n, ok := c.Incr(ctx, "k", time.Minute)
	assert.False(t, ok)
	assert.Zero(t, n)
	assert.Error(t, c.Delete(ctx, "k"))
	assert.Error(t, c.Ping(ctx))
}

func TestClient_Nil(t *testing.T) {
	var c *Client
	ctx := context.Background()

	_, ok := c.Incr(ctx, "k", time.Minute)
	assert.False(t, ok)
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(ctx))
}
