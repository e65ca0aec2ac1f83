package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := NewRedisCache(RedisConfig{
		Address:  mr.Addr(),
		PoolSize: 10,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c, mr
}

func TestRedisCache_MarkAndCheck(t *testing.T) {
	ctx := context.Background()
	c, mr := setupTestRedis(t)

	processed, err := c.IsProcessed(ctx, "sig-1")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, c.MarkProcessed(ctx, "sig-1", time.Minute))

	processed, err = c.IsProcessed(ctx, "sig-1")
	require.NoError(t, err)
	assert.True(t, processed)

	assert.True(t, mr.Exists(redisKeyPrefix+"sig-1"))
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"sig-1"))
}

func TestRedisCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, mr := setupTestRedis(t)

	require.NoError(t, c.MarkProcessed(ctx, "sig", time.Minute))
	mr.FastForward(2 * time.Minute)

	processed, err := c.IsProcessed(ctx, "sig")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestRedisCache_Errors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		_, err = NewRedisCache(RedisConfig{Address: addr, DialTimeout: 100 * time.Millisecond})
		assert.Error(t, err)
	})

	t.Run("server failure surfaces", func(t *testing.T) {
		ctx := context.Background()
		c, mr := setupTestRedis(t)
		mr.SetError("boom")

		_, err := c.IsProcessed(ctx, "sig")
		assert.Error(t, err)
		assert.Error(t, c.MarkProcessed(ctx, "sig", time.Minute))
	})
}

func TestNewRedisCacheFromClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer c.Close()

	require.NoError(t, c.MarkProcessed(context.Background(), "x", time.Second))
	assert.True(t, mr.Exists(redisKeyPrefix+"x"))
}
