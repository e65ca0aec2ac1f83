package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		c, err := NewCache(CacheConfig{Enabled: false, Type: "redis"})
		require.NoError(t, err)
		assert.IsType(t, &NoOpCache{}, c)
	})

	t.Run("memory", func(t *testing.T) {
		c, err := NewCache(CacheConfig{Enabled: true, Type: "memory", Memory: MemoryConfig{MaxSize: 5}})
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &MemoryCache{}, c)
	})

	t.Run("redis", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()

		c, err := NewCache(CacheConfig{Enabled: true, Type: "redis", Redis: RedisConfig{Address: mr.Addr()}})
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &RedisCache{}, c)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewCache(CacheConfig{Enabled: true, Type: "memcached"})
		assert.Error(t, err)
	})
}
