package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	s := miniredis.RunT(t)
	cache, err := NewRedisCache(&Config{Host: s.Host(), Port: s.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	return s, cache
}

func TestNewRedisCache_RequiresHost(t *testing.T) {
	_, err := NewRedisCache(&Config{})
	assert.Error(t, err)

	_, err = NewRedisCache(nil)
	assert.Error(t, err)
}

func TestNewRedisCache_FailFastUnreachable(t *testing.T) {
	_, err := NewRedisCache(&Config{Host: "127.0.0.1", Port: "1", DialTimeout: 100 * time.Millisecond})
	assert.Error(t, err)
}

func TestRedisCache_GetSetDelete(t *testing.T) {
	s, cache := newTestCache(t)
	ctx := context.Background()

	value, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", value)

	require.NoError(t, cache.Set(ctx, "greeting", "hello", time.Minute))

	value, err = cache.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", value)

	s.FastForward(2 * time.Minute)

	value, err = cache.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "", value, "ttl should expire the key")

	require.NoError(t, cache.Set(ctx, "sticky", "v", 0))
	require.NoError(t, cache.Delete(ctx, "sticky"))
	assert.False(t, s.Exists("sticky"))
}

func TestRedisCache_PingAndClient(t *testing.T) {
	_, cache := newTestCache(t)

	assert.NoError(t, cache.Ping(context.Background()))
	assert.NotNil(t, cache.GetClient())
}
