package factory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/constants"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	client *redis.Client
}

func (f *fakeCache) Ping(ctx context.Context) error { return f.client.Ping(ctx).Err() }

func (f *fakeCache) GetClient() *redis.Client { return f.client }

type pingOnlyCache struct{}

func (pingOnlyCache) Ping(context.Context) error { return nil }

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.messages = append(l.messages, msg)
}

func joinQuota(store string, logger ratelimit.Logger) WindowLimitConfig {
	return WindowLimitConfig{
		MaxAttempts: constants.DefaultJoinAttemptsPerWindow,
		Window:      constants.DefaultJoinWindow(),
		MaxEntries:  constants.DefaultJoinTrackedIdentities,
		Store:       store,
		Logger:      logger,
	}
}

func TestCreateWindowLimiter_DefaultsToMemory(t *testing.T) {
	limiter, err := NewDefaultWindowLimiterFactory(joinQuota("", nil), nil).CreateWindowLimiter()
	require.NoError(t, err)
	defer limiter.Close()

	assert.IsType(t, &ratelimit.MemoryWindowLimiter{}, limiter)

	requests, window := limiter.GetLimitDetails()
	assert.Equal(t, 5, requests)
	assert.Equal(t, 30*time.Minute, window)
}

func TestCreateWindowLimiter_Redis(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewDefaultWindowLimiterFactory(joinQuota(" Redis ", nil), &fakeCache{client: client}).CreateWindowLimiter()
	require.NoError(t, err)

	assert.IsType(t, &ratelimit.RedisWindowLimiter{}, limiter)

	decision, err := limiter.Allow(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCreateWindowLimiter_RedisWithoutClientFallsBack(t *testing.T) {
	logger := &recordingLogger{}

	limiter, err := NewDefaultWindowLimiterFactory(joinQuota(constants.RateLimitStoreRedis, logger), pingOnlyCache{}).CreateWindowLimiter()
	require.NoError(t, err)

	assert.IsType(t, &ratelimit.MemoryWindowLimiter{}, limiter)
	assert.Len(t, logger.messages, 1)
}

func TestCreateWindowLimiter_UnknownStore(t *testing.T) {
	_, err := NewDefaultWindowLimiterFactory(joinQuota("memcached", nil), nil).CreateWindowLimiter()
	assert.ErrorContains(t, err, "memcached")
}

func TestNewFactoryContainer(t *testing.T) {
	container := NewFactoryContainer(
		&RateLimitConfig{Requests: 100, Window: time.Minute},
		joinQuota(constants.RateLimitStoreMemory, nil),
		nil,
	)

	routerLimiter := container.RateLimiterFactory.CreateRateLimiter()
	defer routerLimiter.Close()
	assert.IsType(t, &ratelimit.InMemoryRateLimiter{}, routerLimiter)

	joinLimiter, err := container.WindowLimiterFactory.CreateWindowLimiter()
	require.NoError(t, err)
	assert.NotNil(t, joinLimiter)
}
