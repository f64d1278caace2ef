package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"
)

const (
	routerKeyPrefix = "ratelimit:router:"
	redisCallBudget = 500 * time.Millisecond

	// sweepEvery is how many IsLimited calls pass between idle-bucket sweeps.
	sweepEvery = 1024
)

type Logger interface {
	Error(msg string, args ...interface{})
}

// RateLimiter is the router-wide request limiter strategy, applied per client IP before
// any handler runs.
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	IsLimited(key string) (bool, error)
	Close() error
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Redis selects the shared sliding-window limiter; nil keeps buckets in process.
	Redis  *redis.Client
	Logger Logger
}

func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	if config.Redis != nil {
		return NewRedisRateLimiter(config.Redis, config.Requests, config.Window, config.Logger)
	}
	return NewInMemoryRateLimiter(config.Requests, config.Window)
}

// InMemoryRateLimiter gives every key a token bucket holding Requests tokens that refill
// evenly over Window. Buckets idle for two windows are dropped.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration
	clock    clock.PassiveClock

	mu      sync.Mutex
	buckets map[string]*bucket
	calls   uint64
}

type bucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return NewInMemoryRateLimiterWithClock(requests, window, clock.RealClock{})
}

func NewInMemoryRateLimiterWithClock(requests int, window time.Duration, c clock.PassiveClock) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		clock:    c,
		buckets:  make(map[string]*bucket),
	}
}

func (r *InMemoryRateLimiter) IsLimited(key string) (bool, error) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok {
		every := r.window / time.Duration(max(r.requests, 1))
		b = &bucket{tokens: rate.NewLimiter(rate.Every(every), r.requests)}
		r.buckets[key] = b
	}
	b.lastSeen = now

	if r.calls++; r.calls%sweepEvery == 0 {
		r.sweep(now.Add(-2 * r.window))
	}

	return !b.tokens.AllowN(now, 1), nil
}

// sweep must be called with mu held.
func (r *InMemoryRateLimiter) sweep(cutoff time.Time) {
	for key, b := range r.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(r.buckets, key)
		}
	}
}

func (r *InMemoryRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *InMemoryRateLimiter) Close() error {
	return nil
}

// slidingWindowScript keeps one sorted-set member per admitted request. It returns 1
// when the request is limited.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
if redis.call('ZCARD', key) >= limit then
	return 1
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, 2 * window)
return 0
`)

// RedisRateLimiter shares a sliding window between replicas. The client belongs to the
// application cache and is not closed here.
type RedisRateLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	clock    clock.PassiveClock
	logger   Logger
}

func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration, logger Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		requests: requests,
		window:   window,
		clock:    clock.RealClock{},
		logger:   logger,
	}
}

func (r *RedisRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

// IsLimited returns an error rather than a verdict when Redis fails; the caller decides
// whether to fail open.
func (r *RedisRateLimiter) IsLimited(key string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisCallBudget)
	defer cancel()

	redisKey := routerKeyPrefix + key
	limited, err := slidingWindowScript.Run(ctx, r.client, []string{redisKey},
		r.clock.Now().UnixMilli(), r.window.Milliseconds(), r.requests, uuid.NewString(),
	).Int64()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Redis rate limit script failed", "key", redisKey, "error", err)
		}
		return false, fmt.Errorf("redis rate limiter: %w", err)
	}
	return limited == 1, nil
}

func (r *RedisRateLimiter) Close() error {
	return nil
}
