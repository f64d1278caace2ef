package factory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/constants"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

func redisClientFrom(cache Cache) *redis.Client {
	if cache == nil {
		return nil
	}
	if provider, ok := cache.(RedisClientProvider); ok {
		return provider.GetClient()
	}
	return nil
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   ratelimit.Logger
}

// RateLimiterFactory builds the router-wide request limiter.
type RateLimiterFactory interface {
	CreateRateLimiter() ratelimit.RateLimiter
}

type DefaultRateLimiterFactory struct {
	config *ratelimit.RateLimitConfig
}

func NewDefaultRateLimiterFactory(requests int, window time.Duration, cache Cache, logger ratelimit.Logger) *DefaultRateLimiterFactory {
	return &DefaultRateLimiterFactory{
		config: &ratelimit.RateLimitConfig{
			Requests: requests,
			Window:   window,
			Redis:    redisClientFrom(cache),
			Logger:   logger,
		},
	}
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter() ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(f.config)
}

// WindowLimitConfig describes the per-identity join quota.
type WindowLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
	MaxEntries  int
	Store       string // constants.RateLimitStoreMemory or constants.RateLimitStoreRedis
	Logger      ratelimit.Logger
}

// WindowLimiterFactory builds the limiter guarding waitlist submissions.
type WindowLimiterFactory interface {
	CreateWindowLimiter() (ratelimit.WindowLimiter, error)
}

type DefaultWindowLimiterFactory struct {
	config WindowLimitConfig
	cache  Cache
}

func NewDefaultWindowLimiterFactory(config WindowLimitConfig, cache Cache) *DefaultWindowLimiterFactory {
	return &DefaultWindowLimiterFactory{config: config, cache: cache}
}

// CreateWindowLimiter returns a Redis-backed limiter when the redis store is selected
// and a client is available, and the in-process LRU limiter otherwise.
func (f *DefaultWindowLimiterFactory) CreateWindowLimiter() (ratelimit.WindowLimiter, error) {
	windowCfg := ratelimit.WindowConfig{
		MaxAttempts: f.config.MaxAttempts,
		Window:      f.config.Window,
		MaxEntries:  f.config.MaxEntries,
	}

	store := strings.ToLower(strings.TrimSpace(f.config.Store))
	switch store {
	case "", constants.RateLimitStoreMemory:
		return ratelimit.NewMemoryWindowLimiter(windowCfg)
	case constants.RateLimitStoreRedis:
		client := redisClientFrom(f.cache)
		if client == nil {
			if f.config.Logger != nil {
				f.config.Logger.Error("Redis rate limit store requested without a cache, using in-memory limiter")
			}
			return ratelimit.NewMemoryWindowLimiter(windowCfg)
		}
		return ratelimit.NewRedisWindowLimiter(client, windowCfg, f.config.Logger)
	default:
		return nil, fmt.Errorf("factory: unknown rate limit store %q", f.config.Store)
	}
}

type FactoryContainer struct {
	RateLimiterFactory   RateLimiterFactory
	WindowLimiterFactory WindowLimiterFactory
}

func NewFactoryContainer(rateLimitConfig *RateLimitConfig, windowLimitConfig WindowLimitConfig, cache Cache) *FactoryContainer {
	return &FactoryContainer{
		RateLimiterFactory:   NewDefaultRateLimiterFactory(rateLimitConfig.Requests, rateLimitConfig.Window, cache, rateLimitConfig.Logger),
		WindowLimiterFactory: NewDefaultWindowLimiterFactory(windowLimitConfig, cache),
	}
}
