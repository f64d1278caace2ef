package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"k8s.io/utils/clock"
)

// Fixed window counter. The first hit sets the expiry; a hit over the limit is undone
// so denied attempts do not extend the count.
// Returns {allowed, count, pttl}.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local window = tonumber(ARGV[1])
	local limit = tonumber(ARGV[2])

	local count = redis.call('INCR', key)
	if count == 1 then
		redis.call('PEXPIRE', key, window)
	end

	local ttl = redis.call('PTTL', key)
	if ttl < 0 then
		redis.call('PEXPIRE', key, window)
		ttl = window
	end

	if count > limit then
		redis.call('DECR', key)
		return {0, count - 1, ttl}
	end

	return {1, count, ttl}
`)

// RedisWindowLimiter shares the fixed-window quota across every process that talks to
// the same Redis. Expired keys are reclaimed by Redis, so there is no entry cap.
type RedisWindowLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	keyPrefix   string
	clock       clock.PassiveClock
	logger      Logger
}

func NewRedisWindowLimiter(client *redis.Client, cfg WindowConfig, logger Logger) (*RedisWindowLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("ratelimit: redis client is nil")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("ratelimit: max attempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.Window < time.Millisecond {
		return nil, fmt.Errorf("ratelimit: window must be at least 1ms, got %s", cfg.Window)
	}

	c := cfg.Clock
	if c == nil {
		c = clock.RealClock{}
	}

	return &RedisWindowLimiter{
		client:      client,
		maxAttempts: cfg.MaxAttempts,
		window:      cfg.Window,
		keyPrefix:   "waitlist:ratelimit:",
		clock:       c,
		logger:      logger,
	}, nil
}

func (r *RedisWindowLimiter) Allow(ctx context.Context, identity string) (Decision, error) {
	key := r.keyPrefix + identity

	res, err := fixedWindowScript.Run(ctx, r.client, []string{key}, r.window.Milliseconds(), r.maxAttempts).Result()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Redis fixed window script execution failed", "key", key, "error", err)
		}
		return Decision{}, fmt.Errorf("rate limiter Redis error: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("rate limiter Redis error: unexpected script result %v", res)
	}

	allowed, _ := values[0].(int64)
	count, _ := values[1].(int64)
	ttl, _ := values[2].(int64)

	now := r.clock.Now()
	d := Decision{
		Allowed: allowed == 1,
		Count:   int(count),
		ResetAt: now.Add(time.Duration(ttl) * time.Millisecond),
	}
	if d.Allowed {
		d.Remaining = r.maxAttempts - d.Count
	} else {
		d.RetryAfter = retryAfter(d.ResetAt, now)
	}

	return d, nil
}

func (r *RedisWindowLimiter) GetLimitDetails() (int, time.Duration) {
	return r.maxAttempts, r.window
}

// The Redis client is owned by the ApplicationConfig and closed there
func (r *RedisWindowLimiter) Close() error {
	return nil
}
