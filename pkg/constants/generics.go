package constants

import "time"

// Router-wide rate limiting configuration
const (
	// DefaultRateLimitRequests is the default number of requests allowed per time window
	DefaultRateLimitRequests = 100
	// DefaultRateLimitWindowMinutes is the default time window for rate limiting
	DefaultRateLimitWindowMinutes = 1
)

// DefaultRateLimitWindow returns the default rate limit window duration
func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}

// Waitlist submission quota. A caller identity may submit at most
// DefaultJoinAttemptsPerWindow times per window; at most DefaultJoinTrackedIdentities
// identities are remembered at once.
const (
	DefaultJoinAttemptsPerWindow = 5
	DefaultJoinWindowMinutes     = 30
	DefaultJoinTrackedIdentities = 500
)

func DefaultJoinWindow() time.Duration {
	return time.Duration(DefaultJoinWindowMinutes) * time.Minute
}

// UnknownIdentity is the shared rate-limit bucket for callers without a forwarded address.
const UnknownIdentity = "unknown"

// Rate limiter storage backends for the waitlist quota.
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)
