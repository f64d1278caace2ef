package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func TestInMemoryRateLimiter_IsLimited_IsPerKey(t *testing.T) {
	limiter := NewInMemoryRateLimiter(1, time.Second)

	limited, err := limiter.IsLimited("client-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limited {
		t.Fatalf("first request for client-a should not be limited")
	}

	limited, err = limiter.IsLimited("client-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !limited {
		t.Fatalf("second immediate request for client-a should be limited")
	}

	limited, err = limiter.IsLimited("client-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limited {
		t.Fatalf("first request for client-b should not be limited (per-key limiter)")
	}
}

func TestInMemoryRateLimiter_RefillsWithClock(t *testing.T) {
	fakeClock := testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	limiter := NewInMemoryRateLimiterWithClock(2, time.Minute, fakeClock)

	for i := 0; i < 2; i++ {
		limited, err := limiter.IsLimited("client")
		require.NoError(t, err)
		assert.False(t, limited)
	}

	limited, err := limiter.IsLimited("client")
	require.NoError(t, err)
	assert.True(t, limited)

	fakeClock.Step(30 * time.Second)

	limited, err = limiter.IsLimited("client")
	require.NoError(t, err)
	assert.False(t, limited, "one token refills every 30s at 2 req/min")
}

func TestRedisRateLimiter_SlidingWindow(t *testing.T) {
	_, client := newMiniredisClient(t)

	limiter := NewRateLimiter(&RateLimitConfig{Requests: 2, Window: time.Minute, Redis: client})
	requests, window := limiter.GetLimitDetails()
	assert.Equal(t, 2, requests)
	assert.Equal(t, time.Minute, window)

	for i := 0; i < 2; i++ {
		limited, err := limiter.IsLimited("10.0.0.1")
		require.NoError(t, err)
		assert.False(t, limited)
	}

	limited, err := limiter.IsLimited("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, limited)

	limited, err = limiter.IsLimited("10.0.0.2")
	require.NoError(t, err)
	assert.False(t, limited, "keys are limited independently")
}

func TestRedisRateLimiter_ReturnsErrorWhenRedisDown(t *testing.T) {
	s, client := newMiniredisClient(t)
	limiter := NewRedisRateLimiter(client, 2, time.Minute, nil)
	s.Close()

	_, err := limiter.IsLimited("10.0.0.1")
	assert.Error(t, err)
}

func TestNewRateLimiter_FallsBackToMemory(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{Requests: 10, Window: time.Minute})

	_, ok := limiter.(*InMemoryRateLimiter)
	assert.True(t, ok)
	assert.NoError(t, limiter.Close())
}
