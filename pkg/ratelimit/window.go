package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"k8s.io/utils/clock"
)

// Decision is the outcome of a single WindowLimiter.Allow call.
type Decision struct {
	Allowed   bool
	Count     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is set on denied decisions, measured on the limiter's clock.
	RetryAfter time.Duration
}

// WindowLimiter bounds attempts per identity within a fixed window that starts on the
// identity's first attempt. A denied attempt never consumes quota.
type WindowLimiter interface {
	Allow(ctx context.Context, identity string) (Decision, error)
	GetLimitDetails() (int, time.Duration)
	Close() error
}

// ExceededError describes a denied attempt. It is wrapped by the application error
// returned to the HTTP layer so handlers can compute Retry-After.
type ExceededError struct {
	Identity   string
	Limit      int
	Window     time.Duration
	ResetAt    time.Time
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit of %d per %s exceeded for %q", e.Limit, e.Window, e.Identity)
}

// RetryAfterSeconds is the Retry-After header value: RetryAfter rounded up, at least 1.
func (e *ExceededError) RetryAfterSeconds() int {
	return max(1, int(math.Ceil(e.RetryAfter.Seconds())))
}

// retryAfter is the time left until resetAt, never less than one second.
func retryAfter(resetAt, now time.Time) time.Duration {
	return max(time.Second, resetAt.Sub(now))
}

type WindowConfig struct {
	MaxAttempts int
	Window      time.Duration
	MaxEntries  int
	Clock       clock.PassiveClock // Optional, defaults to the wall clock
}

type windowEntry struct {
	count     int
	expiresAt time.Time
}

func (e *windowEntry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// MemoryWindowLimiter keeps one fixed-window counter per identity in a bounded LRU.
//
// When the LRU is full and a new identity arrives, expired entries are swept first and
// then the least recently used identity is evicted. An evicted identity starts over with
// a fresh window, so under heavy churn a caller may get more than MaxAttempts per window.
// Memory stays bounded in exchange.
type MemoryWindowLimiter struct {
	maxAttempts int
	window      time.Duration
	maxEntries  int
	clock       clock.PassiveClock

	mu        sync.Mutex
	entries   *simplelru.LRU[string, *windowEntry]
	evictions uint64
}

func NewMemoryWindowLimiter(cfg WindowConfig) (*MemoryWindowLimiter, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("ratelimit: max attempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("ratelimit: window must be positive, got %s", cfg.Window)
	}
	if cfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("ratelimit: max entries must be positive, got %d", cfg.MaxEntries)
	}

	l := &MemoryWindowLimiter{
		maxAttempts: cfg.MaxAttempts,
		window:      cfg.Window,
		maxEntries:  cfg.MaxEntries,
		clock:       cfg.Clock,
	}
	if l.clock == nil {
		l.clock = clock.RealClock{}
	}

	entries, err := simplelru.NewLRU[string, *windowEntry](cfg.MaxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: create lru: %w", err)
	}
	l.entries = entries

	return l, nil
}

func (l *MemoryWindowLimiter) Allow(_ context.Context, identity string) (Decision, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries.Get(identity)
	if !ok || entry.expired(now) {
		if !ok && l.entries.Len() >= l.maxEntries {
			l.sweepExpired(now)
		}
		entry = &windowEntry{expiresAt: now.Add(l.window)}
		if l.entries.Add(identity, entry) {
			l.evictions++
		}
	}

	if entry.count >= l.maxAttempts {
		return Decision{
			Allowed:    false,
			Count:      entry.count,
			ResetAt:    entry.expiresAt,
			RetryAfter: retryAfter(entry.expiresAt, now),
		}, nil
	}

	entry.count++

	return Decision{
		Allowed:   true,
		Count:     entry.count,
		Remaining: l.maxAttempts - entry.count,
		ResetAt:   entry.expiresAt,
	}, nil
}

// sweepExpired must be called with mu held.
func (l *MemoryWindowLimiter) sweepExpired(now time.Time) {
	for _, key := range l.entries.Keys() {
		if entry, ok := l.entries.Peek(key); ok && entry.expired(now) {
			l.entries.Remove(key)
		}
	}
}

func (l *MemoryWindowLimiter) GetLimitDetails() (int, time.Duration) {
	return l.maxAttempts, l.window
}

// Len reports how many identities are currently tracked, expired ones included.
func (l *MemoryWindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries.Len()
}

// Evictions reports how many live identities were dropped because the LRU was full.
func (l *MemoryWindowLimiter) Evictions() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.evictions
}

func (l *MemoryWindowLimiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries.Purge()
	return nil
}
