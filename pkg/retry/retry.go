package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"k8s.io/utils/clock"
)

type RetryPolicy interface {
	Execute(ctx context.Context, fn func() error) error
}

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64

	// Retryable classifies errors; defaults to IsTransient.
	Retryable func(error) bool
	// OnRetry is called before sleeping between attempts.
	OnRetry func(attempt int, delay time.Duration, err error)
	// Clock defaults to the real clock.
	Clock clock.Clock
}

func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
	}
}

// ExponentialBackoff sleeps BaseDelay * Multiplier^(attempt-1), capped at MaxDelay,
// between attempts.
type ExponentialBackoff struct {
	config Config
}

func NewExponentialBackoff(config *Config) *ExponentialBackoff {
	if config == nil {
		config = DefaultConfig()
	}

	cfg := *config
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.Retryable == nil {
		cfg.Retryable = IsTransient
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	return &ExponentialBackoff{config: cfg}
}

// Execute returns the first non-retryable error as is, and a MaxRetriesExceededError
// once every attempt failed. Cancelling ctx stops the wait between attempts.
func (eb *ExponentialBackoff) Execute(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, lastErr)
		}

		lastErr = fn()
		switch {
		case lastErr == nil:
			return nil
		case attempt >= eb.config.MaxAttempts:
			return &MaxRetriesExceededError{LastError: lastErr, MaxAttempts: eb.config.MaxAttempts}
		case !eb.config.Retryable(lastErr):
			return lastErr
		}

		delay := eb.calculateDelay(attempt)
		if eb.config.OnRetry != nil {
			eb.config.OnRetry(attempt, delay, lastErr)
		}

		if err := eb.sleep(ctx, delay); err != nil {
			return errors.Join(err, lastErr)
		}
	}
}

func (eb *ExponentialBackoff) sleep(ctx context.Context, d time.Duration) error {
	timer := eb.config.Clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}

func (eb *ExponentialBackoff) calculateDelay(attempt int) time.Duration {
	delay := float64(eb.config.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= eb.config.Multiplier
		if eb.config.MaxDelay > 0 && delay >= float64(eb.config.MaxDelay) {
			return eb.config.MaxDelay
		}
	}
	return time.Duration(delay)
}

// Postgres SQLSTATEs raised while a server is starting or saturated.
var transientPgCodes = map[string]struct{}{
	"57P03": {}, // cannot_connect_now
	"53300": {}, // too_many_connections
	"08006": {}, // connection_failure
	"08001": {}, // sqlclient_unable_to_establish_sqlconnection
}

var transientMessages = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many clients",
	"the database system is starting up",
	"no such host",
}

// IsTransient matches errors that usually clear up on their own, such as a database
// that is still starting. Typed errors are checked first and the message is the
// fallback for drivers that only return strings.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := transientPgCodes[pgErr.Code]
		return ok
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

type MaxRetriesExceededError struct {
	LastError   error
	MaxAttempts int
}

func (e *MaxRetriesExceededError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.MaxAttempts, e.LastError)
}

func (e *MaxRetriesExceededError) Unwrap() error {
	return e.LastError
}

func IsMaxRetriesExceeded(err error) bool {
	var maxRetriesErr *MaxRetriesExceededError
	return errors.As(err, &maxRetriesErr)
}
