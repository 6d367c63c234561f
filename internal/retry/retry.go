// Package retry re-runs operations that failed with transient feed errors, backing off
// exponentially between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/jonesrussell/north-cloud/reader/internal/feed"
)

var (
	// ErrMaxAttemptsExceeded is returned when every attempt failed with a retryable error.
	ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")
	// ErrContextCancelled is returned when the context ends while waiting to retry.
	ErrContextCancelled = errors.New("context cancelled during retry")
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 30 * time.Second
	defaultMultiplier   = 2.0
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts includes the initial attempt.
	MaxAttempts  int
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay   time.Duration
	Multiplier float64
	// IsRetryable decides whether an error is worth another attempt.
	IsRetryable func(error) bool
}

// DefaultConfig returns a Config that retries transient feed errors three times in total.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   defaultMultiplier,
		IsRetryable:  IsTransient,
	}
}

// IsTransient reports whether err is a network failure, a timeout, or a status the
// server may recover from (5xx, 429). Parse errors and other 4xx statuses are final.
func IsTransient(err error) bool {
	var fe *feed.Error
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Type {
	case feed.ErrTypeNetwork, feed.ErrTypeTimeout:
		return true
	case feed.ErrTypeStatus:
		return fe.StatusCode >= http.StatusInternalServerError || fe.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

func (c *Config) setDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = defaultMultiplier
	}
	if c.IsRetryable == nil {
		c.IsRetryable = IsTransient
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or runs out of attempts.
func Do[T any](ctx context.Context, config Config, fn func(ctx context.Context) (T, error)) (T, error) {
	config.setDefaults()

	var (
		zero    T
		lastErr error
	)

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !config.IsRetryable(err) {
			return result, err
		}

		if attempt < config.MaxAttempts {
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
			case <-time.After(config.backoff(attempt)):
			}
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, config.MaxAttempts, lastErr)
}

// backoff is the wait after the given failed attempt.
func (c *Config) backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1)))
	if d > c.MaxDelay || d <= 0 {
		return c.MaxDelay
	}
	return d
}
