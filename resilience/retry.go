package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig defines configuration for retrying an operation with
// exponential backoff.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff delay.
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to the delay for each subsequent retry.
	BackoffMultiplier float64

	// Jitter adds up to ±10% randomness to each delay to avoid
	// synchronized retries.
	Jitter bool

	// RetryableErrors decides whether an error is worth retrying.
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns a default configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
		RetryableErrors:   DefaultRetryableErrors,
	}
}

// DefaultRetryableErrors treats every error as retryable except nil and
// context cancellation/deadline errors, which indicate the caller has
// given up.
func DefaultRetryableErrors(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Retry calls fn until it succeeds, the error is not retryable, the retry
// budget is exhausted, or the context is done. It returns the last error
// observed.
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	retryable := config.RetryableErrors
	if retryable == nil {
		retryable = DefaultRetryableErrors
	}

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt-1, config)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// ExponentialBackoff retries fn up to retries times with a doubling delay
// starting at initial. It is a convenience wrapper over Retry.
func ExponentialBackoff(ctx context.Context, retries int, initial time.Duration, fn func() error) error {
	return Retry(ctx, RetryConfig{
		MaxRetries:        retries,
		InitialBackoff:    initial,
		MaxBackoff:        initial * time.Duration(math.Pow(2, float64(retries))),
		BackoffMultiplier: 2.0,
		RetryableErrors:   DefaultRetryableErrors,
	}, fn)
}

// calculateBackoff returns the delay before retry number attempt (zero
// based), capped at MaxBackoff.
func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(config.BackoffMultiplier, float64(attempt))
	if limit := float64(config.MaxBackoff); config.MaxBackoff > 0 && backoff > limit {
		backoff = limit
	}
	if config.Jitter {
		// ±10%
		backoff += backoff * 0.1 * (rand.Float64()*2 - 1)
	}
	return time.Duration(backoff)
}
