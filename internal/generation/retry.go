package generation

import (
	"context"
	"errors"
	"time"
)

// RetryConfig controls retry behavior for generation calls.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryConfig retries twice with exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 2, BaseDelay: time.Second}
}

// retryable marks errors worth retrying (rate limits, 5xx).
type retryable struct{ err error }

func (r retryable) Error() string { return r.err.Error() }
func (r retryable) Unwrap() error { return r.err }

// Retryable wraps err so RetryDo attempts it again.
func Retryable(err error) error { return retryable{err: err} }

// RetryDo runs fn, retrying retryable errors with exponential backoff.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	delay := cfg.BaseDelay

	for attempt := 0; ; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}

		var r retryable
		if attempt >= cfg.MaxRetries || !errors.As(err, &r) {
			return zero, err
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
