package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const clientTimeout = 30 * time.Second

// NewClient creates an HTTP client with a standard timeout for
// repository requests. The timeout covers the whole request including
// body reads; artifact downloads stream within it or rely on context
// cancellation for anything longer.
func NewClient() *http.Client {
	return &http.Client{Timeout: clientTimeout}
}

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this
// type so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Retry executes fn up to attempts times with exponential backoff.
// It only retries errors wrapped with [RetryableError]; other errors
// are returned immediately. The delay doubles after each failed
// attempt. If every attempt fails, the last error is returned wrapped
// with the attempt count; cancellation while waiting returns ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// RetryWithBackoff is a convenience wrapper around [Retry] with the
// policy used throughout jx: 3 attempts with 1 second initial delay.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
