// Package retry provides backoff helpers for transient failures.
//
// [Do] retries operations whose errors are wrapped with [Retryable]; other
// errors return immediately. [WaitFloor] enforces a minimum interval between
// reconnection attempts, measured from when the previous attempt started.
package retry

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (connection resets, 5xx responses, daemon
// restarts) with this type so that [Do] attempts the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err in a [RetryableError]. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Do executes fn up to attempts times with exponential backoff.
// The delay doubles after each failed attempt. Returns the last error if
// all attempts fail, or ctx.Err() if cancelled.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			if err := Sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}
	}
	return lastErr
}

// WithBackoff calls [Do] with 3 attempts and a 500ms initial delay.
func WithBackoff(ctx context.Context, fn func() error) error {
	return Do(ctx, 3, 500*time.Millisecond, fn)
}

// WaitFloor blocks until at least floor has elapsed since start.
// It returns immediately when start is zero or the floor already passed.
func WaitFloor(ctx context.Context, start time.Time, floor time.Duration) error {
	if start.IsZero() {
		return ctx.Err()
	}
	return Sleep(ctx, floor-time.Since(start))
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
