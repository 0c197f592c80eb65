// Package retry implements bounded retries with exponential backoff for
// upstream tracker fetches.
//
// Only transient failures (timeouts, connection errors, explicit
// [Transient] wrappers) are retried. Everything else surfaces immediately:
// an auth failure or a 404 doesn't get better by asking again. Callers
// apply the policy to idempotent reads only; mutating calls run with a
// single attempt so a flaky network can't post the same comment twice.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Default returns the standard policy for tracker reads:
// 3 attempts, 1s initial backoff, capped at 10s.
func Default() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
	}
}

// Single returns a policy that never retries, for mutating calls.
func Single() Policy {
	return Policy{MaxAttempts: 1}
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks an error as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err should be retried: errors marked with
// [Transient], network timeouts, and connection-level failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *transientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Do runs fn until it succeeds, fails terminally, or the attempt bound is
// reached. The backoff delay doubles per attempt from InitialDelay up to
// MaxDelay and honors context cancellation while sleeping. On exhaustion
// the last error is returned wrapped with the attempt count.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
