// Package retry provides an explicit retry policy for fallible external
// calls: a bounded number of attempts with exponential backoff.
// Exhausting attempts propagates the last error to the caller.
package retry

import (
	"context"
	"time"
)

// DefaultMaxAttempts is the default number of attempts per operation.
const DefaultMaxAttempts = 3

// DefaultBaseDelay is the delay before the second attempt; it doubles
// each subsequent attempt.
const DefaultBaseDelay = time.Second

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts (first try included).
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt, doubling each
	// attempt thereafter.
	BaseDelay time.Duration
}

// DefaultPolicy returns the pipeline-wide default retry policy.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Do runs op until it succeeds, attempts are exhausted, or ctx is done.
// The last error is returned unwrapped so callers can inspect it.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if lastErr = op(ctx); lastErr == nil {
			return nil
		}
	}

	return lastErr
}
