// Package retry provides bounded retry with exponential backoff for
// short-lived operations that must not give up on the first failure.
package retry

import (
	"context"
	"time"
)

// Sleeper lets tests observe and skip the backoff delays
type Sleeper func(ctx context.Context, d time.Duration) error

// DefaultSleeper waits for the delay or until the context is cancelled
func DefaultSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier runs an operation up to a fixed number of attempts with
// exponential backoff between them
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	sleep       Sleeper
}

// New creates a Retrier. Delays double each attempt starting from baseDelay.
func New(maxAttempts int, baseDelay time.Duration) *Retrier {
	return &Retrier{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       DefaultSleeper,
	}
}

// WithSleeper replaces the backoff sleeper, used by tests
func (r *Retrier) WithSleeper(s Sleeper) *Retrier {
	r.sleep = s
	return r
}

// Do runs fn until it succeeds or attempts are exhausted. The last error is
// returned when every attempt fails. Backoff between attempt n and n+1 is
// baseDelay * 2^(n-1).
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == r.maxAttempts {
			break
		}
		delay := r.baseDelay * time.Duration(1<<(attempt-1))
		if err := r.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}
