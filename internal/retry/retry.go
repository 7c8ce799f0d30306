// Package retry runs delegate calls with a bounded number of attempts.
//
// Image generation, narration writing and the OpenRouter client share this
// loop so that attempt counting, cancellation and delay selection behave the
// same everywhere.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy configures Do. The zero value makes a single attempt.
type Policy struct {
	// Attempts is the total number of calls, including the first.
	Attempts int
	// Delay is the fixed wait between attempts when DelayFor is nil.
	Delay time.Duration
	// DelayFor picks the wait after a failed attempt (1-based). It overrides
	// Delay, which lets callers back off harder on rate limiting.
	DelayFor func(err error, attempt int) time.Duration
	// Retryable reports whether err deserves another attempt. Nil retries
	// every error except context cancellation.
	Retryable func(err error) bool
	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry observes each failed attempt that will be retried.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, the policy gives up, or ctx ends. The last
// error is returned unchanged when it is not retryable, and wrapped in
// ExhaustedError when attempts run out.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !policy.retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		delay := policy.delay(err, attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err, delay)
		}
		if err := policy.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
	}
	if attempts == 1 {
		return lastErr
	}
	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func (p Policy) delay(err error, attempt int) time.Duration {
	if p.DelayFor != nil {
		return max(p.DelayFor(err, attempt), 0)
	}
	return max(p.Delay, 0)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Exponential returns a DelayFor that doubles base per attempt, capped at limit.
func Exponential(base, limit time.Duration) func(error, int) time.Duration {
	return func(_ error, attempt int) time.Duration {
		if base <= 0 {
			return 0
		}
		delay := base
		for i := 1; i < attempt; i++ {
			if limit > 0 && delay > limit/2 {
				return limit
			}
			delay *= 2
		}
		if limit > 0 && delay > limit {
			return limit
		}
		return delay
	}
}
