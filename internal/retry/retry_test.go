package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"newsreel/internal/retry"
)

func recordSleeps(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	var slept []time.Duration
	calls := 0
	err := retry.Do(context.Background(), retry.Policy{
		Attempts: 3,
		Delay:    2 * time.Second,
		Sleep:    recordSleeps(&slept),
	}, func(context.Context, int) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if diff := cmp.Diff([]time.Duration{2 * time.Second, 2 * time.Second}, slept); diff != "" {
		t.Fatalf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestDoExhausted(t *testing.T) {
	base := errors.New("still failing")
	var slept []time.Duration
	err := retry.Do(context.Background(), retry.Policy{Attempts: 3, Sleep: recordSleeps(&slept)}, func(context.Context, int) error {
		return base
	})
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Attempts != 3 {
		t.Fatalf("expected ExhaustedError after 3 attempts, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(slept))
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("bad request")
	calls := 0
	err := retry.Do(context.Background(), retry.Policy{
		Attempts:  5,
		Retryable: func(err error) bool { return !errors.Is(err, fatal) },
		Sleep:     func(context.Context, time.Duration) error { return nil },
	}, func(context.Context, int) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) || calls != 1 {
		t.Fatalf("expected single call returning fatal error, got calls=%d err=%v", calls, err)
	}
}

func TestDoDelayFor(t *testing.T) {
	rateLimited := errors.New("429")
	var slept []time.Duration
	_ = retry.Do(context.Background(), retry.Policy{
		Attempts: 3,
		DelayFor: func(err error, _ int) time.Duration {
			if errors.Is(err, rateLimited) {
				return 45 * time.Second
			}
			return 10 * time.Second
		},
		Sleep: recordSleeps(&slept),
	}, func(_ context.Context, attempt int) error {
		if attempt == 1 {
			return rateLimited
		}
		return errors.New("other")
	})
	if diff := cmp.Diff([]time.Duration{45 * time.Second, 10 * time.Second}, slept); diff != "" {
		t.Fatalf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry.Do(ctx, retry.Policy{Attempts: 3, Delay: time.Hour}, func(context.Context, int) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestExponential(t *testing.T) {
	delay := retry.Exponential(time.Second, 5*time.Second)
	got := []time.Duration{delay(nil, 1), delay(nil, 2), delay(nil, 3), delay(nil, 4)}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("delays mismatch (-want +got):\n%s", diff)
	}
}
