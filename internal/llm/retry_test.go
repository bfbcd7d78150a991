package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andytango/builder-6/internal/result"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("503 from upstream"), true},
		{errors.New("Service Unavailable"), true},
		{errors.New("model overloaded"), true},
		{errors.New("invalid api key"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := IsRetryable(c.err); got != c.want {
			t.Fatalf("IsRetryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestRetryPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("503 Service Unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryPolicy_FatalOnNonRetryableError(t *testing.T) {
	policy := DefaultRetryPolicy()
	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return errors.New("invalid api key")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !result.HasKind(err, result.KindModelUpstreamFatal) {
		t.Fatalf("expected KindModelUpstreamFatal, got %v", result.KindOf(err))
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-retryable error, got %d", attempts)
	}
}

func TestRetryPolicy_ExhaustsRetryBudget(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return errors.New("503")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if !result.HasKind(err, result.KindModelUpstreamFatal) {
		t.Fatalf("expected KindModelUpstreamFatal, got %v", result.KindOf(err))
	}
	if attempts != 3 {
		t.Fatalf("expected MaxRetries+1=3 attempts, got %d", attempts)
	}
}

func TestRetryPolicy_RespectsContextCancellation(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 10, InitialDelay: 50 * time.Millisecond, MaxDelay: 100 * time.Millisecond, BackoffFactor: 2}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := policy.Do(ctx, func() error {
		return errors.New("503")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
