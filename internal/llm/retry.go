package llm

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/andytango/builder-6/internal/result"
)

// retryableSubstrings lists the upstream-error markers that mark a
// failure as transient and worth retrying.
var retryableSubstrings = []string{"503", "Service Unavailable", "overloaded"}

// IsRetryable reports whether err's message matches a known
// transient-upstream-failure pattern.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// RetryPolicy is the exponential-backoff-with-jitter schedule a
// Runner applies to transient upstream failures.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64

	// OnRetry, when set, is called once per retried attempt (not on
	// the final exhausted failure) before the backoff sleep. Used to
	// feed retry counts to observability without coupling the retry
	// schedule itself to a metrics dependency.
	OnRetry func(attempt int)
}

// DefaultRetryPolicy returns the spec-mandated defaults: 10 retries,
// 1s initial delay, 10s ceiling, factor 2.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    10,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}
}

// delay computes the backoff for attempt (0-indexed), capped at
// MaxDelay, before uniform jitter in [0, 1000ms] is added.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 0; i < attempt; i++ {
		d *= p.BackoffFactor
	}
	if capped := float64(p.MaxDelay); d > capped {
		d = capped
	}
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	return time.Duration(d) + jitter
}

// Do executes op, retrying on transient upstream errors per the
// policy's backoff schedule. Once the retry budget is exhausted, the
// final error is wrapped as ModelUpstreamFatal.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return result.Wrap(result.KindModelUpstreamFatal, "model upstream request failed", lastErr)
		}
		if attempt == p.MaxRetries {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt)
		}

		preventive := p.InitialDelay
		if preventive > 100*time.Millisecond {
			preventive = 100 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(preventive):
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay(attempt)):
		}
	}
	return result.Wrap(result.KindModelUpstreamFatal, "model upstream request failed after retries", lastErr)
}
