// Package retry re-invokes fallible operations with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
)

// Policy bounds how an operation is retried.
type Policy struct {
	// Name labels retry metrics (e.g. "weather.fetch").
	Name        string
	MaxAttempts int
	BackoffBase time.Duration
	// Retryable narrows which errors are retried. Nil retries every error.
	Retryable func(error) bool
	// Clock drives backoff sleeps. Nil means the real clock.
	Clock clockwork.Clock
	// OnRetry is called before each backoff sleep with the attempt that just failed.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Backoff returns the delay after failed attempt n (1-indexed): BackoffBase × 2^(n-1).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return p.BackoffBase << (attempt - 1)
}

// Do calls op until it succeeds, a non-retryable error occurs, or MaxAttempts is reached.
// There is no sleep after the final attempt. The returned error wraps the last failure.
// Context cancellation during a backoff sleep returns ctx.Err().
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		delay := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if p.Name != "" {
			observability.RetriesTotal.WithLabelValues(p.Name).Inc()
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-clock.After(delay):
		}
	}

	return zero, fmt.Errorf("exhausted retries: %w", lastErr)
}
