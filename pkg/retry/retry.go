// Package retry provides a bounded, clock-injectable retry loop for
// operations against the eventually-consistent trace store.
package retry

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"
)

// BackoffFunc returns the delay to wait before the given attempt.
// Attempts are numbered from 1; the func is consulted after each failure.
type BackoffFunc func(attempt int) time.Duration

// Fixed waits the same delay between every attempt.
func Fixed(d time.Duration) BackoffFunc {
	return func(int) time.Duration {
		return d
	}
}

// Exponential doubles the delay after each attempt, capped at max.
func Exponential(initial, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := initial
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}

// Config bounds a retry loop.
type Config struct {
	// MaxAttempts is the total number of calls made, including the first.
	MaxAttempts int

	// Backoff computes the delay between attempts. Nil means no delay.
	Backoff BackoffFunc

	// Clock drives the inter-attempt sleeps. Nil means the real clock;
	// tests inject a fake so retry behavior is verifiable without waiting.
	Clock clock.Clock
}

func (c Config) validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("retry requires at least one attempt, got %d", c.MaxAttempts)
	}
	return nil
}

// Do calls fn until it succeeds, the retryable predicate rejects its error,
// the attempt budget is exhausted, or ctx is done. The last error seen is
// returned on failure, so callers can inspect it with errors.Is.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error, retryable func(error) bool) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			delay = cfg.Backoff(attempt)
		}
		if delay <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-clk.After(delay):
		}
	}

	return lastErr
}
