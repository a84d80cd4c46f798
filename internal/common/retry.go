package common

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds retries for transient failure classes.
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first
	Backoff     time.Duration // initial delay, doubled per attempt
}

// DefaultRetryPolicy matches the pipeline's documented defaults.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 500 * time.Millisecond}

// Retry runs fn up to MaxAttempts times, backing off between attempts.
// Only errors reported Retryable are retried; anything else returns
// immediately. Context cancellation stops the loop between attempts.
func Retry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, op string, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultRetryPolicy.Backoff
	}

	delay := policy.Backoff
	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) || attempt == policy.MaxAttempts {
			return err
		}
		logger.Warn("retrying transient failure",
			"op", op,
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"backoff_ms", delay.Milliseconds(),
			"class", string(ClassOf(err)),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
