package genai

import (
	"context"
	"math/rand/v2"
	"time"
)

// backoff returns the Full Jitter delay before retry n (1-based): uniform in
// [0, min(MaxDelay, InitialDelay*2^(n-1))).
func (c RetryConfig) backoff(n int) time.Duration {
	if n <= 0 || c.InitialDelay <= 0 {
		return 0
	}
	ceiling := c.MaxDelay
	if shift := n - 1; shift < 20 {
		if d := c.InitialDelay << shift; d > 0 && (ceiling <= 0 || d < ceiling) {
			ceiling = d
		}
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(ceiling)))
}

// do runs fn until it succeeds, returns a non-retryable error, or runs out of
// attempts. onRetry sees the attempt number that just failed.
func (c RetryConfig) do(ctx context.Context, onRetry func(attempt int, err error), fn func() error) error {
	attempts := max(c.MaxAttempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(); err == nil || !IsRetryable(err) || attempt == attempts {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		timer := time.NewTimer(c.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// hasBudget reports whether ctx leaves at least need before its deadline.
func hasBudget(ctx context.Context, need time.Duration) bool {
	deadline, ok := ctx.Deadline()
	return !ok || time.Until(deadline) >= need
}
