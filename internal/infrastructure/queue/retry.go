package queue

import (
	"context"
	"math/rand"
	"time"
)

// retryPolicy retries a journal write with exponential backoff and jitter.
//
// Schedule (default): 0 ms, 20 ms, 40 ms, 80 ms (plus up to 30% jitter).
type retryPolicy struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
}

var defaultRetry = retryPolicy{
	maxAttempts:  4,
	baseDelay:    20 * time.Millisecond,
	jitterFactor: 0.3,
}

func (p retryPolicy) do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(p.maxAttempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.baseDelay * time.Duration(1<<(attempt-1))
			delay += time.Duration(rand.Float64() * float64(delay) * p.jitterFactor) //nolint:gosec // jitter only

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
