// Package retry wraps a single operation in a bounded-attempt,
// backoff-delayed loop.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Run invokes op up to maxAttempts times. Between a failed attempt i
// (1-based) and the next, it sleeps i×baseDelay, so total backoff before
// attempt k is sum(i×baseDelay for i in 1..k-1). The first success
// short-circuits; the final attempt's error is returned as-is.
//
// Attempts are strictly sequential: op must allocate and release its own
// resources (browser session included) before returning, so a prior
// attempt's page is always closed before the next begins. The sleep is
// context-aware; caller cancellation surfaces immediately.
func Run[T any](ctx context.Context, maxAttempts int, baseDelay time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		backoff := time.Duration(attempt) * baseDelay
		slog.Warn("attempt failed, backing off",
			"attempt", attempt,
			"maxAttempts", maxAttempts,
			"backoff", backoff,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return zero, lastErr
}
