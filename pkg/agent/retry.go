package agent

import (
	"context"
	"log/slog"
	"time"
)

// Retry invokes fn up to maxAttempts times, sleeping baseDelay * 2^attempt
// between failures. The sleep is context-aware, so a cancelled context cuts
// the loop short, and it never blocks other in-flight workflow runs. No
// jitter, no circuit breaking: failures are purely count-bounded.
func Retry[T any](ctx context.Context, logger *slog.Logger, label string, maxAttempts int, baseDelay time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < maxAttempts-1 {
			delay := baseDelay * (1 << attempt)
			logger.Warn("attempt failed, retrying",
				"operation", label,
				"attempt", attempt+1,
				"max_attempts", maxAttempts,
				"delay", delay,
				"error", err)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, &RetriesExhaustedError{Attempts: attempt + 1, Last: ctx.Err()}
			}
		} else {
			logger.Error("all attempts failed", "operation", label, "attempts", maxAttempts, "error", err)
		}
	}

	return zero, &RetriesExhaustedError{Attempts: maxAttempts, Last: lastErr}
}
