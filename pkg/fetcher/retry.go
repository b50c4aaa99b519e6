package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryPolicy describes how many attempts a call gets and how long to wait between them.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy is three attempts with a 3s linear backoff base.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 3 * time.Second}
}

// Backoff is the wait after the given failed attempt (1-based): BaseDelay * attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// permanentError stops the retry loop immediately.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry runs fn until it succeeds, returns a Permanent error, the context
// ends, or the policy's attempts are used up. The last error is returned.
func Retry(ctx context.Context, policy RetryPolicy, sleep Sleeper, logger *slog.Logger, fn func(ctx context.Context, attempt int) error) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if sleep == nil {
		sleep = SleepContext
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Warn("Fetch attempt failed", "attempt", attempt, "max_attempts", policy.Attempts, "error", err)
		if attempt == policy.Attempts {
			break
		}
		if err := sleep(ctx, policy.Backoff(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}
