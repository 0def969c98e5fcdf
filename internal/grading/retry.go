package grading

import (
	"context"
	"time"

	"github.com/gradecraft/backend/internal/llm"
)

// Sleeper waits for d or until ctx is done. Injected so tests run without
// wall-clock delays.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepWithContext is the production Sleeper.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry invokes op, retrying transient failures per policy with the fixed
// backoff schedule. Permanent failures return immediately; once retries are
// exhausted the last error is returned as-is.
func Retry[T any](ctx context.Context, policy RetryPolicy, sleep Sleeper, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if sleep == nil {
		sleep = SleepWithContext
	}
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !llm.IsTransient(err) || attempt >= policy.MaxRetries {
			return zero, err
		}
		if serr := sleep(ctx, backoffAt(policy, attempt)); serr != nil {
			return zero, err
		}
	}
}

func backoffAt(policy RetryPolicy, attempt int) time.Duration {
	if len(policy.Backoff) == 0 {
		return 0
	}
	if attempt >= len(policy.Backoff) {
		attempt = len(policy.Backoff) - 1
	}
	return policy.Backoff[attempt]
}
