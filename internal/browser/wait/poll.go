// internal/browser/wait/poll.go
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval paces polls when the caller leaves the interval unset.
const DefaultInterval = 250 * time.Millisecond

// ErrTimeout is returned when a poll budget is exhausted before the check
// succeeds.
var ErrTimeout = errors.New("wait timed out")

// CheckFunc reports whether the awaited state holds. An error is treated as
// "not yet" and retained as the cause if the budget runs out.
type CheckFunc func(ctx context.Context) (bool, error)

// Poll runs check until it succeeds or timeout elapses. Attempts are paced by
// a token bucket refilled once per interval, so a slow check does not cause a
// burst of catch-up attempts. A timeout <= 0 performs exactly one check.
//
// If the parent context is cancelled the parent's error is returned instead of
// ErrTimeout.
func Poll(ctx context.Context, timeout, interval time.Duration, check CheckFunc) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		ok, err := check(ctx)
		if ok {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return timeoutError(timeout, err)
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	var last error
	for {
		// Wait fails early when the next token lands past the deadline.
		if err := limiter.Wait(pollCtx); err != nil {
			break
		}
		ok, err := check(pollCtx)
		if ok {
			return nil
		}
		if pollCtx.Err() != nil {
			// The check was cut short by the deadline; keep the earlier cause.
			break
		}
		last = err
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return timeoutError(timeout, last)
}

func timeoutError(timeout time.Duration, last error) error {
	if last == nil {
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, last)
}
