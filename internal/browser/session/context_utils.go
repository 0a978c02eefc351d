// internal/browser/session/context_utils.go
package session

import (
	"context"
)

// CombineContext derives a context from primary (which carries the chromedp
// target) that is also cancelled when op is done. Values come from primary
// only. The cause of an op-side cancellation is preserved for
// context.Cause.
func CombineContext(primary, op context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(primary)
	stop := context.AfterFunc(op, func() {
		cancel(context.Cause(op))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}

// Detach returns a context that keeps ctx's values (the chromedp target among
// them) but ignores its cancellation and deadline. Teardown work such as the
// failure screenshot runs on it.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
