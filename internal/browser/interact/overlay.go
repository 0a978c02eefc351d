// internal/browser/interact/overlay.go
package interact

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/browser/locator"
	"github.com/xkilldash9x/loginprobe/internal/browser/wait"
)

// OverlayStatus is the tagged result of waiting on one overlay.
type OverlayStatus int

const (
	OverlayCleared OverlayStatus = iota
	OverlayTimedOut
)

func (s OverlayStatus) String() string {
	if s == OverlayCleared {
		return "cleared"
	}
	return "timed_out"
}

// OverlayOutcome records what happened to a single overlay locator. Seen is
// set when the overlay was observed visible at least once.
type OverlayOutcome struct {
	Overlay locator.Locator
	Status  OverlayStatus
	Seen    bool
	Waited  time.Duration
}

// AwaitOverlayCleared waits, one overlay at a time, for each locator to be
// absent or hidden. Every overlay gets its own timeout and a timeout on one
// does not stop the others. It never fails: the outcomes are returned for the
// caller to inspect or discard.
//
// After the checks the settle delay is applied according to the configured
// SettlePolicy.
func (h *Helper) AwaitOverlayCleared(ctx context.Context, overlays []locator.Locator, timeout time.Duration) []OverlayOutcome {
	outcomes := make([]OverlayOutcome, 0, len(overlays))
	seenAny := false

	for _, overlay := range overlays {
		if ctx.Err() != nil {
			outcomes = append(outcomes, OverlayOutcome{Overlay: overlay, Status: OverlayTimedOut})
			continue
		}
		out := h.awaitOne(ctx, overlay, timeout)
		seenAny = seenAny || out.Seen
		outcomes = append(outcomes, out)
	}

	if h.shouldSettle(seenAny) {
		h.logger.Debug("Applying overlay settle delay.",
			zap.Duration("delay", h.opts.SettleDelay),
			zap.String("policy", string(h.opts.Settle)))
		h.sleep(ctx, h.opts.SettleDelay)
	}
	return outcomes
}

func (h *Helper) awaitOne(ctx context.Context, overlay locator.Locator, timeout time.Duration) OverlayOutcome {
	out := OverlayOutcome{Overlay: overlay}
	xpath := overlay.XPath()
	start := time.Now()

	err := wait.Poll(ctx, timeout, h.opts.PollInterval, func(ctx context.Context) (bool, error) {
		state, err := h.page.Probe(ctx, xpath)
		if err != nil {
			return false, err
		}
		if state.Displayed() {
			out.Seen = true
			return false, nil
		}
		return true, nil
	})
	out.Waited = time.Since(start)

	if err != nil {
		out.Status = OverlayTimedOut
		h.logger.Debug("Overlay did not clear in time, continuing.",
			zap.Stringer("overlay", overlay),
			zap.Duration("timeout", timeout),
			zap.Error(err))
		return out
	}
	out.Status = OverlayCleared
	if out.Seen {
		h.logger.Debug("Overlay cleared.", zap.Stringer("overlay", overlay), zap.Duration("waited", out.Waited))
	}
	return out
}

func (h *Helper) shouldSettle(seenAny bool) bool {
	switch h.opts.Settle {
	case SettleAlways:
		return true
	case SettleNever:
		return false
	default:
		return seenAny
	}
}
