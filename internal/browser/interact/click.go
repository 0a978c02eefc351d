// internal/browser/interact/click.go
package interact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/browser/dom"
	"github.com/xkilldash9x/loginprobe/internal/browser/locator"
	"github.com/xkilldash9x/loginprobe/internal/browser/wait"
)

// Strategy is the way a click is delivered. Strategies are tried in
// declaration order and there is exactly one escalation.
type Strategy int

const (
	DirectClick Strategy = iota
	ScriptClick
)

func (s Strategy) String() string {
	switch s {
	case DirectClick:
		return "direct"
	case ScriptClick:
		return "script"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ClickState tracks a single ClickResilient call.
type ClickState string

const (
	StateIdle                  ClickState = "idle"
	StateAwaitingOverlayClear  ClickState = "awaiting_overlay_clear"
	StateAwaitingInteractable  ClickState = "awaiting_interactable"
	StateClicking              ClickState = "clicking"
	StateNativeClickOK         ClickState = "native_click_ok"
	StateInterceptedFallbackOK ClickState = "intercepted_fallback_ok"
	StateFailed                ClickState = "failed"
)

// Terminal reports whether no further transition can happen.
func (s ClickState) Terminal() bool {
	return s == StateNativeClickOK || s == StateInterceptedFallbackOK || s == StateFailed
}

// ClickReport describes how a click went.
type ClickReport struct {
	Target   locator.Locator
	State    ClickState
	Strategy Strategy
	Overlays []OverlayOutcome
	// Escalated is set when the interactable wait ran out with the target
	// only obstructed and the click went ahead anyway.
	Escalated bool
	Last      dom.ElementState
	// Intercepted holds the native click error that triggered the fallback.
	Intercepted error
	Duration    time.Duration
}

// Succeeded reports whether the click was initiated.
func (r ClickReport) Succeeded() bool {
	return r.State == StateNativeClickOK || r.State == StateInterceptedFallbackOK
}

// ClickResilient clears known overlays, waits for target to be clickable and
// clicks it. A click intercepted by another element is retried once as a
// script-level click. The click is either initiated or an error wrapping
// ErrElementNotFound or ErrTargetNotInteractable (or the fallback's own
// error) is returned. When no probe of target ever succeeded the probe
// failure itself is returned instead of a sentinel.
//
// A target that is visible and enabled but covered by an element outside
// the overlay set keeps waiting for the whole timeout before the click goes
// ahead and relies on the script fallback.
func (h *Helper) ClickResilient(ctx context.Context, target locator.Locator, timeout time.Duration) (ClickReport, error) {
	start := time.Now()
	report := ClickReport{Target: target, State: StateIdle, Strategy: DirectClick}
	xpath := target.XPath()
	log := h.logger.With(zap.Stringer("target", target))

	advance := func(next ClickState) {
		log.Debug("Click state transition.", zap.String("from", string(report.State)), zap.String("to", string(next)))
		report.State = next
	}
	fail := func(err error) (ClickReport, error) {
		advance(StateFailed)
		report.Duration = time.Since(start)
		return report, &InteractionError{Op: "click", Target: target, Last: report.Last, Err: err}
	}

	advance(StateAwaitingOverlayClear)
	report.Overlays = h.AwaitOverlayCleared(ctx, h.opts.Overlays, h.opts.OverlayTimeout)

	advance(StateAwaitingInteractable)
	res, err := h.awaitState(ctx, xpath, timeout, dom.ElementState.Clickable)
	report.Last = res.last
	if err != nil {
		if ctx.Err() == nil && res.last.Interactable() {
			// Present, visible and enabled, only covered. The interception
			// fallback below is the remedy for that.
			report.Escalated = true
			log.Info("Target still obstructed at deadline, clicking anyway.", zap.String("obstructor", res.last.Obstructor))
		} else {
			return fail(res.failure(ctx, timeout, err))
		}
	}

	advance(StateClicking)
	nativeErr := h.page.NativeClick(ctx, xpath)
	if nativeErr == nil {
		advance(StateNativeClickOK)
		report.Duration = time.Since(start)
		return report, nil
	}
	if !errors.Is(nativeErr, dom.ErrClickIntercepted) {
		return fail(translate(nativeErr))
	}

	log.Info("Native click intercepted, falling back to script click.", zap.Error(nativeErr))
	report.Intercepted = nativeErr
	report.Strategy = ScriptClick
	if err := h.page.ScriptClick(ctx, xpath); err != nil {
		return fail(fmt.Errorf("script click fallback: %w", translate(err)))
	}
	advance(StateInterceptedFallbackOK)
	report.Duration = time.Since(start)
	return report, nil
}

// stateWait summarises the probes made by awaitState.
type stateWait struct {
	last     dom.ElementState
	probed   bool // at least one probe returned a state
	matched  bool // at least one probe matched an element
	probeErr error
}

// failure maps an unsuccessful wait onto the error the caller reports.
// Probe failures win over the sentinels when nothing was ever observed, so a
// dead browser is not mistaken for a missing element.
func (w stateWait) failure(ctx context.Context, timeout time.Duration, pollErr error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case !w.probed:
		return pollErr
	}
	sentinel := ErrTargetNotInteractable
	if !w.matched {
		sentinel = ErrElementNotFound
	}
	if w.probeErr != nil {
		return fmt.Errorf("%w within %s: %w", sentinel, timeout, w.probeErr)
	}
	return fmt.Errorf("%w within %s", sentinel, timeout)
}

// awaitState polls xpath until ready holds for its state.
func (h *Helper) awaitState(ctx context.Context, xpath string, timeout time.Duration, ready func(dom.ElementState) bool) (stateWait, error) {
	var w stateWait
	err := wait.Poll(ctx, timeout, h.opts.PollInterval, func(ctx context.Context) (bool, error) {
		state, err := h.page.Probe(ctx, xpath)
		if err != nil {
			if ctx.Err() == nil {
				w.probeErr = err
			}
			return false, err
		}
		w.last, w.probed, w.probeErr = state, true, nil
		w.matched = w.matched || state.Present()
		return ready(state), nil
	})
	return w, err
}

// ResolveAfterTransition blocks until any condition of policy holds or its
// timeout elapses, and reports whether it held.
func (h *Helper) ResolveAfterTransition(ctx context.Context, policy wait.Policy) bool {
	if policy.Interval <= 0 {
		policy.Interval = h.opts.PollInterval
	}
	if err := wait.Until(ctx, h.page, policy); err != nil {
		h.logger.Info("Expected transition did not happen.", zap.Stringer("policy", policy), zap.Error(err))
		return false
	}
	h.logger.Debug("Transition observed.", zap.Stringer("policy", policy))
	return true
}

// TypeResilient clears known overlays, waits for target to be visible and
// enabled, then replaces its value with text.
func (h *Helper) TypeResilient(ctx context.Context, target locator.Locator, text string, timeout time.Duration) error {
	_ = h.AwaitOverlayCleared(ctx, h.opts.Overlays, h.opts.OverlayTimeout)

	res, err := h.awaitState(ctx, target.XPath(), timeout, dom.ElementState.Interactable)
	if err != nil {
		return &InteractionError{Op: "type", Target: target, Last: res.last, Err: res.failure(ctx, timeout, err)}
	}

	if err := h.page.Type(ctx, target.XPath(), text); err != nil {
		return &InteractionError{Op: "type", Target: target, Last: res.last, Err: translate(err)}
	}
	return nil
}
