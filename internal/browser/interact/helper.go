// internal/browser/interact/helper.go
// Package interact wraps raw element interaction with tolerance for the two
// transient conditions that make login-page automation flaky: overlays that
// are still fading out when a step begins, and clicks that land on such an
// overlay instead of the intended element.
//
// The Helper never confirms outcomes on its own. A caller clicks with
// ClickResilient and then states what it expects with ResolveAfterTransition.
package interact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/browser/dom"
	"github.com/xkilldash9x/loginprobe/internal/browser/locator"
)

var (
	// ErrTargetNotInteractable means the target matched but never became
	// clickable (or typeable) within the budget.
	ErrTargetNotInteractable = errors.New("target not interactable")
	// ErrElementNotFound means the target locator never resolved.
	ErrElementNotFound = errors.New("element not found")
)

// Page is the element-level surface the helper drives. Every method takes an
// XPath and resolves it afresh inside the browser.
type Page interface {
	dom.Inspector
	// NativeClick scrolls the element into view, hit-tests its centre and
	// dispatches real mouse events there. It returns dom.ErrClickIntercepted
	// when the hit-test lands on another element.
	NativeClick(ctx context.Context, xpath string) error
	// ScriptClick invokes element.click() without hit-testing.
	ScriptClick(ctx context.Context, xpath string) error
	ScrollIntoView(ctx context.Context, xpath string) error
	// Type focuses and clears the element, then sends text as key events.
	Type(ctx context.Context, xpath, text string) error
}

// InteractionError carries the operation, the target and the last observed
// element state alongside one of the sentinel errors above.
type InteractionError struct {
	Op     string
	Target locator.Locator
	Last   dom.ElementState
	Err    error
}

func (e *InteractionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %v", e.Op, e.Target, e.Err)
	if e.Last.Present() {
		fmt.Fprintf(&b, " (matches=%d visible=%t enabled=%t obstructed=%t",
			e.Last.Count, e.Last.Visible, e.Last.Enabled, e.Last.Obstructed)
		if e.Last.Obstructor != "" {
			fmt.Fprintf(&b, " by %s", e.Last.Obstructor)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *InteractionError) Unwrap() error { return e.Err }

// SettlePolicy decides when the post-overlay settle delay is paid.
type SettlePolicy string

const (
	// SettleWhenSeen sleeps only if some overlay was observed visible.
	SettleWhenSeen SettlePolicy = "when_seen"
	SettleAlways   SettlePolicy = "always"
	SettleNever    SettlePolicy = "never"
)

// ParseSettlePolicy accepts the config spelling of a policy. Empty means
// SettleWhenSeen.
func ParseSettlePolicy(s string) (SettlePolicy, error) {
	switch p := SettlePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return SettleWhenSeen, nil
	case SettleWhenSeen, SettleAlways, SettleNever:
		return p, nil
	default:
		return "", fmt.Errorf("unknown settle policy %q (want when_seen, always or never)", s)
	}
}

// Options tunes a Helper.
type Options struct {
	// Overlays are checked before every click and type.
	Overlays       []locator.Locator
	OverlayTimeout time.Duration
	SettleDelay    time.Duration
	Settle         SettlePolicy
	// PollInterval paces every wait the helper performs.
	PollInterval time.Duration
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		OverlayTimeout: 5 * time.Second,
		SettleDelay:    400 * time.Millisecond,
		Settle:         SettleWhenSeen,
		PollInterval:   250 * time.Millisecond,
	}
}

// Helper performs resilient interactions against one Page. It keeps no
// element handles between calls and is safe to reuse for a whole case.
type Helper struct {
	page   Page
	logger *zap.Logger
	opts   Options
	sleep  func(ctx context.Context, d time.Duration)
}

// New creates a Helper. Zero durations in opts fall back to DefaultOptions.
func New(page Page, logger *zap.Logger, opts Options) *Helper {
	def := DefaultOptions()
	if opts.OverlayTimeout <= 0 {
		opts.OverlayTimeout = def.OverlayTimeout
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.Settle == "" {
		opts.Settle = def.Settle
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Helper{
		page:   page,
		logger: logger.Named("interact"),
		opts:   opts,
		sleep:  sleepCtx,
	}
}

func (h *Helper) Options() Options { return h.opts }

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// ReadState probes target once.
func (h *Helper) ReadState(ctx context.Context, target locator.Locator) (dom.ElementState, error) {
	state, err := h.page.Probe(ctx, target.XPath())
	if err != nil {
		return state, &InteractionError{Op: "read", Target: target, Err: err}
	}
	if !state.Present() {
		return state, &InteractionError{Op: "read", Target: target, Err: ErrElementNotFound}
	}
	return state, nil
}

// ScrollIntoView centres target in the viewport.
func (h *Helper) ScrollIntoView(ctx context.Context, target locator.Locator) error {
	if err := h.page.ScrollIntoView(ctx, target.XPath()); err != nil {
		return &InteractionError{Op: "scroll", Target: target, Err: translate(err)}
	}
	return nil
}

// translate maps browser-side lookup failures onto the helper's sentinel.
func translate(err error) error {
	if errors.Is(err, dom.ErrNoSuchElement) {
		return fmt.Errorf("%w: %w", ErrElementNotFound, err)
	}
	return err
}
