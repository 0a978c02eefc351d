// internal/browser/session/session.go
// Package session owns the Chromium side of a test case. A Provider launches
// one browser process per session; a Session drives its single tab and
// implements the element-level page the interaction helper works against.
//
// Every element operation re-resolves its XPath inside the page, so no
// node handle ever outlives the call that produced it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/browser/dom"
)

const (
	defaultOpTimeout  = 15 * time.Second
	defaultNavTimeout = 45 * time.Second
)

// Session is one browser process with one tab.
type Session struct {
	id     string
	ctx    context.Context // chromedp browser context
	logger *zap.Logger

	opTimeout  time.Duration
	navTimeout time.Duration

	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	onClose       func()
	closeOnce     sync.Once
}

func (s *Session) ID() string { return s.id }

// Context returns the session's lifecycle context. It is done once the
// session is closed.
func (s *Session) Context() context.Context { return s.ctx }

// RunActions runs chromedp actions bound to this session's tab under the
// caller's cancellation and deadline.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	// Report the caller's reason first; chromedp only sees a cancelled context.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w (%v)", ctxErr, err)
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("session %s closed: %w", s.id, err)
	}
	return err
}

// opContext bounds a single operation by the session's default timeout,
// unless the caller already set a tighter deadline.
func (s *Session) opContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < d {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// evalElement runs one js/element.js operation and decodes its result.
func (s *Session) evalElement(ctx context.Context, xpath string, op elementOp, arg string) (elementResult, error) {
	opCtx, cancel := s.opContext(ctx, s.opTimeout)
	defer cancel()

	var raw []byte
	err := s.RunActions(opCtx, chromedp.Evaluate(elementCall(xpath, op, arg), &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true)
	}))
	if err != nil {
		return elementResult{}, fmt.Errorf("element %s on %s: %w", op, xpath, err)
	}
	return decodeElementResult(raw)
}

// requireElement is evalElement for operations that need a match.
func (s *Session) requireElement(ctx context.Context, xpath string, op elementOp, arg string) (elementResult, error) {
	res, err := s.evalElement(ctx, xpath, op, arg)
	if err != nil {
		return res, err
	}
	if res.Count == 0 {
		return res, fmt.Errorf("%w: %s", dom.ErrNoSuchElement, xpath)
	}
	return res, nil
}

// Probe snapshots the element state for xpath.
func (s *Session) Probe(ctx context.Context, xpath string) (dom.ElementState, error) {
	res, err := s.evalElement(ctx, xpath, opProbe, "")
	if err != nil {
		return dom.ElementState{}, err
	}
	return res.ElementState, nil
}

// URL returns the tab's current location.
func (s *Session) URL(ctx context.Context) (string, error) {
	opCtx, cancel := s.opContext(ctx, s.opTimeout)
	defer cancel()

	var loc string
	if err := s.RunActions(opCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return loc, nil
}

// NativeClick scrolls the element into view, hit-tests its centre and
// dispatches a real mouse click there.
func (s *Session) NativeClick(ctx context.Context, xpath string) error {
	res, err := s.requireElement(ctx, xpath, opPoint, "")
	if err != nil {
		return err
	}
	if res.Intercepted {
		return fmt.Errorf("%w: %s covers %s", dom.ErrClickIntercepted, res.Obstructor, xpath)
	}

	opCtx, cancel := s.opContext(ctx, s.opTimeout)
	defer cancel()
	if err := s.RunActions(opCtx, chromedp.MouseClickXY(res.X, res.Y)); err != nil {
		return fmt.Errorf("mouse click at (%.0f,%.0f): %w", res.X, res.Y, err)
	}
	s.logger.Debug("Dispatched native click.", zap.String("xpath", xpath), zap.Float64("x", res.X), zap.Float64("y", res.Y))
	return nil
}

// ScriptClick calls element.click() without hit-testing.
func (s *Session) ScriptClick(ctx context.Context, xpath string) error {
	_, err := s.requireElement(ctx, xpath, opClick, "")
	if err == nil {
		s.logger.Debug("Dispatched script click.", zap.String("xpath", xpath))
	}
	return err
}

func (s *Session) ScrollIntoView(ctx context.Context, xpath string) error {
	_, err := s.requireElement(ctx, xpath, opScroll, "")
	return err
}

// Type focuses and clears the element, then types text as key events.
func (s *Session) Type(ctx context.Context, xpath, text string) error {
	if _, err := s.requireElement(ctx, xpath, opClear, ""); err != nil {
		return err
	}
	opCtx, cancel := s.opContext(ctx, s.opTimeout)
	defer cancel()
	if err := s.RunActions(opCtx, chromedp.KeyEvent(text)); err != nil {
		return fmt.Errorf("typing into %s: %w", xpath, err)
	}
	return nil
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating session.", zap.String("url", url))
	navCtx, cancel := s.opContext(ctx, s.navTimeout)
	defer cancel()

	if err := s.RunActions(navCtx, chromedp.Navigate(url)); err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, s.navTimeout, err)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Back steps one entry back in the tab's history. Single page apps route
// with the fragment, so this goes through history.back() rather than a
// load-waiting navigation; callers wait on the resulting page state.
func (s *Session) Back(ctx context.Context) error {
	opCtx, cancel := s.opContext(ctx, s.opTimeout)
	defer cancel()

	var ok bool
	if err := s.RunActions(opCtx, chromedp.Evaluate(`(history.back(), true)`, &ok)); err != nil {
		return fmt.Errorf("history back: %w", err)
	}
	return nil
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel := s.opContext(ctx, s.opTimeout)
	defer cancel()

	var buf []byte
	if err := s.RunActions(opCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the tab and the browser process. It is safe to call more than
// once; only the first call has an effect.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("Closing session.")

		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.ctx) }()
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}

		s.cancelBrowser()
		s.cancelAlloc()
		if s.onClose != nil {
			s.onClose()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("closing session %s: %w", s.id, err)
	}
	return nil
}
