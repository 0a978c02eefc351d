// internal/browser/session/provider.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/config"
)

const (
	defaultStartTimeout = 60 * time.Second
	closeGracePeriod    = 10 * time.Second
)

// ErrProviderClosed is returned by Open after Shutdown has begun.
var ErrProviderClosed = errors.New("session provider is shut down")

// Provider launches one browser process per session and tracks the sessions
// it handed out so Shutdown can wait for them.
type Provider struct {
	browser  config.BrowserConfig
	timeouts config.TimeoutsConfig
	headless bool
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	wg       sync.WaitGroup
}

// NewProvider resolves headless mode once, from config and environment.
func NewProvider(cfg *config.Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{
		browser:  cfg.Browser,
		timeouts: cfg.Timeouts,
		headless: cfg.Browser.HeadlessEnabled(nil),
		logger:   logger.Named("session"),
		sessions: make(map[string]*Session),
	}
	p.logger.Info("Session provider created.", zap.Bool("headless", p.headless), zap.String("exec_path", cfg.Browser.ExecPath))
	return p
}

func (p *Provider) Headless() bool { return p.headless }

// Open launches a browser, waits for it to come up and loads url in its tab.
// The caller owns the returned session and must Close it.
func (p *Provider) Open(ctx context.Context, url string) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrProviderClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	id := uuid.NewString()
	logger := p.logger.With(zap.String("session_id", id))

	// The browser's lifetime is the session's, not the caller's request, so
	// both contexts hang off a detached parent.
	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(ctx), AllocatorOptions(p.browser, p.headless)...)

	sugar := logger.Sugar()
	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	}
	if p.browser.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(sugar.Debugf))
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	s := &Session{
		id:            id,
		ctx:           browserCtx,
		logger:        logger,
		opTimeout:     orDefault(p.timeouts.Page, defaultOpTimeout),
		navTimeout:    orDefault(p.timeouts.Navigation, defaultNavTimeout),
		cancelBrowser: browserCancel,
		cancelAlloc:   allocCancel,
	}
	s.onClose = func() {
		p.mu.Lock()
		delete(p.sessions, id)
		p.mu.Unlock()
		p.wg.Done()
		logger.Debug("Session removed from provider.")
	}

	if err := p.start(ctx, s); err != nil {
		cleanupCtx, cancel := context.WithTimeout(Detach(ctx), closeGracePeriod)
		defer cancel()
		_ = s.Close(cleanupCtx)
		return nil, err
	}

	p.mu.Lock()
	p.sessions[id] = s
	p.mu.Unlock()
	logger.Info("New session created.", zap.String("url", url))

	if url == "" {
		return s, nil
	}
	if err := s.Navigate(ctx, url); err != nil {
		cleanupCtx, cancel := context.WithTimeout(Detach(ctx), closeGracePeriod)
		defer cancel()
		_ = s.Close(cleanupCtx)
		return nil, err
	}
	return s, nil
}

// start runs the first, empty action which launches the process. chromedp
// ties the browser to the context of the first Run, so that context must not
// carry a timeout; the start budget is enforced from the outside instead.
func (p *Provider) start(ctx context.Context, s *Session) error {
	timeout := orDefault(p.timeouts.SessionStart, defaultStartTimeout)
	errCh := make(chan error, 1)
	go func() { errCh <- chromedp.Run(s.ctx) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("launching browser: %w", err)
		}
		return nil
	case <-timer.C:
		s.cancelBrowser()
		<-errCh
		return fmt.Errorf("launching browser: no response within %v", timeout)
	case <-ctx.Done():
		s.cancelBrowser()
		<-errCh
		return fmt.Errorf("launching browser: %w", ctx.Err())
	}
}

// WithSession opens a session at url, hands it to fn and closes it on every
// exit path, panics included.
func (p *Provider) WithSession(ctx context.Context, url string, fn func(context.Context, *Session) error) (err error) {
	s, err := p.Open(ctx, url)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(Detach(ctx), closeGracePeriod)
		defer cancel()
		if cerr := s.Close(closeCtx); cerr != nil {
			p.logger.Warn("Session close failed.", zap.String("session_id", s.ID()), zap.Error(cerr))
		}
	}()
	return fn(ctx, s)
}

// OpenSessions returns the number of sessions currently handed out.
func (p *Provider) OpenSessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Shutdown refuses new sessions, closes the ones still open and waits for
// them until ctx is done.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	open := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		open = append(open, s)
	}
	p.mu.Unlock()

	if len(open) > 0 {
		p.logger.Info("Closing remaining sessions.", zap.Int("count", len(open)))
	}
	for _, s := range open {
		if err := s.Close(ctx); err != nil {
			p.logger.Warn("Session close failed during shutdown.", zap.String("session_id", s.ID()), zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("Session provider shut down.")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sessions to close: %w", ctx.Err())
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
