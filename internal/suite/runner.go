// internal/suite/runner.go
package suite

import (
	"context"
	"fmt"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/browser/interact"
	"github.com/xkilldash9x/loginprobe/internal/browser/session"
	"github.com/xkilldash9x/loginprobe/internal/config"
)

const screenshotTimeout = 10 * time.Second

// Scope hands a case a browser for the duration of fn and releases it on
// every exit path.
type Scope interface {
	WithBrowser(ctx context.Context, url string, fn func(context.Context, Browser) error) error
}

// ScopeFunc adapts a function to Scope.
type ScopeFunc func(ctx context.Context, url string, fn func(context.Context, Browser) error) error

func (f ScopeFunc) WithBrowser(ctx context.Context, url string, fn func(context.Context, Browser) error) error {
	return f(ctx, url, fn)
}

// ProviderScope runs every case in its own session from p.
func ProviderScope(p *session.Provider) Scope {
	return ScopeFunc(func(ctx context.Context, url string, fn func(context.Context, Browser) error) error {
		return p.WithSession(ctx, url, func(ctx context.Context, s *session.Session) error {
			return fn(ctx, s)
		})
	})
}

// ArtifactSink stores failure evidence and returns where it went.
type ArtifactSink interface {
	SaveScreenshot(caseName string, png []byte) (string, error)
}

// Runner executes cases sequentially, each against a fresh browser.
type Runner struct {
	scope     Scope
	logger    *zap.Logger
	cases     []Case
	filter    *regexp.Regexp
	artifacts ArtifactSink
	runID     string

	loginURL     string
	locators     Locators
	helperOpts   interact.Options
	timeouts     config.TimeoutsConfig
	credentials  config.CredentialsConfig
	expectations config.ExpectationsConfig
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithFilter keeps only the cases whose name matches re.
func WithFilter(re *regexp.Regexp) RunnerOption {
	return func(r *Runner) { r.filter = re }
}

// WithArtifacts stores a screenshot of every failing case in sink.
func WithArtifacts(sink ArtifactSink) RunnerOption {
	return func(r *Runner) { r.artifacts = sink }
}

// WithCases replaces the built-in scenarios.
func WithCases(cases ...Case) RunnerOption {
	return func(r *Runner) { r.cases = cases }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) RunnerOption {
	return func(r *Runner) { r.runID = id }
}

// HelperOptions derives interaction helper options from configuration.
func HelperOptions(cfg *config.Config) (interact.Options, error) {
	overlays, err := ParseAll("interaction.overlays", cfg.Interaction.Overlays)
	if err != nil {
		return interact.Options{}, err
	}
	settle, err := interact.ParseSettlePolicy(cfg.Interaction.SettlePolicy)
	if err != nil {
		return interact.Options{}, err
	}
	return interact.Options{
		Overlays:       overlays,
		OverlayTimeout: cfg.Timeouts.Overlay,
		SettleDelay:    cfg.Timeouts.Settle,
		Settle:         settle,
		PollInterval:   cfg.Timeouts.PollInterval,
	}, nil
}

// NewRunner prepares a run of the login scenarios against cfg's target.
func NewRunner(cfg *config.Config, scope Scope, logger *zap.Logger, opts ...RunnerOption) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	locs, err := ParseLocators(cfg.Locators)
	if err != nil {
		return nil, fmt.Errorf("parsing locators: %w", err)
	}
	helperOpts, err := HelperOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("building interaction options: %w", err)
	}

	r := &Runner{
		scope:        scope,
		logger:       logger.Named("suite"),
		cases:        Cases(),
		loginURL:     cfg.Target.LoginURL(),
		locators:     locs,
		helperOpts:   helperOpts,
		timeouts:     cfg.Timeouts,
		credentials:  cfg.Credentials,
		expectations: cfg.Expectations,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	return r, nil
}

func (r *Runner) RunID() string { return r.runID }

// Selected returns the cases the filter lets through, in order.
func (r *Runner) Selected() []Case {
	var out []Case
	for _, c := range r.cases {
		if r.filter == nil || r.filter.MatchString(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

// Run executes every selected case in order. A case failing does not stop
// the run; a cancelled context marks the remaining cases skipped.
func (r *Runner) Run(ctx context.Context) Summary {
	sum := Summary{RunID: r.runID, Target: r.loginURL, StartedAt: time.Now()}
	log := r.logger.With(zap.String("run_id", r.runID))
	selected := r.Selected()
	log.Info("Starting run.", zap.Int("cases", len(selected)), zap.String("target", r.loginURL))

	for _, c := range selected {
		if err := ctx.Err(); err != nil {
			sum.Results = append(sum.Results, Result{
				Name:        c.Name,
				Description: c.Description,
				Status:      StatusSkipped,
				StartedAt:   time.Now(),
				Message:     fmt.Sprintf("run cancelled: %v", err),
			})
			continue
		}
		res := r.runCase(ctx, c)
		log.Info("Case finished.",
			zap.String("case", c.Name),
			zap.String("status", string(res.Status)),
			zap.Duration("duration", res.Duration),
			zap.String("message", res.Message),
		)
		sum.Results = append(sum.Results, res)
	}

	sum.Duration = time.Since(sum.StartedAt)
	log.Info("Run finished.",
		zap.Int("passed", sum.Count(StatusPassed)),
		zap.Int("failed", sum.Count(StatusFailed)),
		zap.Int("errored", sum.Count(StatusError)),
		zap.Int("skipped", sum.Count(StatusSkipped)),
	)
	return sum
}

func (r *Runner) runCase(ctx context.Context, c Case) Result {
	res := Result{Name: c.Name, Description: c.Description, StartedAt: time.Now()}
	log := r.logger.With(zap.String("run_id", r.runID), zap.String("case", c.Name))

	err := r.scope.WithBrowser(ctx, r.loginURL, func(ctx context.Context, b Browser) error {
		env := &Env{
			Browser:      b,
			Helper:       interact.New(b, log, r.helperOpts),
			Locators:     r.locators,
			Timeouts:     r.timeouts,
			Credentials:  r.credentials,
			Expectations: r.expectations,
			Logger:       log,
		}
		err := runGuarded(ctx, c, env)
		if err != nil {
			res.Screenshot = r.captureFailure(ctx, c.Name, b, log)
		}
		return err
	})

	res.Duration = time.Since(res.StartedAt)
	res.Status = classify(err)
	if err != nil {
		res.Message = err.Error()
	}
	return res
}

// runGuarded turns a panicking case into an error so the run goes on.
func runGuarded(ctx context.Context, c Case, env *Env) (err error) {
	defer func() {
		if p := recover(); p != nil {
			env.Logger.Error("Case panicked.", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("case %s panicked: %v", c.Name, p)
		}
	}()
	return c.Run(ctx, env)
}

// captureFailure saves a screenshot while the session is still open. It
// runs on a detached context so a cancelled run still leaves evidence.
func (r *Runner) captureFailure(ctx context.Context, name string, b Browser, log *zap.Logger) string {
	if r.artifacts == nil {
		return ""
	}
	shotCtx, cancel := context.WithTimeout(session.Detach(ctx), screenshotTimeout)
	defer cancel()

	png, err := b.Screenshot(shotCtx)
	if err != nil {
		log.Warn("Failure screenshot could not be taken.", zap.Error(err))
		return ""
	}
	path, err := r.artifacts.SaveScreenshot(name, png)
	if err != nil {
		log.Warn("Failure screenshot could not be saved.", zap.Error(err))
		return ""
	}
	log.Info("Saved failure screenshot.", zap.String("path", path))
	return path
}
