// internal/suite/suite_test.go
package suite_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/loginprobe/internal/browser/dom"
	"github.com/xkilldash9x/loginprobe/internal/browser/interact"
	"github.com/xkilldash9x/loginprobe/internal/config"
	"github.com/xkilldash9x/loginprobe/internal/mocks"
	"github.com/xkilldash9x/loginprobe/internal/suite"
)

var (
	shown   = dom.ElementState{Count: 1, Visible: true, Enabled: true}
	checked = dom.ElementState{Count: 1, Visible: true, Enabled: true, Selected: true}
)

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Timeouts.Page = 150 * time.Millisecond
	cfg.Timeouts.Transition = 150 * time.Millisecond
	cfg.Timeouts.Click = 150 * time.Millisecond
	cfg.Timeouts.Overlay = 20 * time.Millisecond
	cfg.Timeouts.Settle = 0
	cfg.Timeouts.PollInterval = 5 * time.Millisecond
	cfg.Interaction.SettlePolicy = "never"
	return cfg
}

// fakeScope hands every case a fresh FakePage built by setup and counts
// acquisitions and releases.
type fakeScope struct {
	setup func(p *mocks.FakePage)
	err   error

	mu       sync.Mutex
	pages    []*mocks.FakePage
	acquired int
	released int
}

func (s *fakeScope) WithBrowser(ctx context.Context, url string, fn func(context.Context, suite.Browser) error) error {
	if s.err != nil {
		return s.err
	}
	p := mocks.NewFakePage(url)
	if s.setup != nil {
		s.setup(p)
	}
	s.mu.Lock()
	s.pages = append(s.pages, p)
	s.acquired++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.released++
		s.mu.Unlock()
	}()
	return fn(ctx, p)
}

type memSink struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (m *memSink) SaveScreenshot(name string, png []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[name] = png
	return "mem://" + name + ".png", nil
}

// healthyPage scripts a login page on which every scenario passes.
func healthyPage(t *testing.T, cfg *config.Config) func(p *mocks.FakePage) {
	locs, err := suite.ParseLocators(cfg.Locators)
	require.NoError(t, err)
	base := cfg.Target.BaseURL

	return func(p *mocks.FakePage) {
		for _, l := range []string{
			locs.Heading.XPath(), locs.Email.XPath(), locs.Password.XPath(),
			locs.LoginButton.XPath(), locs.RememberMe.XPath(),
			locs.ForgotPassword.XPath(), locs.SignUp.XPath(),
		} {
			p.SetState(l, shown)
		}
		p.OnClick = func(p *mocks.FakePage, _ string, xpath string) {
			switch xpath {
			case locs.LoginButton.XPath():
				p.SetState(locs.ErrorIndicators[2].XPath(), shown)
			case locs.RememberMe.XPath():
				p.SetState(locs.RememberMe.XPath(), checked)
			case locs.ForgotPassword.XPath():
				_ = p.Navigate(context.Background(), base+"/#/forgot-password")
			case locs.SignUp.XPath():
				_ = p.Navigate(context.Background(), base+"/#/signup")
			}
		}
	}
}

func statuses(sum suite.Summary) map[string]suite.Status {
	out := make(map[string]suite.Status, len(sum.Results))
	for _, r := range sum.Results {
		out[r.Name] = r.Status
	}
	return out
}

func TestRunner_AllCasesPassOnHealthyPage(t *testing.T) {
	defer goleak.VerifyNone(t)
	cfg := testConfig()
	scope := &fakeScope{setup: healthyPage(t, cfg)}
	sink := &memSink{}

	r, err := suite.NewRunner(cfg, scope, zaptest.NewLogger(t), suite.WithArtifacts(sink), suite.WithRunID("run-1"))
	require.NoError(t, err)

	sum := r.Run(context.Background())
	for _, res := range sum.Results {
		assert.Equal(t, suite.StatusPassed, res.Status, "%s: %s", res.Name, res.Message)
	}
	assert.Len(t, sum.Results, 5)
	assert.True(t, sum.OK())
	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, "https://dev.fobesoft.com/#/login", sum.Target)
	assert.Equal(t, 5, scope.acquired)
	assert.Equal(t, scope.acquired, scope.released)
	assert.Empty(t, sink.saved)
}

func TestInvalidLogin_TypesConfiguredCredentials(t *testing.T) {
	cfg := testConfig()
	scope := &fakeScope{setup: healthyPage(t, cfg)}
	r, err := suite.NewRunner(cfg, scope, zaptest.NewLogger(t), suite.WithFilter(regexp.MustCompile("^invalid_login")))
	require.NoError(t, err)

	sum := r.Run(context.Background())
	require.Len(t, sum.Results, 1)
	require.Equal(t, suite.StatusPassed, sum.Results[0].Status, sum.Results[0].Message)

	var typed []mocks.Action
	for _, a := range scope.pages[0].Actions() {
		if a.Op == "type" {
			typed = append(typed, a)
		}
	}
	require.Len(t, typed, 2)
	assert.Equal(t, "test@gmail.com", typed[0].Text)
	assert.Equal(t, "test@123", typed[1].Text)
}

func TestInvalidLogin_NoErrorShownFails(t *testing.T) {
	cfg := testConfig()
	healthy := healthyPage(t, cfg)
	scope := &fakeScope{setup: func(p *mocks.FakePage) {
		healthy(p)
		p.OnClick = nil
	}}
	sink := &memSink{}
	r, err := suite.NewRunner(cfg, scope, zaptest.NewLogger(t),
		suite.WithFilter(regexp.MustCompile("^invalid_login")), suite.WithArtifacts(sink))
	require.NoError(t, err)

	res := r.Run(context.Background()).Results[0]
	assert.Equal(t, suite.StatusFailed, res.Status)
	assert.Contains(t, res.Message, "expected an error message")
	assert.Equal(t, "mem://invalid_login_shows_error.png", res.Screenshot)
	assert.Contains(t, sink.saved, "invalid_login_shows_error")
}

func TestInvalidLogin_CancelDuringTransitionIsNotAFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Timeouts.Transition = 5 * time.Second
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthy := healthyPage(t, cfg)
	scope := &fakeScope{setup: func(p *mocks.FakePage) {
		healthy(p)
		p.OnClick = func(*mocks.FakePage, string, string) { cancel() }
	}}
	r, err := suite.NewRunner(cfg, scope, zaptest.NewLogger(t), suite.WithFilter(regexp.MustCompile("^invalid_login")))
	require.NoError(t, err)

	start := time.Now()
	res := r.Run(ctx).Results[0]
	assert.NotEqual(t, suite.StatusFailed, res.Status)
	assert.NotContains(t, res.Message, "expected an error message")
	assert.Contains(t, res.Message, context.Canceled.Error())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestInvalidLogin_BrowserFailureIsAnError(t *testing.T) {
	cfg := testConfig()
	locs, err := suite.ParseLocators(cfg.Locators)
	require.NoError(t, err)
	cdpErr := errors.New("cdp: websocket closed")

	healthy := healthyPage(t, cfg)
	scope := &fakeScope{setup: func(p *mocks.FakePage) {
		healthy(p)
		p.SetProbeErr(locs.Email.XPath(), cdpErr)
	}}
	r, err := suite.NewRunner(cfg, scope, zaptest.NewLogger(t), suite.WithFilter(regexp.MustCompile("^invalid_login")))
	require.NoError(t, err)

	res := r.Run(context.Background()).Results[0]
	assert.Equal(t, suite.StatusError, res.Status)
	assert.Contains(t, res.Message, cdpErr.Error())
}

func TestForgotPassword_ResetFormIsEnough(t *testing.T) {
	cfg := testConfig()
	cfg.Expectations.ForgotURL = "never-in-url"
	healthy := healthyPage(t, cfg)
	locs, err := suite.ParseLocators(cfg.Locators)
	require.NoError(t, err)

	scope := &fakeScope{setup: func(p *mocks.FakePage) {
		healthy(p)
		inner := p.OnClick
		p.OnClick = func(p *mocks.FakePage, op, xpath string) {
			inner(p, op, xpath)
			if xpath == locs.ForgotPassword.XPath() {
				p.SetState(locs.ResetForm.XPath(), dom.ElementState{Count: 1})
			}
		}
	}}
	r, err := suite.NewRunner(cfg, scope, zaptest.NewLogger(t), suite.WithFilter(regexp.MustCompile("^forgot")))
	require.NoError(t, err)

	res := r.Run(context.Background()).Results[0]
	assert.Equal(t, suite.StatusPassed, res.Status, res.Message)

	ops := scope.pages[0].Actions()
	assert.Equal(t, "back", ops[len(ops)-1].Op)
}

func TestRememberMe_AriaCheckedCounts(t *testing.T) {
	cfg := testConfig()
	healthy := healthyPage(t, cfg)

	scope := &fakeScope{setup: func(p *mocks.FakePage) {
		healthy(p)
		p.OnClick = func(p *mocks.FakePage, _, xpath string) {
			aria := shown
			aria.AriaChecked = "true"
			p.SetState(xpath, aria)
		}
	}}
	r, err := suite.NewRunner(cfg, scope, zaptest.NewLogger(t), suite.WithFilter(regexp.MustCompile("^remember_me")))
	require.NoError(t, err)

	res := r.Run(context.Background()).Results[0]
	assert.Equal(t, suite.StatusPassed, res.Status, res.Message)
}

func TestRememberMe_MissingCheckboxFails(t *testing.T) {
	cfg := testConfig()
	locs, err := suite.ParseLocators(cfg.Locators)
	require.NoError(t, err)

	scope := &fakeScope{setup: func(p *mocks.FakePage) {
		p.SetState(locs.Heading.XPath(), shown)
	}}
	r, err := suite.NewRunner(cfg, scope, zaptest.NewLogger(t), suite.WithFilter(regexp.MustCompile("^remember_me")))
	require.NoError(t, err)

	res := r.Run(context.Background()).Results[0]
	assert.Equal(t, suite.StatusFailed, res.Status)
	assert.Contains(t, res.Message, interact.ErrElementNotFound.Error())
}

func TestRunner_LoginPageNeverRenders(t *testing.T) {
	cfg := testConfig()
	scope := &fakeScope{}
	sink := &memSink{}
	r, err := suite.NewRunner(cfg, scope, zaptest.NewLogger(t), suite.WithArtifacts(sink))
	require.NoError(t, err)

	sum := r.Run(context.Background())
	assert.False(t, sum.OK())
	assert.Equal(t, 5, sum.Count(suite.StatusFailed))
	assert.Len(t, sink.saved, 5)
	for _, res := range sum.Results {
		assert.Contains(t, res.Message, "login page did not render")
	}
	assert.Equal(t, scope.acquired, scope.released)
}

func TestRunner_ScopeErrorIsAnError(t *testing.T) {
	scope := &fakeScope{err: errors.New("launching browser: exec: not found")}
	r, err := suite.NewRunner(testConfig(), scope, zaptest.NewLogger(t), suite.WithFilter(regexp.MustCompile("sign_up")))
	require.NoError(t, err)

	res := r.Run(context.Background()).Results[0]
	assert.Equal(t, suite.StatusError, res.Status)
	assert.Contains(t, res.Message, "launching browser")
}

func TestRunner_CancelledRunSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	cases := []suite.Case{
		{Name: "first", Run: func(context.Context, *suite.Env) error { ran++; cancel(); return nil }},
		{Name: "second", Run: func(context.Context, *suite.Env) error { ran++; return nil }},
	}
	scope := &fakeScope{}
	r, err := suite.NewRunner(testConfig(), scope, zaptest.NewLogger(t), suite.WithCases(cases...))
	require.NoError(t, err)

	sum := r.Run(ctx)
	assert.Equal(t, 1, ran)
	assert.Equal(t, map[string]suite.Status{"first": suite.StatusPassed, "second": suite.StatusSkipped}, statuses(sum))
	assert.True(t, sum.OK())
}

func TestRunner_PanicIsContained(t *testing.T) {
	cases := []suite.Case{
		{Name: "boom", Run: func(context.Context, *suite.Env) error { panic("nil map") }},
		{Name: "after", Run: func(context.Context, *suite.Env) error { return nil }},
	}
	scope := &fakeScope{}
	r, err := suite.NewRunner(testConfig(), scope, zaptest.NewLogger(t), suite.WithCases(cases...))
	require.NoError(t, err)

	sum := r.Run(context.Background())
	assert.Equal(t, map[string]suite.Status{"boom": suite.StatusError, "after": suite.StatusPassed}, statuses(sum))
	assert.Contains(t, sum.Results[0].Message, "panicked: nil map")
	assert.Equal(t, 2, scope.released)
}

func TestRunner_Selected(t *testing.T) {
	r, err := suite.NewRunner(testConfig(), &fakeScope{}, nil, suite.WithFilter(regexp.MustCompile("link$")))
	require.NoError(t, err)

	var names []string
	for _, c := range r.Selected() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"forgot_password_link", "sign_up_link"}, names)
	assert.NotEmpty(t, r.RunID())
}

func TestNewRunner_BadLocators(t *testing.T) {
	cfg := testConfig()
	cfg.Locators.Email = "css=#email"
	cfg.Locators.ErrorIndicators = []string{"class=error", ""}

	_, err := suite.NewRunner(cfg, &fakeScope{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locators.email")
	assert.Contains(t, err.Error(), "locators.error_indicators[1]")
}

func TestHelperOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Interaction.SettlePolicy = "ALWAYS"
	cfg.Timeouts.Settle = 300 * time.Millisecond

	opts, err := suite.HelperOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, interact.SettleAlways, opts.Settle)
	assert.Equal(t, 300*time.Millisecond, opts.SettleDelay)
	assert.Len(t, opts.Overlays, 3)

	cfg.Interaction.SettlePolicy = "sometimes"
	_, err = suite.HelperOptions(cfg)
	assert.Error(t, err)
}

func TestStatusClassification(t *testing.T) {
	notFound := &interact.InteractionError{Op: "click", Err: fmt.Errorf("%w within 1s", interact.ErrElementNotFound)}
	cases := []suite.Case{
		{Name: "assertion", Run: func(context.Context, *suite.Env) error { return suite.Failf("nope %d", 1) }},
		{Name: "not_found", Run: func(context.Context, *suite.Env) error { return notFound }},
		{Name: "other", Run: func(context.Context, *suite.Env) error { return errors.New("devtools gone") }},
	}
	r, err := suite.NewRunner(testConfig(), &fakeScope{}, nil, suite.WithCases(cases...))
	require.NoError(t, err)

	sum := r.Run(context.Background())
	assert.Equal(t, map[string]suite.Status{
		"assertion": suite.StatusFailed,
		"not_found": suite.StatusFailed,
		"other":     suite.StatusError,
	}, statuses(sum))
	assert.Equal(t, "nope 1", sum.Results[0].Message)
}
