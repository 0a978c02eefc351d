// internal/browser/interact/click_test.go
package interact

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/loginprobe/internal/browser/dom"
	"github.com/xkilldash9x/loginprobe/internal/browser/locator"
	"github.com/xkilldash9x/loginprobe/internal/browser/wait"
	"github.com/xkilldash9x/loginprobe/internal/mocks"
)

var loginBtn = locator.ByID("login_btn")

func ops(actions []mocks.Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Op)
	}
	return out
}

func TestClickResilient_NativeClick(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, Options{Overlays: []locator.Locator{backdrop}})
	f.page.SetState(loginBtn.XPath(), shown)

	report, err := f.helper.ClickResilient(context.Background(), loginBtn, time.Second)

	require.NoError(t, err)
	assert.Equal(t, StateNativeClickOK, report.State)
	assert.Equal(t, DirectClick, report.Strategy)
	assert.True(t, report.Succeeded())
	assert.False(t, report.Escalated)
	require.Len(t, report.Overlays, 1)
	assert.Equal(t, OverlayCleared, report.Overlays[0].Status)
	assert.Equal(t, []string{"native-click"}, ops(f.page.Actions()))
}

func TestClickResilient_WaitsOutOverlayThenClicks(t *testing.T) {
	f := newFixture(t, Options{Overlays: []locator.Locator{backdrop}, SettleDelay: 400 * time.Millisecond})
	f.page.SetState(backdrop.XPath(), shown, shown, absent)
	f.page.SetState(loginBtn.XPath(), covered, shown)

	report, err := f.helper.ClickResilient(context.Background(), loginBtn, time.Second)

	require.NoError(t, err)
	assert.Equal(t, StateNativeClickOK, report.State)
	assert.True(t, report.Overlays[0].Seen)
	assert.Equal(t, 400*time.Millisecond, f.sleeps.total())
}

func TestClickResilient_InterceptedFallsBackToScript(t *testing.T) {
	f := newFixture(t, Options{})
	f.page.SetState(loginBtn.XPath(), shown)
	f.page.NativeClickErr[loginBtn.XPath()] = fmt.Errorf("%w: div.toast", dom.ErrClickIntercepted)

	report, err := f.helper.ClickResilient(context.Background(), loginBtn, time.Second)

	require.NoError(t, err)
	assert.Equal(t, StateInterceptedFallbackOK, report.State)
	assert.Equal(t, ScriptClick, report.Strategy)
	assert.ErrorIs(t, report.Intercepted, dom.ErrClickIntercepted)
	assert.Equal(t, []string{"native-click", "script-click"}, ops(f.page.Actions()))
}

func TestClickResilient_FallbackErrorSurfaces(t *testing.T) {
	f := newFixture(t, Options{})
	f.page.SetState(loginBtn.XPath(), shown)
	f.page.NativeClickErr[loginBtn.XPath()] = dom.ErrClickIntercepted
	scriptErr := errors.New("element detached")
	f.page.ScriptClickErr[loginBtn.XPath()] = scriptErr

	report, err := f.helper.ClickResilient(context.Background(), loginBtn, time.Second)

	require.Error(t, err)
	assert.ErrorIs(t, err, scriptErr)
	assert.Equal(t, StateFailed, report.State)
	assert.Equal(t, ScriptClick, report.Strategy)
	assert.True(t, report.State.Terminal())
}

func TestClickResilient_NeverMatched(t *testing.T) {
	f := newFixture(t, Options{})

	report, err := f.helper.ClickResilient(context.Background(), loginBtn, 30*time.Millisecond)

	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.NotErrorIs(t, err, ErrTargetNotInteractable)
	var ierr *InteractionError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "click", ierr.Op)
	assert.Equal(t, loginBtn, ierr.Target)
	assert.Equal(t, StateFailed, report.State)
	assert.Empty(t, f.page.Actions(), "no click may be attempted")
}

func TestClickResilient_ProbeFailureIsNotNotFound(t *testing.T) {
	f := newFixture(t, Options{})
	cdpErr := errors.New("cdp: websocket closed")
	f.page.SetProbeErr(loginBtn.XPath(), cdpErr)

	report, err := f.helper.ClickResilient(context.Background(), loginBtn, 30*time.Millisecond)

	require.Error(t, err)
	assert.ErrorIs(t, err, cdpErr)
	assert.NotErrorIs(t, err, ErrElementNotFound)
	assert.NotErrorIs(t, err, ErrTargetNotInteractable)
	assert.Equal(t, StateFailed, report.State)
	assert.Empty(t, f.page.Actions())
}

func TestClickResilient_ProbeFailureAfterMatchKeepsCause(t *testing.T) {
	f := newFixture(t, Options{})
	cdpErr := errors.New("cdp: target closed")
	f.page.SetState(loginBtn.XPath(), disabled)
	f.page.FailProbesAfter(loginBtn.XPath(), 2, cdpErr)

	_, err := f.helper.ClickResilient(context.Background(), loginBtn, 30*time.Millisecond)

	assert.ErrorIs(t, err, ErrTargetNotInteractable)
	assert.ErrorIs(t, err, cdpErr)
}

func TestClickResilient_NotInteractable(t *testing.T) {
	for name, state := range map[string]dom.ElementState{"disabled": disabled, "hidden": hidden} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, Options{})
			f.page.SetState(loginBtn.XPath(), state)

			report, err := f.helper.ClickResilient(context.Background(), loginBtn, 30*time.Millisecond)

			assert.ErrorIs(t, err, ErrTargetNotInteractable)
			assert.Equal(t, StateFailed, report.State)
			assert.Equal(t, state, report.Last)
			assert.Empty(t, f.page.Actions())
		})
	}
}

func TestClickResilient_ObstructedAtDeadlineEscalates(t *testing.T) {
	f := newFixture(t, Options{})
	f.page.SetState(loginBtn.XPath(), covered)
	f.page.NativeClickErr[loginBtn.XPath()] = dom.ErrClickIntercepted

	report, err := f.helper.ClickResilient(context.Background(), loginBtn, 30*time.Millisecond)

	require.NoError(t, err)
	assert.True(t, report.Escalated)
	assert.Equal(t, StateInterceptedFallbackOK, report.State)
	assert.Equal(t, "div.modal-backdrop", report.Last.Obstructor)
}

func TestClickResilient_VanishesBeforeClick(t *testing.T) {
	f := newFixture(t, Options{})
	f.page.SetState(loginBtn.XPath(), shown, absent)

	report, err := f.helper.ClickResilient(context.Background(), loginBtn, time.Second)

	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.ErrorIs(t, err, dom.ErrNoSuchElement)
	assert.Equal(t, StateFailed, report.State)
	assert.Equal(t, DirectClick, report.Strategy)
}

func TestClickResilient_CancelledContext(t *testing.T) {
	f := newFixture(t, Options{})
	f.page.SetState(loginBtn.XPath(), shown)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.helper.ClickResilient(ctx, loginBtn, time.Second)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.page.Actions())
}

func TestResolveAfterTransition(t *testing.T) {
	f := newFixture(t, Options{})
	reset := locator.ByID("reset-password-form")
	f.page.SetURL("https://app.test/#/login", "https://app.test/#/login", "https://app.test/#/forgot-password")

	ok := f.helper.ResolveAfterTransition(context.Background(),
		wait.For(time.Second, wait.URLHas("forgot"), wait.Present(reset)))
	assert.True(t, ok)

	ok = f.helper.ResolveAfterTransition(context.Background(),
		wait.For(30*time.Millisecond, wait.URLHas("signup")))
	assert.False(t, ok)
}

func TestTypeResilient(t *testing.T) {
	email := locator.ByID("EMail1")

	t.Run("types once ready", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.page.SetState(email.XPath(), hidden, shown)

		require.NoError(t, f.helper.TypeResilient(context.Background(), email, "test@gmail.com", time.Second))
		actions := f.page.Actions()
		require.Len(t, actions, 1)
		assert.Equal(t, mocks.Action{Op: "type", XPath: email.XPath(), Text: "test@gmail.com"}, actions[0])
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t, Options{})
		err := f.helper.TypeResilient(context.Background(), email, "x", 20*time.Millisecond)
		assert.ErrorIs(t, err, ErrElementNotFound)
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.page.SetState(email.XPath(), disabled)
		err := f.helper.TypeResilient(context.Background(), email, "x", 20*time.Millisecond)
		assert.ErrorIs(t, err, ErrTargetNotInteractable)
	})

	t.Run("probe failure", func(t *testing.T) {
		f := newFixture(t, Options{})
		cdpErr := errors.New("cdp: websocket closed")
		f.page.SetProbeErr(email.XPath(), cdpErr)
		err := f.helper.TypeResilient(context.Background(), email, "x", 20*time.Millisecond)
		assert.ErrorIs(t, err, cdpErr)
		assert.NotErrorIs(t, err, ErrElementNotFound)
		assert.Empty(t, f.page.Actions())
	})
}
