// internal/suite/cases.go
package suite

import (
	"context"
	"strings"

	"github.com/xkilldash9x/loginprobe/internal/browser/locator"
	"github.com/xkilldash9x/loginprobe/internal/browser/wait"
)

// Cases returns the login-page scenarios in run order.
func Cases() []Case {
	return []Case{
		{
			Name:        "login_elements_present",
			Description: "The login heading and every form control are displayed.",
			Run:         loginElementsPresent,
		},
		{
			Name:        "invalid_login_shows_error",
			Description: "Submitting wrong credentials surfaces a visible error.",
			Run:         invalidLoginShowsError,
		},
		{
			Name:        "forgot_password_link",
			Description: "The Forgot Password link opens the reset flow and back returns to login.",
			Run:         forgotPasswordLink,
		},
		{
			Name:        "sign_up_link",
			Description: "The Sign Up link opens registration and back returns to login.",
			Run:         signUpLink,
		},
		{
			Name:        "remember_me_checkbox",
			Description: "Clicking Remember me checks the box.",
			Run:         rememberMeCheckbox,
		},
	}
}

// awaitLoginPage blocks until the login heading is visible.
func awaitLoginPage(ctx context.Context, env *Env) error {
	p := wait.For(env.Timeouts.Page, wait.Visible(env.Locators.Heading)).Every(env.Timeouts.PollInterval)
	return expect(ctx, env, p, "login page did not render: %s", p)
}

// expect waits for p and turns a miss into an assertion failure. A cancelled
// run is reported as the context error, never as a failed assertion.
func expect(ctx context.Context, env *Env, p wait.Policy, format string, args ...interface{}) error {
	if env.Helper.ResolveAfterTransition(ctx, p) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return Failf(format, args...)
}

func loginElementsPresent(ctx context.Context, env *Env) error {
	if err := awaitLoginPage(ctx, env); err != nil {
		return err
	}
	elements := []struct {
		name string
		loc  locator.Locator
	}{
		{"email field", env.Locators.Email},
		{"password field", env.Locators.Password},
		{"login button", env.Locators.LoginButton},
		{"remember me checkbox", env.Locators.RememberMe},
		{"forgot password link", env.Locators.ForgotPassword},
		{"sign up link", env.Locators.SignUp},
	}
	var missing []string
	for _, el := range elements {
		state, err := env.Helper.ReadState(ctx, el.loc)
		if err != nil || !state.Displayed() {
			missing = append(missing, el.name+" ("+el.loc.String()+")")
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(missing) > 0 {
		return Failf("not displayed: %s", strings.Join(missing, ", "))
	}
	return nil
}

func invalidLoginShowsError(ctx context.Context, env *Env) error {
	if err := awaitLoginPage(ctx, env); err != nil {
		return err
	}
	if err := env.Helper.TypeResilient(ctx, env.Locators.Email, env.Credentials.Email, env.Timeouts.Click); err != nil {
		return err
	}
	if err := env.Helper.TypeResilient(ctx, env.Locators.Password, env.Credentials.Password, env.Timeouts.Click); err != nil {
		return err
	}
	if _, err := env.Helper.ClickResilient(ctx, env.Locators.LoginButton, env.Timeouts.Click); err != nil {
		return err
	}

	conds := make([]wait.Condition, 0, len(env.Locators.ErrorIndicators))
	for _, l := range env.Locators.ErrorIndicators {
		conds = append(conds, wait.Visible(l))
	}
	p := wait.For(env.Timeouts.Transition, conds...).Every(env.Timeouts.PollInterval)
	return expect(ctx, env, p, "expected an error message after invalid login: %s did not hold", p)
}

func forgotPasswordLink(ctx context.Context, env *Env) error {
	if err := awaitLoginPage(ctx, env); err != nil {
		return err
	}
	if _, err := env.Helper.ClickResilient(ctx, env.Locators.ForgotPassword, env.Timeouts.Click); err != nil {
		return err
	}
	p := wait.For(env.Timeouts.Transition,
		wait.URLHas(env.Expectations.ForgotURL),
		wait.Present(env.Locators.ResetForm),
	).Every(env.Timeouts.PollInterval)
	if err := expect(ctx, env, p, "forgot password flow did not open: %s did not hold", p); err != nil {
		return err
	}
	return backToLogin(ctx, env)
}

func signUpLink(ctx context.Context, env *Env) error {
	if err := awaitLoginPage(ctx, env); err != nil {
		return err
	}
	if _, err := env.Helper.ClickResilient(ctx, env.Locators.SignUp, env.Timeouts.Click); err != nil {
		return err
	}
	p := wait.For(env.Timeouts.Transition, wait.URLHas(env.Expectations.SignUpURL)).Every(env.Timeouts.PollInterval)
	if err := expect(ctx, env, p, "sign up page did not open: %s did not hold", p); err != nil {
		return err
	}
	return backToLogin(ctx, env)
}

// backToLogin steps back in history and expects the login page again.
func backToLogin(ctx context.Context, env *Env) error {
	if err := env.Browser.Back(ctx); err != nil {
		return err
	}
	return awaitLoginPage(ctx, env)
}

func rememberMeCheckbox(ctx context.Context, env *Env) error {
	if err := awaitLoginPage(ctx, env); err != nil {
		return err
	}
	if _, err := env.Helper.ClickResilient(ctx, env.Locators.RememberMe, env.Timeouts.Click); err != nil {
		return err
	}
	p := wait.For(env.Timeouts.Page, wait.Checked(env.Locators.RememberMe)).Every(env.Timeouts.PollInterval)
	if !env.Helper.ResolveAfterTransition(ctx, p) {
		if err := ctx.Err(); err != nil {
			return err
		}
		state, _ := env.Helper.ReadState(ctx, env.Locators.RememberMe)
		return Failf("remember me is not checked (selected=%t aria-checked=%q checked=%t)",
			state.Selected, state.AriaChecked, state.Checked)
	}
	return nil
}
