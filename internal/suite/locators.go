// internal/suite/locators.go
package suite

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/loginprobe/internal/browser/locator"
	"github.com/xkilldash9x/loginprobe/internal/config"
)

// Locators is the parsed form of config.LocatorsConfig.
type Locators struct {
	Heading         locator.Locator
	Email           locator.Locator
	Password        locator.Locator
	LoginButton     locator.Locator
	RememberMe      locator.Locator
	ForgotPassword  locator.Locator
	SignUp          locator.Locator
	ResetForm       locator.Locator
	ErrorIndicators []locator.Locator
}

// ParseLocators parses every configured locator, reporting all bad entries
// at once.
func ParseLocators(cfg config.LocatorsConfig) (Locators, error) {
	var (
		l    Locators
		errs []error
	)
	parse := func(name, raw string, dst *locator.Locator) {
		parsed, err := locator.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("locators.%s: %w", name, err))
			return
		}
		*dst = parsed
	}
	parse("heading", cfg.Heading, &l.Heading)
	parse("email", cfg.Email, &l.Email)
	parse("password", cfg.Password, &l.Password)
	parse("login_button", cfg.LoginButton, &l.LoginButton)
	parse("remember_me", cfg.RememberMe, &l.RememberMe)
	parse("forgot_password", cfg.ForgotPassword, &l.ForgotPassword)
	parse("sign_up", cfg.SignUp, &l.SignUp)
	parse("reset_form", cfg.ResetForm, &l.ResetForm)

	indicators, err := ParseAll("locators.error_indicators", cfg.ErrorIndicators)
	if err != nil {
		errs = append(errs, err)
	}
	l.ErrorIndicators = indicators
	return l, errors.Join(errs...)
}

// ParseAll parses a list of locator strings. field names the config key in
// error messages.
func ParseAll(field string, raw []string) ([]locator.Locator, error) {
	out := make([]locator.Locator, 0, len(raw))
	var errs []error
	for i, s := range raw {
		l, err := locator.Parse(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s[%d]: %w", field, i, err))
			continue
		}
		out = append(out, l)
	}
	return out, errors.Join(errs...)
}
