// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/loginprobe/internal/browser/locator"
)

// EnvPrefix is prepended to every environment override, e.g.
// LOGINPROBE_TIMEOUTS_PAGE=20s.
const EnvPrefix = "LOGINPROBE"

// Config holds the entire application configuration.
type Config struct {
	Logger       LoggerConfig       `mapstructure:"logger" yaml:"logger"`
	Browser      BrowserConfig      `mapstructure:"browser" yaml:"browser"`
	Target       TargetConfig       `mapstructure:"target" yaml:"target"`
	Timeouts     TimeoutsConfig     `mapstructure:"timeouts" yaml:"timeouts"`
	Interaction  InteractionConfig  `mapstructure:"interaction" yaml:"interaction"`
	Locators     LocatorsConfig     `mapstructure:"locators" yaml:"locators"`
	Credentials  CredentialsConfig  `mapstructure:"credentials" yaml:"credentials"`
	Expectations ExpectationsConfig `mapstructure:"expectations" yaml:"expectations"`
	Report       ReportConfig       `mapstructure:"report" yaml:"report"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls how the Chromium process is launched.
type BrowserConfig struct {
	// Headless forces headless mode. It is also switched on when any of the
	// variables in HeadlessEnv is present in the environment.
	Headless    bool         `mapstructure:"headless" yaml:"headless"`
	HeadlessEnv []string     `mapstructure:"headless_env" yaml:"headless_env"`
	ExecPath    string       `mapstructure:"exec_path" yaml:"exec_path"`
	Args        []string     `mapstructure:"args" yaml:"args"`
	Window      WindowConfig `mapstructure:"window" yaml:"window"`
	Debug       bool         `mapstructure:"debug" yaml:"debug"`
}

// WindowConfig is the fixed viewport used in headless mode.
type WindowConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// HeadlessEnabled reports whether the browser should run headless given the
// process environment as seen through lookup.
func (b BrowserConfig) HeadlessEnabled(lookup func(string) (string, bool)) bool {
	if b.Headless {
		return true
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, name := range b.HeadlessEnv {
		if _, ok := lookup(name); ok {
			return true
		}
	}
	return false
}

// TargetConfig is the application under test.
type TargetConfig struct {
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	LoginPath string `mapstructure:"login_path" yaml:"login_path"`
}

// LoginURL joins the base URL and the login path. The path may be a hash
// route, so it is appended verbatim.
func (t TargetConfig) LoginURL() string {
	return strings.TrimRight(t.BaseURL, "/") + "/" + strings.TrimLeft(t.LoginPath, "/")
}

// TimeoutsConfig groups every wait budget.
type TimeoutsConfig struct {
	Page         time.Duration `mapstructure:"page" yaml:"page"`
	Transition   time.Duration `mapstructure:"transition" yaml:"transition"`
	Click        time.Duration `mapstructure:"click" yaml:"click"`
	Overlay      time.Duration `mapstructure:"overlay" yaml:"overlay"`
	Settle       time.Duration `mapstructure:"settle" yaml:"settle"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SessionStart time.Duration `mapstructure:"session_start" yaml:"session_start"`
	Navigation   time.Duration `mapstructure:"navigation" yaml:"navigation"`
	Shutdown     time.Duration `mapstructure:"shutdown" yaml:"shutdown"`
}

// InteractionConfig tunes the resilient interaction helper.
type InteractionConfig struct {
	SettlePolicy string   `mapstructure:"settle_policy" yaml:"settle_policy"`
	Overlays     []string `mapstructure:"overlays" yaml:"overlays"`
}

// LocatorsConfig holds the locator strings for every element the suite
// touches, in the "kind=value" form.
type LocatorsConfig struct {
	Heading         string   `mapstructure:"heading" yaml:"heading"`
	Email           string   `mapstructure:"email" yaml:"email"`
	Password        string   `mapstructure:"password" yaml:"password"`
	LoginButton     string   `mapstructure:"login_button" yaml:"login_button"`
	RememberMe      string   `mapstructure:"remember_me" yaml:"remember_me"`
	ForgotPassword  string   `mapstructure:"forgot_password" yaml:"forgot_password"`
	SignUp          string   `mapstructure:"sign_up" yaml:"sign_up"`
	ResetForm       string   `mapstructure:"reset_form" yaml:"reset_form"`
	ErrorIndicators []string `mapstructure:"error_indicators" yaml:"error_indicators"`
}

// Named returns every single-valued locator keyed by its config name.
func (l LocatorsConfig) Named() map[string]string {
	return map[string]string{
		"heading":         l.Heading,
		"email":           l.Email,
		"password":        l.Password,
		"login_button":    l.LoginButton,
		"remember_me":     l.RememberMe,
		"forgot_password": l.ForgotPassword,
		"sign_up":         l.SignUp,
		"reset_form":      l.ResetForm,
	}
}

// CredentialsConfig is the deliberately invalid login used by the negative
// scenario.
type CredentialsConfig struct {
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"-"`
}

// ExpectationsConfig holds URL fragments expected after navigation.
type ExpectationsConfig struct {
	ForgotURL string `mapstructure:"forgot_url" yaml:"forgot_url"`
	SignUpURL string `mapstructure:"signup_url" yaml:"signup_url"`
}

// ReportConfig selects the result sink.
type ReportConfig struct {
	Format       string `mapstructure:"format" yaml:"format"`
	Output       string `mapstructure:"output" yaml:"output"`
	ArtifactsDir string `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "loginprobe")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.headless_env", []string{"CI", "CODESPACES"})
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.window.width", 1920)
	v.SetDefault("browser.window.height", 1080)
	v.SetDefault("browser.debug", false)

	// -- Target --
	v.SetDefault("target.base_url", "https://dev.fobesoft.com")
	v.SetDefault("target.login_path", "/#/login")

	// -- Timeouts --
	v.SetDefault("timeouts.page", "15s")
	v.SetDefault("timeouts.transition", "30s")
	v.SetDefault("timeouts.click", "10s")
	v.SetDefault("timeouts.overlay", "5s")
	v.SetDefault("timeouts.settle", "400ms")
	v.SetDefault("timeouts.poll_interval", "250ms")
	v.SetDefault("timeouts.session_start", "60s")
	v.SetDefault("timeouts.navigation", "45s")
	v.SetDefault("timeouts.shutdown", "15s")

	// -- Interaction --
	v.SetDefault("interaction.settle_policy", "when_seen")
	v.SetDefault("interaction.overlays", []string{
		"class=modal-backdrop",
		"class=cdk-overlay-backdrop",
		"class=spinner",
	})

	// -- Locators --
	v.SetDefault("locators.heading", "//h2[contains(text(), 'Log In')]")
	v.SetDefault("locators.email", "id=EMail1")
	v.SetDefault("locators.password", "id=Password1")
	v.SetDefault("locators.login_button", "id=login_btn")
	v.SetDefault("locators.remember_me", "id=rememberMe1-input")
	v.SetDefault("locators.forgot_password", "text=Forgot Password?")
	v.SetDefault("locators.sign_up", "//u[contains(text(), 'Sign Up')]")
	v.SetDefault("locators.reset_form", "id=reset-password-form")
	v.SetDefault("locators.error_indicators", []string{
		"contains=invalid",
		"contains=incorrect",
		"class=error",
	})

	// -- Credentials --
	v.SetDefault("credentials.email", "test@gmail.com")
	v.SetDefault("credentials.password", "test@123")

	// -- Expectations --
	v.SetDefault("expectations.forgot_url", "forgot")
	v.SetDefault("expectations.signup_url", "signup")

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "")
	v.SetDefault("report.artifacts_dir", "artifacts")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Explicit bindings so these work even without AutomaticEnv.
	_ = v.BindEnv("browser.headless", EnvPrefix+"_BROWSER_HEADLESS")
	_ = v.BindEnv("credentials.password", EnvPrefix+"_CREDENTIALS_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.ExpandPaths(); err != nil {
		return nil, fmt.Errorf("error expanding paths: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ExpandPaths resolves a leading ~ in every file system path.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.Logger.LogFile, &c.Report.Output, &c.Report.ArtifactsDir, &c.Browser.ExecPath} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("%s: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Target.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("target.base_url %q must be an absolute URL", c.Target.BaseURL))
	}

	for name, d := range map[string]time.Duration{
		"timeouts.page":          c.Timeouts.Page,
		"timeouts.transition":    c.Timeouts.Transition,
		"timeouts.click":         c.Timeouts.Click,
		"timeouts.overlay":       c.Timeouts.Overlay,
		"timeouts.poll_interval": c.Timeouts.PollInterval,
		"timeouts.session_start": c.Timeouts.SessionStart,
		"timeouts.navigation":    c.Timeouts.Navigation,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration", name))
		}
	}
	if c.Timeouts.Settle < 0 {
		errs = append(errs, errors.New("timeouts.settle must not be negative"))
	}

	switch strings.ToLower(c.Interaction.SettlePolicy) {
	case "", "when_seen", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("interaction.settle_policy %q must be when_seen, always or never", c.Interaction.SettlePolicy))
	}
	for i, raw := range c.Interaction.Overlays {
		if _, err := locator.Parse(raw); err != nil {
			errs = append(errs, fmt.Errorf("interaction.overlays[%d]: %w", i, err))
		}
	}

	for name, raw := range c.Locators.Named() {
		if _, err := locator.Parse(raw); err != nil {
			errs = append(errs, fmt.Errorf("locators.%s: %w", name, err))
		}
	}
	if len(c.Locators.ErrorIndicators) == 0 {
		errs = append(errs, errors.New("locators.error_indicators must not be empty"))
	}
	for i, raw := range c.Locators.ErrorIndicators {
		if _, err := locator.Parse(raw); err != nil {
			errs = append(errs, fmt.Errorf("locators.error_indicators[%d]: %w", i, err))
		}
	}

	switch c.Report.Format {
	case "junit", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("report.format %q must be junit, json or text", c.Report.Format))
	}
	if c.Browser.Window.Width <= 0 || c.Browser.Window.Height <= 0 {
		errs = append(errs, errors.New("browser.window dimensions must be positive"))
	}

	return errors.Join(errs...)
}
