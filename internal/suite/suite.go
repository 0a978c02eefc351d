// internal/suite/suite.go
// Package suite holds the login-page scenarios and the runner that executes
// them, one browser session per case.
package suite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/browser/interact"
	"github.com/xkilldash9x/loginprobe/internal/config"
)

// Browser is everything a case needs from its session: the element-level
// page the interaction helper drives plus navigation and capture.
type Browser interface {
	interact.Page
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// Status is the outcome of one case.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// AssertionError is a case whose expectation about the page did not hold.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string { return e.Message }

// Failf builds an AssertionError.
func Failf(format string, args ...interface{}) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// classify maps a case error onto a status. Broken expectations and the
// helper's surfaced errors fail the case; anything else (a browser that
// would not start, a cancelled run) is an error.
func classify(err error) Status {
	var assertion *AssertionError
	switch {
	case err == nil:
		return StatusPassed
	case errors.As(err, &assertion),
		errors.Is(err, interact.ErrTargetNotInteractable),
		errors.Is(err, interact.ErrElementNotFound):
		return StatusFailed
	default:
		return StatusError
	}
}

// Env is handed to every case. It is built fresh per case and bound to
// that case's session.
type Env struct {
	Browser      Browser
	Helper       *interact.Helper
	Locators     Locators
	Timeouts     config.TimeoutsConfig
	Credentials  config.CredentialsConfig
	Expectations config.ExpectationsConfig
	Logger       *zap.Logger
}

// Case is one scenario.
type Case struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *Env) error
}

// Result is what a case produced.
type Result struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      Status        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Message     string        `json:"message,omitempty"`
	Screenshot  string        `json:"screenshot,omitempty"`
}

// Summary is the outcome of a run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Target    string        `json:"target"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Results   []Result      `json:"results"`
}

// Count returns how many results have status s.
func (s Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// OK reports whether no case failed or errored.
func (s Summary) OK() bool {
	return s.Count(StatusFailed) == 0 && s.Count(StatusError) == 0
}
