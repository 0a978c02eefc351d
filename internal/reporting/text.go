// internal/reporting/text.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/suite"
)

var statusLabels = map[suite.Status]struct {
	text  string
	color *color.Color
}{
	suite.StatusPassed:  {"PASS", color.New(color.FgGreen, color.Bold)},
	suite.StatusFailed:  {"FAIL", color.New(color.FgRed, color.Bold)},
	suite.StatusError:   {"ERR ", color.New(color.FgMagenta, color.Bold)},
	suite.StatusSkipped: {"SKIP", color.New(color.FgYellow)},
}

// TextReporter prints a human readable line per case as soon as a summary
// is written.
type TextReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	mu     sync.Mutex
	err    error
}

func NewTextReporter(w io.WriteCloser, logger *zap.Logger) *TextReporter {
	return &TextReporter{writer: w, logger: logger}
}

func label(s suite.Status) string {
	l, ok := statusLabels[s]
	if !ok {
		return strings.ToUpper(string(s))
	}
	return l.color.Sprint(l.text)
}

func (r *TextReporter) Write(sum suite.Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s run %s against %s\n", ToolName, sum.RunID, sum.Target)
	for _, res := range sum.Results {
		fmt.Fprintf(&b, "  %s  %-28s %8s\n", label(res.Status), res.Name, res.Duration.Round(time.Millisecond))
		if res.Message != "" && res.Status != suite.StatusPassed {
			fmt.Fprintf(&b, "        %s\n", res.Message)
		}
		if res.Screenshot != "" {
			fmt.Fprintf(&b, "        screenshot: %s\n", res.Screenshot)
		}
	}
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d errors, %d skipped in %s\n",
		sum.Count(suite.StatusPassed),
		sum.Count(suite.StatusFailed),
		sum.Count(suite.StatusError),
		sum.Count(suite.StatusSkipped),
		sum.Duration.Round(time.Millisecond),
	)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.writer, b.String()); err != nil {
		r.err = err
		return fmt.Errorf("writing text report: %w", err)
	}
	return nil
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return closeAfter(r.writer, r.err, r.logger)
}
