// internal/reporting/json.go
package reporting

import (
	"io"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/suite"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonCase is the wire form of a suite.Result; durations are seconds.
type jsonCase struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Status      suite.Status `json:"status"`
	StartedAt   time.Time    `json:"started_at"`
	Seconds     float64      `json:"duration_seconds"`
	Message     string       `json:"message,omitempty"`
	Screenshot  string       `json:"screenshot,omitempty"`
}

type jsonRun struct {
	RunID     string         `json:"run_id"`
	Target    string         `json:"target"`
	StartedAt time.Time      `json:"started_at"`
	Seconds   float64        `json:"duration_seconds"`
	Totals    map[string]int `json:"totals"`
	Cases     []jsonCase     `json:"cases"`
}

type jsonReport struct {
	Tool string    `json:"tool"`
	Runs []jsonRun `json:"runs"`
}

// JSONReporter buffers summaries and encodes them as one document on Close.
type JSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	mu     sync.Mutex
	report jsonReport
}

func NewJSONReporter(w io.WriteCloser, logger *zap.Logger) *JSONReporter {
	return &JSONReporter{
		writer: w,
		logger: logger,
		report: jsonReport{Tool: ToolName, Runs: []jsonRun{}},
	}
}

func (r *JSONReporter) Write(sum suite.Summary) error {
	run := jsonRun{
		RunID:     sum.RunID,
		Target:    sum.Target,
		StartedAt: sum.StartedAt.UTC(),
		Seconds:   sum.Duration.Seconds(),
		Totals: map[string]int{
			string(suite.StatusPassed):  sum.Count(suite.StatusPassed),
			string(suite.StatusFailed):  sum.Count(suite.StatusFailed),
			string(suite.StatusError):   sum.Count(suite.StatusError),
			string(suite.StatusSkipped): sum.Count(suite.StatusSkipped),
		},
		Cases: make([]jsonCase, 0, len(sum.Results)),
	}
	for _, res := range sum.Results {
		run.Cases = append(run.Cases, jsonCase{
			Name:        res.Name,
			Description: res.Description,
			Status:      res.Status,
			StartedAt:   res.StartedAt.UTC(),
			Seconds:     res.Duration.Seconds(),
			Message:     res.Message,
			Screenshot:  res.Screenshot,
		})
	}

	r.mu.Lock()
	r.report.Runs = append(r.report.Runs, run)
	r.mu.Unlock()
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return closeAfter(r.writer, enc.Encode(r.report), r.logger)
}
