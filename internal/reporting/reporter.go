// internal/reporting/reporter.go
// Package reporting renders a suite.Summary as JUnit XML, JSON or coloured
// text.
package reporting

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/observability"
	"github.com/xkilldash9x/loginprobe/internal/suite"
)

// ToolName identifies the producer in machine-readable reports.
const ToolName = "loginprobe"

// Reporter defines the interface for writing run results to an output.
type Reporter interface {
	// Write records one run summary.
	Write(sum suite.Summary) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// Formats lists the accepted report formats.
var Formats = []string{"junit", "json", "text"}

// New creates a new reporter based on the specified format and output path.
// An empty path or "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	r, err := NewWithWriter(format, writer)
	if err != nil && !isStdOut {
		writer.Close()
	}
	return r, err
}

// NewWithWriter creates a reporter over w. The reporter takes ownership of w
// and closes it in Close.
func NewWithWriter(format string, w io.WriteCloser) (Reporter, error) {
	logger := observability.GetLogger().Named("reporting")
	switch format {
	case "junit":
		return NewJUnitReporter(w, logger), nil
	case "json":
		return NewJSONReporter(w, logger), nil
	case "text":
		return NewTextReporter(w, logger), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// closeAfter closes w and reports the first of writeErr and the close error.
func closeAfter(w io.Closer, writeErr error, logger *zap.Logger) error {
	closeErr := w.Close()
	if writeErr != nil {
		logger.Error("Failed to write report.", zap.Error(writeErr))
		return fmt.Errorf("failed to write report: %w", writeErr)
	}
	if closeErr != nil {
		logger.Error("Failed to close output writer.", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
