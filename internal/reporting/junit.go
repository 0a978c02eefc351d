// internal/reporting/junit.go
package reporting

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loginprobe/internal/suite"
)

// JUnitReporter buffers summaries and writes them as a <testsuites>
// document on Close, one <testsuite> per run.
type JUnitReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	mu     sync.Mutex
	doc    *etree.Document
	root   *etree.Element
}

func NewJUnitReporter(w io.WriteCloser, logger *zap.Logger) *JUnitReporter {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", ToolName)
	return &JUnitReporter{writer: w, logger: logger, doc: doc, root: root}
}

func (r *JUnitReporter) Write(sum suite.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.root.CreateElement("testsuite")
	ts.CreateAttr("name", ToolName)
	ts.CreateAttr("id", sum.RunID)
	ts.CreateAttr("hostname", sum.Target)
	ts.CreateAttr("timestamp", sum.StartedAt.UTC().Format(time.RFC3339))
	ts.CreateAttr("tests", fmt.Sprint(len(sum.Results)))
	ts.CreateAttr("failures", fmt.Sprint(sum.Count(suite.StatusFailed)))
	ts.CreateAttr("errors", fmt.Sprint(sum.Count(suite.StatusError)))
	ts.CreateAttr("skipped", fmt.Sprint(sum.Count(suite.StatusSkipped)))
	ts.CreateAttr("time", seconds(sum.Duration))

	for _, res := range sum.Results {
		tc := ts.CreateElement("testcase")
		tc.CreateAttr("name", res.Name)
		tc.CreateAttr("classname", ToolName+".login")
		tc.CreateAttr("time", seconds(res.Duration))

		switch res.Status {
		case suite.StatusFailed:
			f := tc.CreateElement("failure")
			f.CreateAttr("message", res.Message)
			f.CreateAttr("type", "AssertionError")
			f.SetText(res.Message)
		case suite.StatusError:
			e := tc.CreateElement("error")
			e.CreateAttr("message", res.Message)
			e.CreateAttr("type", "Error")
			e.SetText(res.Message)
		case suite.StatusSkipped:
			tc.CreateElement("skipped").CreateAttr("message", res.Message)
		}
		// Jenkins and GitLab pick attachments up from this marker.
		if res.Screenshot != "" {
			tc.CreateElement("system-out").SetText("[[ATTACHMENT|" + res.Screenshot + "]]")
		}
	}
	r.logger.Debug("Buffered run for JUnit report.", zap.String("run_id", sum.RunID), zap.Int("cases", len(sum.Results)))
	return nil
}

func (r *JUnitReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.Indent(2)
	_, err := r.doc.WriteTo(r.writer)
	return closeAfter(r.writer, err, r.logger)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
