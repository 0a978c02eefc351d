// internal/artifacts/artifacts.go
// Package artifacts stores failure evidence (screenshots for now) under a
// per-run directory.
package artifacts

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Writer saves artifacts to dir/runID on fs.
type Writer struct {
	fs    afero.Fs
	dir   string
	mu    sync.Mutex
	names map[string]int
}

// New returns a Writer rooted at dir/runID. Nothing is created until the
// first artifact is saved.
func New(fs afero.Fs, dir, runID string) *Writer {
	return &Writer{
		fs:    fs,
		dir:   filepath.Join(dir, sanitize(runID)),
		names: make(map[string]int),
	}
}

// Dir is the directory artifacts land in.
func (w *Writer) Dir() string { return w.dir }

// SaveScreenshot writes png as <case>.png, adding a numeric suffix when the
// same case saves more than once.
func (w *Writer) SaveScreenshot(caseName string, png []byte) (string, error) {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact dir %s: %w", w.dir, err)
	}
	path := filepath.Join(w.dir, w.uniqueName(sanitize(caseName), ".png"))
	if err := afero.WriteFile(w.fs, path, png, 0o644); err != nil {
		return "", fmt.Errorf("writing screenshot %s: %w", path, err)
	}
	return path, nil
}

func (w *Writer) uniqueName(base, ext string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.names[base]
	w.names[base] = n + 1
	if n == 0 {
		return base + ext
	}
	return fmt.Sprintf("%s-%d%s", base, n+1, ext)
}

func sanitize(s string) string {
	s = strings.Trim(unsafeChars.ReplaceAllString(s, "_"), "._")
	if s == "" {
		return "unnamed"
	}
	return s
}
