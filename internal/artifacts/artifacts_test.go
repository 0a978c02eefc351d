// internal/artifacts/artifacts_test.go
package artifacts

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_SaveScreenshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := New(fs, "artifacts", "run-1")

	path, err := w.SaveScreenshot("invalid_login_shows_error", []byte("\x89PNG"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("artifacts", "run-1", "invalid_login_shows_error.png"), path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data)
}

func TestWriter_RepeatedNamesGetSuffix(t *testing.T) {
	w := New(afero.NewMemMapFs(), "out", "r")

	first, err := w.SaveScreenshot("case", []byte("a"))
	require.NoError(t, err)
	second, err := w.SaveScreenshot("case", []byte("b"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("out", "r", "case.png"), first)
	assert.Equal(t, filepath.Join("out", "r", "case-2.png"), second)
}

func TestWriter_ReadOnlyFs(t *testing.T) {
	w := New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "out", "r")
	_, err := w.SaveScreenshot("case", []byte("a"))
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"sign_up_link":     "sign_up_link",
		"../../etc/passwd": "etc_passwd",
		"a b/c":            "a_b_c",
		"":                 "unnamed",
		"...":              "unnamed",
		"run-2024.10.17":   "run-2024.10.17",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitize(in), in)
	}
}
