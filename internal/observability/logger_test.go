// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/loginprobe/internal/config"
)

// syncBuffer is a goroutine-safe buffer usable as a zap sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInitialize(t *testing.T) {
	t.Run("console logger with colours", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		prev := color.NoColor
		color.NoColor = false
		t.Cleanup(func() { color.NoColor = prev })

		out := &syncBuffer{}
		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "loginprobe",
			Colors:      config.ColorConfig{Info: "green"},
		}, out)
		GetLogger().Named("suite").Info("Case passed.")
		Sync()

		line := out.String()
		assert.Contains(t, line, "Case passed.")
		assert.Contains(t, line, "loginprobe.suite.")
		assert.Contains(t, line, color.New(color.FgGreen).Sprint("INFO"))
	})

	t.Run("json logger", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		out := &syncBuffer{}
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}, out)
		GetLogger().Warn("Overlay did not clear.", zap.String("overlay", "class=spinner"))
		GetLogger().Debug("filtered by level")
		Sync()

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "Overlay did not clear.", entry["msg"])
		assert.Equal(t, "class=spinner", entry["overlay"])
	})

	t.Run("log file via rotation", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		path := filepath.Join(t.TempDir(), "loginprobe.log")
		Initialize(config.LoggerConfig{Level: "debug", Format: "console", LogFile: path, MaxSize: 1}, zapcore.AddSync(&syncBuffer{}))
		GetLogger().Error("This should go to the file.")
		Sync()

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"msg":"This should go to the file."`)
	})

	t.Run("only initializes once", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		out := &syncBuffer{}
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "First"}, out)
		first := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "Second"}, out)

		assert.Same(t, first, GetLogger())
		GetLogger().Info("test")
		assert.Contains(t, out.String(), "First")
		assert.NotContains(t, out.String(), "Second")
	})
}

func TestGetLogger_Fallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	assert.NotNil(t, GetLogger())
}

func TestPick_UnknownFallsBack(t *testing.T) {
	assert.Equal(t, color.New(color.FgCyan), pick("chartreuse", "cyan"))
	assert.Equal(t, color.New(color.FgRed), pick("RED", "cyan"))
}
