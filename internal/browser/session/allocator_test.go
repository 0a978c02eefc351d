// internal/browser/session/allocator_test.go
package session

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/loginprobe/internal/config"
)

func TestLaunchFlags_Headless(t *testing.T) {
	cfg := config.BrowserConfig{Window: config.WindowConfig{Width: 1920, Height: 1080}}

	want := []LaunchFlag{
		{"headless", "new"},
		{"no-sandbox", true},
		{"disable-dev-shm-usage", true},
		{"disable-gpu", true},
		{"window-size", "1920,1080"},
	}
	if diff := cmp.Diff(want, LaunchFlags(cfg, true)); diff != "" {
		t.Errorf("LaunchFlags() mismatch (-want +got):\n%s", diff)
	}
}

func TestLaunchFlags_HeadedRestoresVisibleBrowser(t *testing.T) {
	flags := LaunchFlags(config.BrowserConfig{}, false)

	want := []LaunchFlag{
		{"headless", false},
		{"hide-scrollbars", false},
		{"mute-audio", false},
	}
	if diff := cmp.Diff(want, flags); diff != "" {
		t.Errorf("LaunchFlags() mismatch (-want +got):\n%s", diff)
	}
}

func TestLaunchFlags_WindowFallback(t *testing.T) {
	flags := LaunchFlags(config.BrowserConfig{}, true)
	assert.Contains(t, flags, LaunchFlag{"window-size", "1920,1080"})
}

func TestLaunchFlags_ExtraArgs(t *testing.T) {
	cfg := config.BrowserConfig{
		Window: config.WindowConfig{Width: 800, Height: 600},
		Args:   []string{"--lang=en-US", "  ", "-incognito", "--proxy-server=http://127.0.0.1:8080"},
	}
	flags := LaunchFlags(cfg, true)

	// User args come last so they override the fixed set.
	tail := flags[len(flags)-3:]
	want := []LaunchFlag{
		{"lang", "en-US"},
		{"incognito", true},
		{"proxy-server", "http://127.0.0.1:8080"},
	}
	if diff := cmp.Diff(want, tail); diff != "" {
		t.Errorf("extra args mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, flags, LaunchFlag{"window-size", "800,600"})
}

func TestAllocatorOptions(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)
	cfg := config.BrowserConfig{Window: config.WindowConfig{Width: 1, Height: 1}}

	assert.Len(t, AllocatorOptions(cfg, true), base+5)
	assert.Len(t, AllocatorOptions(cfg, false), base+3)

	cfg.ExecPath = "/usr/bin/chromium"
	assert.Len(t, AllocatorOptions(cfg, false), base+4)
}

func TestAllocatorOptions_DoesNotMutateDefaults(t *testing.T) {
	before := len(chromedp.DefaultExecAllocatorOptions)
	_ = AllocatorOptions(config.BrowserConfig{Args: []string{"--a", "--b"}}, true)
	assert.Equal(t, before, len(chromedp.DefaultExecAllocatorOptions))
}
