// internal/browser/session/allocator.go
package session

import (
	"strconv"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/loginprobe/internal/config"
)

// LaunchFlag is one Chromium command line switch. A false Value removes the
// switch, a true Value emits it bare and anything else emits --name=value.
type LaunchFlag struct {
	Name  string
	Value interface{}
}

// LaunchFlags lists the switches applied on top of chromedp's defaults, in
// order. Later entries win.
func LaunchFlags(cfg config.BrowserConfig, headless bool) []LaunchFlag {
	var flags []LaunchFlag
	if headless {
		w, h := cfg.Window.Width, cfg.Window.Height
		if w <= 0 || h <= 0 {
			w, h = 1920, 1080
		}
		flags = append(flags,
			LaunchFlag{"headless", "new"},
			LaunchFlag{"no-sandbox", true},
			LaunchFlag{"disable-dev-shm-usage", true},
			LaunchFlag{"disable-gpu", true},
			LaunchFlag{"window-size", strconv.Itoa(w) + "," + strconv.Itoa(h)},
		)
	} else {
		// chromedp's defaults are headless; undo the three switches that
		// chromedp.Headless adds.
		flags = append(flags,
			LaunchFlag{"headless", false},
			LaunchFlag{"hide-scrollbars", false},
			LaunchFlag{"mute-audio", false},
		)
	}

	for _, arg := range cfg.Args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if hasValue {
			flags = append(flags, LaunchFlag{name, value})
		} else {
			flags = append(flags, LaunchFlag{name, true})
		}
	}
	return flags
}

// AllocatorOptions builds the exec allocator options for one session.
func AllocatorOptions(cfg config.BrowserConfig, headless bool) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	for _, f := range LaunchFlags(cfg, headless) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	return opts
}
