// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/loginprobe/cmd"
)

// main is the entry point for the loginprobe CLI.
func main() {
	// Cancel the run on SIGINT/SIGTERM; open browser sessions are still
	// closed on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cmd.Execute(ctx)
	stop()
	os.Exit(code)
}
