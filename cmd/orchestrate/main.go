// Command orchestrate runs routines in dependency order.
//
// Usage:
//
//	orchestrate [-c policy.conf] [--json] <command> [flags]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gyaneshwarpardhi/orchestrate/internal/cli"
)

// version is set with -ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCmd(version).ExecuteContext(ctx)
	if err == nil {
		return
	}
	code := 1
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	stop()
	os.Exit(code)
}
