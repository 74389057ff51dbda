// Package main is the entry point for the fanout CLI.
//
// fanout runs the independent items of a YAML batch file concurrently,
// waits for all of them, and reports each item's result. Items can sleep,
// run local commands, probe HTTP endpoints, wait for Kubernetes pods, or
// run commands over SSH.
//
// Commands: run, validate, init.
//
// For detailed usage information, run:
//
//	fanout --help
package main

import (
	"errors"
	"fmt"
	"os"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/imamik/fanout/cmd/fanout/commands"
	"github.com/imamik/fanout/cmd/fanout/handlers"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// The first signal cancels the batch; a second one exits immediately.
	ctx := ctrl.SetupSignalHandler()
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 1 for a batch that ran with failures and 2 for anything that
// stopped it from running.
func exitCode(err error) int {
	if errors.Is(err, handlers.ErrBatchFailed) {
		return 1
	}
	return 2
}
