// Package main is the entry point for the chainctl CLI.
//
// chainctl provisions, validates, and tears down chains of containerized
// packet-processing nodes from a declarative YAML topology. Each node runs
// a userspace dataplane engine; chainctl wires the containers together over
// static-addressed virtual networks, pushes per-node engine configuration,
// and verifies end-to-end packet delivery with marker traffic.
//
// Commands: setup, status, test, debug, cleanup, version.
//
// For detailed usage information, run:
//
//	chainctl --help
package main

import (
	"fmt"
	"os"

	"github.com/vppchain/chainctl/cmd/chainctl/commands"
	"github.com/vppchain/chainctl/internal/errdefs"
)

// Exit codes, stable for scripting.
const (
	exitFailure      = 1
	exitConfig       = 2
	exitProvisioning = 3
	exitValidation   = 4
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy onto the documented exit codes.
func exitCode(err error) int {
	switch {
	case errdefs.IsConfig(err):
		return exitConfig
	case errdefs.IsRuntimeUnavailable(err),
		errdefs.IsConflict(err),
		errdefs.IsNodeStartup(err),
		errdefs.IsNetwork(err):
		return exitProvisioning
	case errdefs.IsValidation(err):
		return exitValidation
	default:
		return exitFailure
	}
}
