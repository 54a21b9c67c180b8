package handlers

import (
	"context"
	"fmt"

	"github.com/vppchain/chainctl/internal/validation"
)

// Test handles the test command. The report is printed even when the suite
// fails; the error then drives the process exit code.
func Test(ctx context.Context, topologyPath, statePath, suite string) error {
	s, err := newSession(topologyPath, statePath)
	if err != nil {
		return err
	}
	defer s.Close()

	reports, runErr := s.orch.Validate(ctx, s.topo, suite)
	for _, report := range reports {
		printReport(report)
	}
	return runErr
}

// printReport renders one suite's outcome.
func printReport(report *validation.Report) {
	fmt.Printf("%s:\n", report.Test)
	for _, check := range report.Checks {
		printStatusLine(check.Name, check.Passed, check.Diagnostic)
	}
	if len(report.Stages) > 0 {
		fmt.Println("  per-stage counters:")
		for _, stage := range report.Stages {
			fmt.Printf("    %-16s rx %d pkts / %d B   tx %d pkts / %d B   drops %d\n",
				stage.Node, stage.RxPackets, stage.RxBytes, stage.TxPackets, stage.TxBytes, stage.Drops)
		}
	}
	fmt.Println()
}
