package commands

import (
	"github.com/spf13/cobra"

	"github.com/vppchain/chainctl/cmd/chainctl/handlers"
)

// Test returns the test command.
//
// The connectivity suite pings every directed node pair sharing a network.
// The traffic suite injects marker packets at the ingress node and verifies
// delivery at the egress node, localizing losses per chain stage.
func Test(flags *GlobalFlags) *cobra.Command {
	var suite string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run validation tests against the deployed chain",
		Long: `Test exercises the deployed chain without modifying it.

Suites:
  connectivity  engine-level ping between every node pair sharing a network
  traffic       end-to-end marker packet delivery with per-stage accounting
  full          both, connectivity first

A failed test leaves the deployment untouched and exits non-zero with a
diagnostic naming the failing pair or stage.

Example:
  chainctl test --type traffic`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Test(cmd.Context(), flags.TopologyPath, flags.StatePath, suite)
		},
	}

	cmd.Flags().StringVar(&suite, "type", "full", "Test suite: connectivity, traffic, or full")

	return cmd
}
