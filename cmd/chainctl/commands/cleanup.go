package commands

import (
	"github.com/spf13/cobra"

	"github.com/vppchain/chainctl/cmd/chainctl/handlers"
)

// Cleanup returns the cleanup command.
//
// Cleanup removes every declared resource in reverse dependency order:
// node containers first, then networks, then the deployment record.
func Cleanup(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Tear down the deployment and remove its resources",
		Long: `Cleanup stops and removes every declared node container, removes the
declared networks, and drops the persisted deployment record.

Teardown is best-effort: a failure on one resource does not stop the rest,
and re-running cleanup on an already-clean deployment succeeds.

Example:
  chainctl cleanup -t chain.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Cleanup(cmd.Context(), flags.TopologyPath, flags.StatePath)
		},
	}

	return cmd
}
