package commands

import (
	"github.com/spf13/cobra"

	"github.com/vppchain/chainctl/cmd/chainctl/handlers"
)

// Status returns the status command.
func Status(flags *GlobalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the deployment's observed state against the topology",
		Long: `Status compares the declared topology with what the container runtime
actually holds: which networks exist, which node containers run, and
whether each node's control-plane answers. It also reports drift when the
topology file changed since the last setup. Status never mutates anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), flags.TopologyPath, flags.StatePath, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON")

	return cmd
}
