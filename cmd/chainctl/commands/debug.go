package commands

import (
	"github.com/spf13/cobra"

	"github.com/vppchain/chainctl/cmd/chainctl/handlers"
)

// Debug returns the debug command.
func Debug(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug <node> <command>",
		Short: "Run a raw engine command on one node",
		Long: `Debug forwards a command to the named node's engine CLI and prints the
output verbatim. No interpretation or validation happens on the way
through; this is the operator escape hatch for inspecting engine state.

Example:
  chainctl debug decap "show vxlan tunnel"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Debug(cmd.Context(), flags.TopologyPath, flags.StatePath, args[0], args[1])
		},
	}

	return cmd
}
