package commands

import (
	"github.com/spf13/cobra"

	"github.com/vppchain/chainctl/cmd/chainctl/handlers"
)

// Setup returns the setup command.
//
// Setup converges the container runtime toward the declared topology:
// networks first, then nodes, then health verification. Re-running setup
// against an unchanged, healthy deployment is a no-op.
func Setup(flags *GlobalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Provision the declared chain topology",
		Long: `Setup creates the declared virtual networks and node containers, pushes
each node's engine configuration and routes, and waits until every
control-plane answers.

A deployment that already matches the topology (same content hash, all
nodes healthy) is left untouched. On a mid-flight failure the resources
created by this run are rolled back; networks are left standing.

Example:
  chainctl setup -t chain.yaml
  chainctl setup --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Setup(cmd.Context(), flags.TopologyPath, flags.StatePath, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Tear the deployment down first and rebuild from scratch")

	return cmd
}
