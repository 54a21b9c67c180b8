// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Default file locations, relative to the working directory.
const (
	defaultTopology = "chainctl.yaml"
	defaultState    = ".chainctl.db"
)

// GlobalFlags carries the persistent flags shared by every subcommand.
type GlobalFlags struct {
	TopologyPath string
	StatePath    string
}

// Root returns the root command for the chainctl CLI.
func Root() *cobra.Command {
	var flags GlobalFlags

	cmd := &cobra.Command{
		Use:   "chainctl",
		Short: "Provision and validate containerized packet-processing chains",
		Long: `chainctl converges a set of containers running userspace dataplane
engines toward a declarative YAML topology: virtual networks with static
addressing, per-node engine configuration and routes, readiness
verification, and end-to-end traffic validation.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.TopologyPath, "topology", "t", defaultTopology,
		"Path to the topology file")
	cmd.PersistentFlags().StringVar(&flags.StatePath, "state", defaultState,
		"Path to the deployment state database")

	cmd.AddCommand(Setup(&flags))
	cmd.AddCommand(Status(&flags))
	cmd.AddCommand(Test(&flags))
	cmd.AddCommand(Debug(&flags))
	cmd.AddCommand(Cleanup(&flags))
	cmd.AddCommand(Version())

	return cmd
}
