package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/argus-labs/oracle-feeder/cmd/feeder/cmd.Version=...".
var Version = "dev"

// NewRootCmd creates the feeder command tree. Configuration comes from the environment; see
// `feeder config` for the effective values.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "feeder",
		Short:         "Submits oracle votes on behalf of a validator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		startCmd(),
		configCmd(),
		journalCmd(),
		versionCmd(),
	)
	return rootCmd
}
