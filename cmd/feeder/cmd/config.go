package cmd

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/argus-labs/oracle-feeder/pkg/feeder"
)

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := feeder.LoadOptions(feeder.Options{Version: Version})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(opts.Describe())
		},
	}
}
