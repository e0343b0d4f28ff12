package cmd

import (
	"github.com/spf13/cobra"

	"github.com/argus-labs/oracle-feeder/pkg/feeder"
)

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the feeder until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			f, err := feeder.New(feeder.Options{Version: Version})
			if err != nil {
				return err
			}
			return f.Run()
		},
	}
}
