package cmd

import (
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/argus-labs/oracle-feeder/pkg/feeder"
	"github.com/argus-labs/oracle-feeder/pkg/journal"
	"github.com/argus-labs/oracle-feeder/pkg/manager"
	"github.com/argus-labs/oracle-feeder/pkg/telemetry"
)

type journalReport struct {
	Counts   map[manager.Status]int64 `json:"counts"`
	Outcomes []manager.Outcome        `json:"outcomes"`
}

func journalCmd() *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the most recent interval outcomes recorded in redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := feeder.LoadOptions(feeder.Options{})
			if err != nil {
				return err
			}
			if !opts.JournalEnabled {
				return eris.New("journal is disabled, set FEEDER_JOURNAL_ENABLED=true")
			}

			client := redis.NewClient(&redis.Options{Addr: opts.RedisAddress, Password: opts.RedisPassword})
			defer client.Close()

			j, err := journal.New(telemetry.GetGlobalLogger("journal"), client, journal.Options{})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := j.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = j.Stop(ctx) }()

			var report journalReport
			if report.Outcomes, err = j.Recent(ctx, limit); err != nil {
				return err
			}
			if report.Counts, err = j.Counts(ctx); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().Int64VarP(&limit, "limit", "n", 20, "number of outcomes to print")
	return cmd
}
