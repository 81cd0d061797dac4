package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"emailanalyser/pkg/mq"
	"emailanalyser/pkg/outbox"
)

var (
	flagEventID int64
	flagLimit   int
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and replay outbox events",
}

var outboxReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Republish one outbox event (--id) or every failed one",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.DB.Enabled || !cfg.MQ.Enabled {
			return fmt.Errorf("outbox replay needs db.enabled and mq.enabled")
		}

		a, log, err := loadApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer log.Sync()
		defer a.Close()

		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			return fmt.Errorf("connecting to mq: %w", err)
		}
		defer publisher.Close()

		replay := outbox.NewReplayService(outbox.NewRepository(a.DB), publisher, log)
		out := cmd.OutOrStdout()

		if flagEventID > 0 {
			if err := replay.ReplayEvent(cmd.Context(), flagEventID); err != nil {
				return err
			}
			fmt.Fprintf(out, "Replayed event %d.\n", flagEventID)
			return nil
		}

		count, err := replay.ReplayFailedEvents(cmd.Context(), flagLimit)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Replayed %d failed event(s).\n", count)
		return nil
	},
}

func init() {
	outboxReplayCmd.Flags().Int64Var(&flagEventID, "id", 0, "event id to replay")
	outboxReplayCmd.Flags().IntVar(&flagLimit, "limit", 100, "max failed events to replay")
	outboxCmd.AddCommand(outboxReplayCmd)
}
