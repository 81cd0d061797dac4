package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"emailanalyser/internal/service"
)

var (
	flagInput       string
	flagOutput      string
	flagWorkers     int
	flagTimelineOut string
	flagFromResults bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyse every .eml file in the input directory",
	Long: `Parse every *.eml file in the input directory, run all extractors and
replace the CSV report with the results. When db.enabled the results are
also upserted into Postgres together with email.analyzed outbox events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagInput != "" {
			cfg.Analysis.InputDirectory = flagInput
		}
		if flagOutput != "" {
			cfg.Analysis.OutputFile = flagOutput
		}
		if flagWorkers > 0 {
			cfg.Analysis.Workers = flagWorkers
		}

		a, log, err := loadApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer log.Sync()
		defer a.Close()

		batch, _, err := a.Pipeline.RunDirectory(cmd.Context(), service.TriggerCLI)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Analysed %d email(s), %d failed, in %s.\n",
			len(batch.Results), batch.Failed, batch.FinishedAt.Sub(batch.StartedAt).Round(time.Millisecond))
		fmt.Fprintf(out, "Results written to %s\n", a.CSV.Path())
		if a.Results != nil {
			fmt.Fprintf(out, "Results stored in database (run %s)\n", batch.RunID)
		}
		return nil
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Print the active email usage timeline as JSON",
	Long: `Build the usage timeline (span, peak times, activity patterns, monthly
segments and gaps) from the Date headers of the input directory, or from
stored results with --from-results.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagInput != "" {
			cfg.Analysis.InputDirectory = flagInput
		}

		a, log, err := loadApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer log.Sync()
		defer a.Close()

		var timeline any
		if flagFromResults {
			timeline, err = a.Pipeline.Timeline(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading results: %w", err)
			}
		} else {
			emails, err := a.Analyzer.Parser().ParseDirectory(cfg.Analysis.InputDirectory)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", cfg.Analysis.InputDirectory, err)
			}
			timeline = a.Analyzer.Timeline(emails)
		}

		data, err := json.MarshalIndent(timeline, "", "  ")
		if err != nil {
			return err
		}
		if flagTimelineOut != "" {
			return os.WriteFile(flagTimelineOut, append(data, '\n'), 0o644)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&flagInput, "input", "i", "", "override analysis.input_directory")
	analyzeCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "override analysis.output_file")
	analyzeCmd.Flags().IntVarP(&flagWorkers, "workers", "w", 0, "override analysis.workers")

	timelineCmd.Flags().StringVarP(&flagInput, "input", "i", "", "override analysis.input_directory")
	timelineCmd.Flags().StringVarP(&flagTimelineOut, "output", "o", "", "write JSON to this file instead of stdout")
	timelineCmd.Flags().BoolVar(&flagFromResults, "from-results", false, "use stored results instead of parsing the input directory")
}
