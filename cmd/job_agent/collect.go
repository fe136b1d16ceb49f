package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-aggregator/internal/observability"
	"github.com/jonathan/job-aggregator/internal/pipeline"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect, deduplicate and score offers, then write a snapshot",
	Long: `Queries every enabled source concurrently, normalizes and scores the offers, removes
cross-source duplicates and writes a timestamped JSON snapshot. Nothing is stored.`,
	RunE: runCollect,
}

var (
	collectKeywords string
	collectLocation string
	collectLimit    int
	collectOutDir   string
	collectNoExport bool
)

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&collectKeywords, "keywords", "k", "", "Search keywords (overrides config)")
	cmd.Flags().StringVarP(&collectLocation, "location", "l", "", "Search location (overrides config)")
	cmd.Flags().IntVar(&collectLimit, "limit", 0, "Maximum offers per source (overrides config)")
	cmd.Flags().StringVarP(&collectOutDir, "out", "o", "", "Snapshot directory (overrides config)")
	cmd.Flags().BoolVar(&collectNoExport, "no-export", false, "Skip writing the snapshot")
}

func init() {
	addQueryFlags(collectCmd)
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, _ []string) error {
	return collect(cmd, false, false)
}

// collect runs one pipeline pass. With doSync the records are upserted into
// the store, or into a throwaway in-memory store when dryRun is set.
func collect(cmd *cobra.Command, doSync, dryRun bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	applyQueryOverrides(a)

	agg, err := a.aggregator()
	if err != nil {
		return err
	}
	runner := &pipeline.Runner{Aggregator: agg, Logger: a.logger}
	if doSync {
		store, err := a.openStore(ctx, dryRun)
		if err != nil {
			return err
		}
		runner.Syncer = a.engine(ctx, store)
	}

	opts := pipeline.RunOptions{Query: a.query(), Sync: doSync}
	if !collectNoExport {
		opts.OutputDir = a.cfg.OutputDir
	}
	if verbose {
		opts.OnProgress = func(e pipeline.ProgressEvent) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", e.Step, e.Message)
		}
	}

	report, err := runner.Run(ctx, opts)
	if report != nil {
		printReport(cmd, report)
	}
	return err
}

func applyQueryOverrides(a *app) {
	if collectKeywords != "" {
		a.cfg.Query.Keywords = collectKeywords
	}
	if collectLocation != "" {
		a.cfg.Query.Location = collectLocation
	}
	if collectLimit > 0 {
		a.cfg.Query.Limit = collectLimit
	}
	if collectOutDir != "" {
		a.cfg.OutputDir = collectOutDir
	}
}

func printReport(cmd *cobra.Command, report *pipeline.RunReport) {
	out := cmd.OutOrStdout()
	res := report.Aggregation
	if verbose {
		p := observability.NewPrinter(out)
		p.PrintAggregation(res)
		p.PrintTopRecords(res.Records)
		p.PrintSyncStats(report.Sync)
	} else {
		_, _ = fmt.Fprintf(out, "Collected %d offers from %d source(s), %d duplicates removed\n",
			len(res.Records), len(res.Sources), res.DuplicatesRemoved)
		for _, e := range res.SourceErrors {
			_, _ = fmt.Fprintf(out, "  source %s failed: %s\n", e.Source, e.Message)
		}
		if s := report.Sync; s != nil {
			_, _ = fmt.Fprintf(out, "Synced: %d new, %d updated, %d errors\n", s.New, s.Updated, s.Errors)
		}
	}
	if report.SnapshotPath != "" {
		_, _ = fmt.Fprintf(out, "Snapshot: %s\n", report.SnapshotPath)
	}
}
