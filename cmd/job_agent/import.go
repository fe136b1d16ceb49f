package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-aggregator/internal/export"
	"github.com/jonathan/job-aggregator/internal/observability"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Upsert the offers of an existing snapshot",
	Long:  "Validates a snapshot written by collect and upserts its records, without querying any source.",
	RunE:  runImport,
}

var (
	importFile   string
	importDryRun bool
)

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "Snapshot file (required)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Sync into an in-memory store and discard it")

	importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	snap, err := export.Read(importFile)
	if err != nil {
		return err
	}

	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.openStore(ctx, importDryRun)
	if err != nil {
		return err
	}
	stats, err := a.engine(ctx, store).Upsert(ctx, snap.Records)
	if stats != nil {
		if verbose {
			observability.NewPrinter(cmd.OutOrStdout()).PrintSyncStats(stats)
		} else {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d offers: %d new, %d updated, %d errors\n",
				stats.Total, stats.New, stats.Updated, stats.Errors)
		}
	}
	return err
}
