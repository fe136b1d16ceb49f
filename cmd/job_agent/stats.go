package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-aggregator/internal/observability"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	stats, err := store.Stats(ctx, time.Now())
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintStoreStats(stats)
	return nil
}
