package main

import (
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Collect offers and upsert them into the store",
	Long: `Runs the collect pipeline and upserts every kept offer. New offers start as "discovered";
offers already stored get fresh source data while status, priority and notes are kept.`,
	RunE: runSync,
}

var syncDryRun bool

func init() {
	addQueryFlags(syncCmd)
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Sync into an in-memory store and discard it")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	return collect(cmd, true, syncDryRun)
}
