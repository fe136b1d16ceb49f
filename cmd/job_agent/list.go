package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-aggregator/internal/db"
	"github.com/jonathan/job-aggregator/internal/observability"
	"github.com/jonathan/job-aggregator/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored offers",
	Long:  "Lists stored offers by priority, then most recently discovered first.",
	RunE:  runList,
}

var (
	listStatus   string
	listPlatform string
	listMinTier  string
	listSearch   string
	listLimit    int
)

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Only offers with this status")
	listCmd.Flags().StringVar(&listPlatform, "platform", "", "Only offers from this platform")
	listCmd.Flags().StringVarP(&listMinTier, "min-tier", "t", "", "Only offers at or above this tier (A-E)")
	listCmd.Flags().StringVarP(&listSearch, "search", "q", "", "Case-insensitive match on title, company or description")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum offers to print (0 for all)")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	filter := db.ListFilter{
		Platform: listPlatform,
		Search:   listSearch,
		Limit:    listLimit,
	}
	if listStatus != "" {
		st, err := types.ParseStatus(listStatus)
		if err != nil {
			return err
		}
		filter.Status = st
	}
	if listMinTier != "" {
		tier := types.Tier(strings.ToUpper(strings.TrimSpace(listMinTier)))
		if tier.Rank() == 0 {
			return fmt.Errorf("invalid tier %q: want one of A, B, C, D, E", listMinTier)
		}
		filter.MinTier = tier
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
	records, err := store.List(ctx, filter)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintStoredRecords(records)
	return nil
}
