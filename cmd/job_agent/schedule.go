package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-aggregator/internal/pipeline"
	"github.com/jonathan/job-aggregator/internal/scheduler"
)

const defaultSchedule = "@every 6h"

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run sync periodically until interrupted",
	Long: `Runs a sync immediately and then on the cron spec given by --every or the config
"schedule" field (default "@every 6h"). Stops on SIGINT or SIGTERM.`,
	RunE: runSchedule,
}

var scheduleSpec string

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "every", "", `Cron spec, e.g. "@every 2h" or "0 8 * * 1-5"`)
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	spec := scheduleSpec
	if spec == "" {
		spec = a.cfg.Schedule
	}
	if spec == "" {
		spec = defaultSchedule
	}

	agg, err := a.aggregator()
	if err != nil {
		return err
	}
	store, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	runner := &pipeline.Runner{Aggregator: agg, Syncer: a.engine(ctx, store), Logger: a.logger}

	s := scheduler.New(spec, func(ctx context.Context) error {
		report, err := runner.Run(ctx, pipeline.RunOptions{
			Query:     a.query(),
			OutputDir: a.cfg.OutputDir,
			Sync:      true,
		})
		if report != nil {
			printReport(cmd, report)
		}
		return err
	}, a.logger)
	if err := s.Start(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %q, next run after this one at %s\n", spec, s.Next().Format(time.RFC3339))

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Stop(shutdown)
	return nil
}
