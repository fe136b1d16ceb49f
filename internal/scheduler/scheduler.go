// Package scheduler runs the collection pipeline on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonathan/job-aggregator/internal/logging"
)

// RunFunc is one scheduled cycle.
type RunFunc func(ctx context.Context) error

// Scheduler wraps robfig/cron. A cycle that is still running when the next
// tick fires makes that tick a no-op.
type Scheduler struct {
	cron   *cron.Cron
	spec   string // cron spec, e.g. "@every 6h"
	job    cron.Job
	logger *logging.Logger
	ctx    context.Context
}

// New creates a Scheduler that calls run on spec.
func New(spec string, run RunFunc, logger *logging.Logger) *Scheduler {
	logger = logging.OrNop(logger)
	s := &Scheduler{
		cron:   cron.New(),
		spec:   spec,
		logger: logger,
	}
	s.job = cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		s.cycle(run)
	}))
	return s
}

// Start registers the job and starts the scheduler. It also runs one cycle
// immediately so the store is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddJob(s.spec, s.job); err != nil {
		return fmt.Errorf("cron.AddJob: %w", err)
	}
	s.ctx = ctx

	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec)

	go s.job.Run()
	return nil
}

// Stop stops scheduling and waits for a running cycle to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.logger.Info("scheduler stopped")
}

// Next returns the time of the next scheduled cycle, or zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) cycle(run RunFunc) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	s.logger.Info("cycle started")
	if err := run(ctx); err != nil {
		s.logger.Error("cycle failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("cycle complete", "duration", time.Since(start))
}
