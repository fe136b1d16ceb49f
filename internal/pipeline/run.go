package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jonathan/job-aggregator/internal/connectors"
	"github.com/jonathan/job-aggregator/internal/export"
	"github.com/jonathan/job-aggregator/internal/logging"
	"github.com/jonathan/job-aggregator/internal/syncer"
	"github.com/jonathan/job-aggregator/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step    string `json:"step"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Upserter is the part of the sync engine the runner drives.
type Upserter interface {
	Upsert(ctx context.Context, records []types.JobRecord) (*syncer.Stats, error)
}

// RunOptions holds configuration for one collection run
type RunOptions struct {
	Query connectors.Query
	// OutputDir, when set, receives a timestamped snapshot.
	OutputDir string
	// Sync upserts the records when the runner has a syncer.
	Sync       bool
	OnProgress ProgressCallback
}

// RunReport is what one run produced.
type RunReport struct {
	Aggregation  *AggregationResult
	SnapshotPath string
	Sync         *syncer.Stats
}

// Runner chains collection, export and sync.
type Runner struct {
	Aggregator *Aggregator
	Syncer     Upserter
	Logger     *logging.Logger
	Clock      func() time.Time
}

// Run collects, optionally writes the snapshot, and optionally syncs. Only a
// failed export or a cancelled context makes it return an error; the report
// is filled as far as the run got.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	logger := logging.OrNop(r.Logger)
	clock := r.Clock
	if clock == nil {
		clock = time.Now
	}
	emit := func(step, message string, count int) {
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressEvent{Step: step, Message: message, Count: count})
		}
	}

	emit("collect", fmt.Sprintf("querying %d source(s)", len(r.Aggregator.sources)), len(r.Aggregator.sources))
	result, err := r.Aggregator.Run(ctx, opts.Query)
	if err != nil {
		return nil, err
	}
	report := &RunReport{Aggregation: result}
	logger.Info("collection finished",
		"records", len(result.Records),
		"duplicates_removed", result.DuplicatesRemoved,
		"source_errors", len(result.SourceErrors),
		"normalization_errors", len(result.NormalizationErrors),
		"duration", result.Duration)

	if opts.OutputDir != "" {
		now := clock()
		path := filepath.Join(opts.OutputDir, export.FileName(now))
		if err := export.Write(path, Snapshot(result, opts.Query, now)); err != nil {
			return report, fmt.Errorf("export failed: %w", err)
		}
		report.SnapshotPath = path
		logger.Info("snapshot written", "path", path)
		emit("export", path, len(result.Records))
	}

	if opts.Sync && r.Syncer != nil {
		stats, err := r.Syncer.Upsert(ctx, result.Records)
		report.Sync = stats
		if err != nil {
			return report, fmt.Errorf("sync interrupted: %w", err)
		}
		emit("sync", fmt.Sprintf("%d new, %d updated, %d errors", stats.New, stats.Updated, stats.Errors), stats.Total)
	}
	return report, ctx.Err()
}
