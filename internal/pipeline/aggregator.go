// Package pipeline collects raw records from every enabled source, turns them
// into scored canonical records, removes cross-source duplicates and hands
// the result to export and sync.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-aggregator/internal/connectors"
	"github.com/jonathan/job-aggregator/internal/logging"
	"github.com/jonathan/job-aggregator/internal/normalize"
	"github.com/jonathan/job-aggregator/internal/raw"
	"github.com/jonathan/job-aggregator/internal/scoring"
	"github.com/jonathan/job-aggregator/internal/types"
)

// DefaultSourceTimeout bounds a single source's acquisition.
const DefaultSourceTimeout = 60 * time.Second

// Source is one enabled connector. Sources are prioritized in the order they
// are given: on a duplicate, the earlier source's record wins.
type Source struct {
	Connector connectors.Connector
	// Timeout overrides the aggregator default when positive.
	Timeout time.Duration
}

// Options configures an Aggregator.
type Options struct {
	Normalizer normalize.Normalizer
	Ruleset    *scoring.KeywordRuleset
	Timeout    time.Duration
	Logger     *logging.Logger
	Clock      func() time.Time
	OnProgress ProgressCallback
}

// Aggregator runs sources concurrently and merges their output.
type Aggregator struct {
	sources []Source
	opts    Options
	logger  *logging.Logger
}

// NewAggregator validates the source list and fills option defaults.
func NewAggregator(sources []Source, opts Options) (*Aggregator, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	names := make(map[string]bool, len(sources))
	for i, src := range sources {
		if src.Connector == nil {
			return nil, fmt.Errorf("source %d has no connector", i)
		}
		name := src.Connector.Name()
		if names[name] {
			return nil, fmt.Errorf("duplicate source name %q", name)
		}
		names[name] = true
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.NewRegistry(opts.Clock)
	}
	if opts.Ruleset == nil {
		opts.Ruleset = scoring.DefaultRuleset()
	}
	opts.Ruleset = opts.Ruleset.Normalized()
	if err := opts.Ruleset.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ruleset: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSourceTimeout
	}
	return &Aggregator{sources: sources, opts: opts, logger: logging.OrNop(opts.Logger)}, nil
}

type fetchOutcome struct {
	records []raw.Record
	err     *AcquisitionError
	elapsed time.Duration
}

// Run acquires from every source in parallel, then normalizes, scores and
// deduplicates sequentially. Source failures never fail the run.
func (a *Aggregator) Run(ctx context.Context, q connectors.Query) (*AggregationResult, error) {
	started := a.opts.Clock()

	outcomes := make([]fetchOutcome, len(a.sources))
	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			outcomes[i] = a.acquire(ctx, src, q)
			return nil
		})
	}
	_ = g.Wait()

	batches := make([]SourceBatch, 0, len(a.sources))
	var sourceErrs []*AcquisitionError
	var normErrs []*normalize.NormalizationError

	for i, src := range a.sources {
		name := src.Connector.Name()
		platform := src.Connector.Platform()
		out := outcomes[i]

		if out.err != nil {
			a.logger.Warn("source failed", "source", name, "error", out.err, "elapsed", out.elapsed)
			sourceErrs = append(sourceErrs, out.err)
			batches = append(batches, SourceBatch{Source: name})
			a.emit("acquire", name, out.err.Error(), 0)
			continue
		}

		records := make([]types.JobRecord, 0, len(out.records))
		for idx, rec := range out.records {
			job, err := a.opts.Normalizer.Normalize(rec, platform)
			if err != nil {
				nerr := asNormalizationError(err, platform)
				nerr.Index = idx
				a.logger.Warn("dropping record", "source", name, "index", idx, "raw_ref", nerr.RawRef, "error", nerr.Message)
				normErrs = append(normErrs, nerr)
				continue
			}
			ann := scoring.Score(job, a.opts.Ruleset)
			job.Relevance = &ann
			records = append(records, *job)
		}
		a.logger.Info("source collected", "source", name, "raw", len(out.records), "normalized", len(records), "elapsed", out.elapsed)
		a.emit("acquire", name, fmt.Sprintf("%d records", len(records)), len(records))
		batches = append(batches, SourceBatch{Source: name, Records: records})
	}

	result := Merge(batches)
	result.SourceErrors = sourceErrs
	result.NormalizationErrors = normErrs
	result.StartedAt = started
	result.FinishedAt = a.opts.Clock()
	result.Duration = result.FinishedAt.Sub(started)

	a.emit("dedup", "", fmt.Sprintf("%d records, %d duplicates removed", len(result.Records), result.DuplicatesRemoved), len(result.Records))
	return result, nil
}

// acquire runs one connector under its own timeout. The connector runs in a
// separate goroutine so one that ignores ctx still cannot stall the run.
func (a *Aggregator) acquire(ctx context.Context, src Source, q connectors.Query) fetchOutcome {
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = a.opts.Timeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		records []raw.Record
		err     error
	}
	done := make(chan reply, 1)
	start := time.Now()

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: fmt.Errorf("connector panicked: %v", p)}
			}
		}()
		records, err := src.Connector.Fetch(tctx, q)
		done <- reply{records: records, err: err}
	}()

	name, platform := src.Connector.Name(), src.Connector.Platform()
	select {
	case r := <-done:
		elapsed := time.Since(start)
		if r.err != nil {
			return fetchOutcome{elapsed: elapsed, err: &AcquisitionError{
				Source:   name,
				Platform: platform,
				Message:  "fetch failed",
				TimedOut: errors.Is(r.err, context.DeadlineExceeded),
				Cause:    r.err,
			}}
		}
		return fetchOutcome{records: r.records, elapsed: elapsed}
	case <-tctx.Done():
		msg := "cancelled"
		timedOut := errors.Is(tctx.Err(), context.DeadlineExceeded)
		if timedOut {
			msg = fmt.Sprintf("timed out after %s", timeout)
		}
		return fetchOutcome{elapsed: time.Since(start), err: &AcquisitionError{
			Source:   name,
			Platform: platform,
			Message:  msg,
			TimedOut: timedOut,
			Cause:    tctx.Err(),
		}}
	}
}

func (a *Aggregator) emit(step, source, message string, count int) {
	if a.opts.OnProgress != nil {
		a.opts.OnProgress(ProgressEvent{Step: step, Source: source, Message: message, Count: count})
	}
}

func asNormalizationError(err error, platform string) *normalize.NormalizationError {
	var nerr *normalize.NormalizationError
	if errors.As(err, &nerr) {
		copied := *nerr
		return &copied
	}
	return &normalize.NormalizationError{Platform: platform, Message: err.Error()}
}
