package pipeline

import (
	"time"

	"github.com/jonathan/job-aggregator/internal/normalize"
	"github.com/jonathan/job-aggregator/internal/types"
)

// SourceBatch is the normalized output of one source.
type SourceBatch struct {
	Source  string
	Records []types.JobRecord
}

// AggregationResult is the merged, deduplicated output of one run.
type AggregationResult struct {
	Records []types.JobRecord
	// Sources lists source names in priority order.
	Sources []string
	// PerSource counts normalized records per source before deduplication.
	PerSource          map[string]int
	DuplicatesRemoved  int
	UnstableIdentities int

	SourceErrors        []*AcquisitionError
	NormalizationErrors []*normalize.NormalizationError

	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// TotalBeforeDedup is the sum of PerSource.
func (r *AggregationResult) TotalBeforeDedup() int {
	total := 0
	for _, n := range r.PerSource {
		total += n
	}
	return total
}

// BySource groups the surviving records by platform.
func (r *AggregationResult) BySource() map[string][]types.JobRecord {
	out := make(map[string][]types.JobRecord)
	for _, rec := range r.Records {
		out[rec.SourcePlatform] = append(out[rec.SourcePlatform], rec)
	}
	return out
}

// Merge concatenates batches in order and drops every record whose
// title|company key was already seen. The first occurrence wins, so earlier
// batches take priority.
func Merge(batches []SourceBatch) *AggregationResult {
	result := &AggregationResult{
		Records:   []types.JobRecord{},
		Sources:   make([]string, 0, len(batches)),
		PerSource: make(map[string]int, len(batches)),
	}
	seen := make(map[string]bool)
	for _, batch := range batches {
		if _, ok := result.PerSource[batch.Source]; !ok {
			result.Sources = append(result.Sources, batch.Source)
		}
		result.PerSource[batch.Source] += len(batch.Records)

		for _, rec := range batch.Records {
			key := rec.DedupKey()
			if seen[key] {
				result.DuplicatesRemoved++
				continue
			}
			seen[key] = true
			if rec.UnstableID {
				result.UnstableIdentities++
			}
			result.Records = append(result.Records, rec)
		}
	}
	return result
}
