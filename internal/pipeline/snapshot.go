package pipeline

import (
	"time"

	"github.com/jonathan/job-aggregator/internal/connectors"
	"github.com/jonathan/job-aggregator/internal/export"
)

// Snapshot converts a run into its export artifact.
func Snapshot(result *AggregationResult, q connectors.Query, generatedAt time.Time) *export.Snapshot {
	started, finished := result.StartedAt.UTC(), result.FinishedAt.UTC()
	s := &export.Snapshot{
		Metadata: export.Metadata{
			GeneratedAt: generatedAt.UTC(),
			Query:       q,
			Sources:     append([]string(nil), result.Sources...),
			Stats: export.Stats{
				TotalBeforeDedup:   result.TotalBeforeDedup(),
				DuplicatesRemoved:  result.DuplicatesRemoved,
				UnstableIdentities: result.UnstableIdentities,
				PerSource:          result.PerSource,
				DurationMS:         result.Duration.Milliseconds(),
			},
		},
		Records: result.Records,
	}
	if !result.StartedAt.IsZero() {
		s.Metadata.Stats.StartedAt = &started
		s.Metadata.Stats.FinishedAt = &finished
	}
	for _, e := range result.SourceErrors {
		s.SourceErrors = append(s.SourceErrors, export.SourceError{
			Source:   e.Source,
			Platform: e.Platform,
			Message:  e.Error(),
			TimedOut: e.TimedOut,
		})
	}
	for _, e := range result.NormalizationErrors {
		s.NormalizationErrors = append(s.NormalizationErrors, *e)
	}
	s.Normalize()
	return s
}
