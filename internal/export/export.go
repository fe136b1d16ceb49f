// Package export writes and reads the collection snapshot: every record of a
// run with its relevance annotation, the per-source statistics and the
// errors recorded along the way.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonathan/job-aggregator/internal/connectors"
	"github.com/jonathan/job-aggregator/internal/normalize"
	"github.com/jonathan/job-aggregator/internal/schemas"
	"github.com/jonathan/job-aggregator/internal/types"
)

// Snapshot is the serialized artifact.
type Snapshot struct {
	Metadata            Metadata                       `json:"collection_metadata"`
	SourceErrors        []SourceError                  `json:"source_errors"`
	NormalizationErrors []normalize.NormalizationError `json:"normalization_errors"`
	RecordsBySource     map[string][]types.JobRecord   `json:"records_by_source"`
	Records             []types.JobRecord              `json:"records"`
}

// Metadata describes the run that produced a snapshot.
type Metadata struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Query       connectors.Query `json:"query"`
	Sources     []string         `json:"sources"`
	Stats       Stats            `json:"stats"`
}

// Stats mirrors the aggregation counters.
type Stats struct {
	TotalBeforeDedup   int                `json:"total_before_dedup"`
	TotalRecords       int                `json:"total_records"`
	DuplicatesRemoved  int                `json:"duplicates_removed"`
	UnstableIdentities int                `json:"unstable_identities"`
	PerSource          map[string]int     `json:"per_source"`
	ByTier             map[types.Tier]int `json:"by_tier,omitempty"`
	StartedAt          *time.Time         `json:"started_at,omitempty"`
	FinishedAt         *time.Time         `json:"finished_at,omitempty"`
	DurationMS         int64              `json:"duration_ms"`
}

// SourceError is a source that contributed nothing.
type SourceError struct {
	Source   string `json:"source"`
	Platform string `json:"platform,omitempty"`
	Message  string `json:"message"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// Normalize fills empty collections so the document always carries every key,
// groups records by platform, and derives the tier histogram.
func (s *Snapshot) Normalize() {
	if s.SourceErrors == nil {
		s.SourceErrors = []SourceError{}
	}
	if s.NormalizationErrors == nil {
		s.NormalizationErrors = []normalize.NormalizationError{}
	}
	if s.Records == nil {
		s.Records = []types.JobRecord{}
	}
	if s.Metadata.Sources == nil {
		s.Metadata.Sources = []string{}
	}
	if s.Metadata.Stats.PerSource == nil {
		s.Metadata.Stats.PerSource = map[string]int{}
	}

	s.RecordsBySource = make(map[string][]types.JobRecord)
	byTier := make(map[types.Tier]int)
	for _, rec := range s.Records {
		s.RecordsBySource[rec.SourcePlatform] = append(s.RecordsBySource[rec.SourcePlatform], rec)
		if rec.Relevance != nil {
			byTier[rec.Relevance.Tier]++
		}
	}
	s.Metadata.Stats.TotalRecords = len(s.Records)
	if len(byTier) > 0 {
		s.Metadata.Stats.ByTier = byTier
	}
}

// Platforms returns the record platforms in sorted order.
func (s *Snapshot) Platforms() []string {
	out := make([]string, 0, len(s.RecordsBySource))
	for p := range s.RecordsBySource {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Marshal renders the snapshot as indented JSON and validates it.
func Marshal(s *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := schemas.ValidateSnapshot(data); err != nil {
		return nil, fmt.Errorf("snapshot does not match schema: %w", err)
	}
	return data, nil
}

// Write saves the snapshot at path, creating parent directories.
func Write(path string, s *Snapshot) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Read loads and validates a snapshot file.
func Read(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := schemas.ValidateSnapshot(data); err != nil {
		return nil, fmt.Errorf("%s does not match schema: %w", path, err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &s, nil
}

// FileName is the default snapshot name for a run finishing at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("jobs_%s.json", t.UTC().Format("20060102_150405"))
}
