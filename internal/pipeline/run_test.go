package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-aggregator/internal/connectors"
	"github.com/jonathan/job-aggregator/internal/db"
	"github.com/jonathan/job-aggregator/internal/export"
	"github.com/jonathan/job-aggregator/internal/syncer"
	"github.com/jonathan/job-aggregator/internal/types"
)

func TestRunner_CollectExportSync(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	engine := syncer.New(store, syncer.Options{Clock: fixedClock})
	agg := newTestAggregator(t,
		static("a", "indeed", card("1", "SEO Specialist", "Acme")),
		static("b", "glassdoor", card("2", "SEO specialist", "acme"), card("3", "Content Writer", "Globex")),
	)

	var steps []string
	runner := &Runner{Aggregator: agg, Syncer: engine, Clock: fixedClock}
	out := t.TempDir()
	report, err := runner.Run(ctx, RunOptions{
		Query:      connectors.Query{Keywords: "seo", Location: "Paris"},
		OutputDir:  out,
		Sync:       true,
		OnProgress: func(e ProgressEvent) { steps = append(steps, e.Step) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"collect", "export", "sync"}, steps)

	assert.Equal(t, filepath.Join(out, "jobs_20250314_093000.json"), report.SnapshotPath)
	snap, err := export.Read(report.SnapshotPath)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Metadata.Stats.TotalBeforeDedup)
	assert.Equal(t, 1, snap.Metadata.Stats.DuplicatesRemoved)
	assert.Equal(t, 2, snap.Metadata.Stats.TotalRecords)
	assert.Equal(t, "seo", snap.Metadata.Query.Keywords)
	assert.Equal(t, []string{"a", "b"}, snap.Metadata.Sources)
	assert.Len(t, snap.RecordsBySource["glassdoor"], 1)

	require.NotNil(t, report.Sync)
	assert.Equal(t, 2, report.Sync.New)

	// Second run updates the same rows.
	report, err = runner.Run(ctx, RunOptions{Sync: true})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sync.New)
	assert.Equal(t, 2, report.Sync.Updated)
	assert.Empty(t, report.SnapshotPath)

	stats, err := store.Stats(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[types.StatusDiscovered])
}

func TestRunner_NoSyncWithoutFlag(t *testing.T) {
	store := db.NewMemoryStore()
	runner := &Runner{
		Aggregator: newTestAggregator(t, static("a", "indeed", card("1", "SEO", "Acme"))),
		Syncer:     syncer.New(store, syncer.Options{}),
	}
	report, err := runner.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Nil(t, report.Sync)
	assert.Len(t, report.Aggregation.Records, 1)

	stats, err := store.Stats(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestRunner_ExportFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	runner := &Runner{Aggregator: newTestAggregator(t, static("a", "indeed", card("1", "SEO", "Acme")))}
	report, err := runner.Run(context.Background(), RunOptions{OutputDir: filepath.Join(blocker, "sub")})
	assert.ErrorContains(t, err, "export failed")
	require.NotNil(t, report)
	assert.Len(t, report.Aggregation.Records, 1)
}

func TestSnapshot_CarriesErrors(t *testing.T) {
	agg := newTestAggregator(t,
		static("a", "indeed", card("1", "SEO", "Acme"), card("", "", "")),
		Source{Connector: &connectors.Static{SourceName: "down", SourcePlatform: "glassdoor", Err: assert.AnError}},
	)
	result, err := agg.Run(context.Background(), connectors.Query{})
	require.NoError(t, err)

	snap := Snapshot(result, connectors.Query{Keywords: "seo"}, fixedNow)
	require.Len(t, snap.SourceErrors, 1)
	assert.Equal(t, "down", snap.SourceErrors[0].Source)
	assert.Contains(t, snap.SourceErrors[0].Message, assert.AnError.Error())
	require.Len(t, snap.NormalizationErrors, 1)
	assert.Equal(t, 1, snap.NormalizationErrors[0].Index)
	require.NotNil(t, snap.Metadata.Stats.StartedAt)

	_, err = export.Marshal(snap)
	assert.NoError(t, err)
}
