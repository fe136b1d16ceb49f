package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-aggregator/internal/config"
	"github.com/jonathan/job-aggregator/internal/db"
	"github.com/jonathan/job-aggregator/internal/types"
)

const exportFixture = `[
	{"source_id": "101", "title": "SEO Specialist", "company_name": "Acme", "location": "Paris", "description": "SEO audits and content."},
	{"source_id": "102", "title": "Content Writer", "company_name": "Globex", "location": "Lyon"}
]`

// resetFlags restores every flag to its default so commands can run again
// in the same process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

type fixture struct {
	dir    string
	config string
	dbPath string
	outDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "JOB_AGENT_LOG_MODE"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	f := &fixture{
		dir:    dir,
		config: filepath.Join(dir, "config.json"),
		dbPath: filepath.Join(dir, "jobs.db"),
		outDir: filepath.Join(dir, "out"),
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "export_1.json"), []byte(exportFixture), 0644))

	cfg := fmt.Sprintf(`{
		"query": {"keywords": "seo"},
		"sources": [{"type": "jsonfile", "name": "export", "platform": "indeed", "pattern": %q}],
		"store": {"driver": "sqlite", "path": %q},
		"output_dir": %q,
		"log_mode": "prod"
	}`, filepath.Join(dir, "export_*.json"), f.dbPath, f.outDir)
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0644))
	return f
}

func (f *fixture) stored(t *testing.T) []types.StoredRecord {
	t.Helper()
	store, err := db.OpenSQLite(context.Background(), f.dbPath)
	require.NoError(t, err)
	defer store.Close()
	records, err := store.List(context.Background(), db.ListFilter{})
	require.NoError(t, err)
	return records
}

func (f *fixture) find(t *testing.T, title string) types.StoredRecord {
	t.Helper()
	for _, rec := range f.stored(t) {
		if rec.Record.Title == title {
			return rec
		}
	}
	t.Fatalf("no stored record titled %q", title)
	return types.StoredRecord{}
}

func TestSync_PreservesUserStateAcrossRuns(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "sync", "--config", f.config)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Collected 2 offers from 1 source(s), 0 duplicates removed")
	assert.Contains(t, out, "Synced: 2 new, 0 updated, 0 errors")
	snapshots, _ := filepath.Glob(filepath.Join(f.outDir, "jobs_*.json"))
	assert.Len(t, snapshots, 1)

	seo := f.find(t, "SEO Specialist")
	out, err = execute(t, "status", "--config", f.config, seo.ID.String()[:8], "applied", "--priority", "3", "--notes", "call back")
	require.NoError(t, err, out)
	assert.Contains(t, out, "status=applied priority=3")
	assert.Contains(t, out, "status_change: discovered → applied")
	assert.Contains(t, out, "priority_change: 0 → 3")

	// the next sync updates source data only
	out, err = execute(t, "sync", "--config", f.config, "--no-export")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Synced: 0 new, 2 updated, 0 errors")

	seo = f.find(t, "SEO Specialist")
	assert.Equal(t, types.StatusApplied, seo.State.Status)
	assert.Equal(t, 3, seo.State.Priority)
	assert.Equal(t, "call back", seo.State.Notes)
	require.NotNil(t, seo.State.AppliedAt)
	assert.Len(t, f.stored(t), 2)
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	_, err := execute(t, "sync", "--config", f.config, "--no-export")
	require.NoError(t, err)

	out, err := execute(t, "list", "--config", f.config)
	require.NoError(t, err)
	assert.Contains(t, out, "STORED OFFERS (2)")

	out, err = execute(t, "list", "--config", f.config, "--search", "globex")
	require.NoError(t, err)
	assert.Contains(t, out, "STORED OFFERS (1)")
	assert.Contains(t, out, "Content Writer")

	out, err = execute(t, "list", "--config", f.config, "--status", "applied")
	require.NoError(t, err)
	assert.Contains(t, out, "NO OFFERS FOUND")

	_, err = execute(t, "list", "--config", f.config, "--min-tier", "Z")
	assert.ErrorContains(t, err, "invalid tier")

	_, err = execute(t, "list", "--config", f.config, "--status", "ghosted")
	assert.ErrorContains(t, err, "invalid status")
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	_, err := execute(t, "sync", "--config", f.config, "--no-export")
	require.NoError(t, err)

	out, err := execute(t, "stats", "--config", f.config)
	require.NoError(t, err)
	assert.Contains(t, out, "STORE STATISTICS")
	assert.Contains(t, out, "Total offers:      2")
	assert.Contains(t, out, "Discovered (7d):   2")
}

func TestCollect_ThenImportDryRun(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "collect", "--config", f.config, "--verbose")
	require.NoError(t, err, out)
	assert.Contains(t, out, "COLLECTION SUMMARY")
	assert.Contains(t, out, "[collect]")
	_, statErr := os.Stat(f.dbPath)
	assert.True(t, os.IsNotExist(statErr), "collect does not touch the store")

	snapshots, _ := filepath.Glob(filepath.Join(f.outDir, "jobs_*.json"))
	require.Len(t, snapshots, 1)

	out, err = execute(t, "import", "--config", f.config, "--file", snapshots[0], "--dry-run")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 2 offers: 2 new, 0 updated, 0 errors")
	_, statErr = os.Stat(f.dbPath)
	assert.True(t, os.IsNotExist(statErr), "dry run does not touch the store")
}

func TestImport_RejectsInvalidSnapshot(t *testing.T) {
	f := newFixture(t)
	bad := filepath.Join(f.dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"records": "nope"}`), 0644))

	_, err := execute(t, "import", "--config", f.config, "--file", bad, "--dry-run")
	assert.ErrorContains(t, err, "does not match schema")
}

func TestStatus_Errors(t *testing.T) {
	f := newFixture(t)
	_, err := execute(t, "sync", "--config", f.config, "--no-export")
	require.NoError(t, err)
	id := f.find(t, "Content Writer").ID.String()

	_, err = execute(t, "status", "--config", f.config, id, "ghosted")
	assert.ErrorContains(t, err, "invalid status")

	_, err = execute(t, "status", "--config", f.config, "00000000-0000-0000-0000-000000000000")
	assert.ErrorContains(t, err, "not found")

	_, err = execute(t, "status", "--config", f.config, "ab")
	assert.ErrorContains(t, err, "too short")

	out, err := execute(t, "status", "--config", f.config, id)
	require.NoError(t, err)
	assert.Contains(t, out, "status=discovered priority=0")
}

func TestSync_NoSourcesEnabled(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.config, []byte(`{"query": {"keywords": "seo"}, "sources": [{"type": "board", "disabled": true}]}`), 0644))

	_, err := execute(t, "sync", "--config", f.config)
	assert.ErrorIs(t, err, config.ErrNoSources)
}

func TestBuildSources(t *testing.T) {
	cfg := &config.Config{
		SourceTimeout: config.Duration(time.Minute),
		Sources: []config.SourceConfig{
			{Type: config.SourceAdzuna, AppID: "id", AppKey: "key", Timeout: config.Duration(10 * time.Second)},
			{Type: config.SourceBoard, Disabled: true},
			{Type: config.SourceBoard, SearchURL: "https://www.indeed.com/jobs?q={keywords}"},
			{Type: config.SourceJSONFile, Pattern: "exports/*.json"},
		},
	}

	sources := buildSources(cfg, nil)
	require.Len(t, sources, 3)

	assert.Equal(t, "adzuna", sources[0].Connector.Name())
	assert.Equal(t, 10*time.Second, sources[0].Timeout)

	assert.Equal(t, types.PlatformIndeed, sources[1].Connector.Platform())
	assert.Equal(t, time.Minute, sources[1].Timeout)

	assert.Equal(t, types.PlatformLinkedIn, sources[2].Connector.Platform())
	assert.Equal(t, types.PlatformLinkedIn, sources[2].Connector.Name())
}

func TestLoadConfig_DefaultWithoutPath(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Len(t, cfg.EnabledSources(), 1)
	assert.Equal(t, config.SourceBoard, cfg.Sources[0].Type)
}
