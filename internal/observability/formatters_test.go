package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/job-aggregator/internal/db"
	"github.com/jonathan/job-aggregator/internal/pipeline"
	"github.com/jonathan/job-aggregator/internal/syncer"
	"github.com/jonathan/job-aggregator/internal/types"
)

func scored(title, company, platform string, score int, tier types.Tier) types.JobRecord {
	return types.JobRecord{
		Title:          title,
		CompanyName:    company,
		SourcePlatform: platform,
		Relevance:      &types.RelevanceAnnotation{Score: score, Tier: tier},
	}
}

func TestPrintAggregation(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &pipeline.AggregationResult{
		Records:           []types.JobRecord{scored("SEO Specialist", "Acme", "indeed", 12, types.TierB)},
		Sources:           []string{"indeed", "glassdoor"},
		PerSource:         map[string]int{"indeed": 2, "glassdoor": 0},
		DuplicatesRemoved: 1,
		SourceErrors: []*pipeline.AcquisitionError{
			{Source: "glassdoor", Message: "timed out", TimedOut: true},
		},
		Duration: 1500 * time.Millisecond,
	}

	p.PrintAggregation(result)
	output := buf.String()

	assert.Contains(t, output, "COLLECTION SUMMARY")
	assert.Contains(t, output, "Collected:   2")
	assert.Contains(t, output, "Duplicates:  1")
	assert.Contains(t, output, "Kept:        1")
	assert.Contains(t, output, "Failed sources:")
	assert.Contains(t, output, "glassdoor: timed out")
	assert.Contains(t, output, "1.5s")
}

func TestPrintAggregation_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintAggregation(nil)
	assert.Empty(t, buf.String())
}

func TestPrintTopRecords(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	records := []types.JobRecord{
		scored("Content Writer", "Globex", "indeed", 2, types.TierD),
		{Title: "Unscored", CompanyName: "Initech", SourcePlatform: "indeed"},
		scored("SEO Lead", "Acme", "linkedin", 21, types.TierA),
	}
	for i := 0; i < 5; i++ {
		records = append(records, scored("Filler", "Co", "adzuna", 1, types.TierD))
	}

	p.PrintTopRecords(records)
	output := buf.String()

	assert.Contains(t, output, "TOP RELEVANT OFFERS")
	assert.Contains(t, output, "#1  SEO Lead")
	assert.Contains(t, output, "Score: 21 (tier A)")
	assert.Contains(t, output, "... and 3 more offers")
	assert.NotContains(t, output, "Unscored")
	assert.Less(t, strings.Index(output, "SEO Lead"), strings.Index(output, "Content Writer"))
	assert.Equal(t, "Content Writer", records[0].Title, "input order is kept")
}

func TestPrintSyncStats(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	stats := &syncer.Stats{
		Total: 3, New: 1, Updated: 1, Errors: 1,
		Failures: []*syncer.SyncError{{SourcePlatform: "indeed", SourceID: "42", Op: "insert", Message: "disk full"}},
	}

	p.PrintSyncStats(stats)
	output := buf.String()

	assert.Contains(t, output, "SYNC RESULT")
	assert.Contains(t, output, "New:         1")
	assert.Contains(t, output, "Errors:      1")
	assert.Contains(t, output, "indeed/42")
	assert.Contains(t, output, "insert: disk full")
}

func TestPrintStoreStats(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	stats := &db.Stats{
		Total:              4,
		ByStatus:           map[types.Status]int{types.StatusDiscovered: 3, types.StatusApplied: 1},
		ByPlatform:         map[string]int{"indeed": 3, "adzuna": 1},
		ByTier:             map[types.Tier]int{types.TierA: 1, types.TierC: 3},
		DiscoveredRecently: 2,
	}

	p.PrintStoreStats(stats)
	output := buf.String()

	assert.Contains(t, output, "STORE STATISTICS")
	assert.Contains(t, output, "Total offers:      4")
	assert.Contains(t, output, "discovered")
	assert.NotContains(t, output, "interview")
	assert.Less(t, strings.Index(output, "adzuna"), strings.Index(output, "indeed"))
}

func TestPrintStoredRecords(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	id := uuid.MustParse("0c1f8a2e-5b7d-4c3a-9e21-7f6d5c4b3a29")
	p.PrintStoredRecords([]types.StoredRecord{{
		ID:     id,
		Record: scored("SEO Specialist", "Acme", "indeed", 9, types.TierB),
		State:  types.UserState{Status: types.StatusInterested, Priority: 2},
	}})
	output := buf.String()

	assert.Contains(t, output, "STORED OFFERS (1)")
	assert.Contains(t, output, "[B] SEO Specialist")
	assert.Contains(t, output, "0c1f8a2e")
	assert.Contains(t, output, "status=interested priority=2")
}

func TestPrintStoredRecords_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintStoredRecords(nil)
	assert.Contains(t, buf.String(), "NO OFFERS FOUND")
}

func TestPrintAudit(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintAudit([]types.AuditEntry{{
		ActionType: types.ActionStatusChange,
		OldValue:   "discovered",
		NewValue:   "applied",
		CreatedAt:  time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}})
	output := buf.String()

	assert.Contains(t, output, "HISTORY")
	assert.Contains(t, output, "2025-03-14 09:30  status_change: discovered → applied")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.printBox("TITLE", strings.Repeat("x", 200))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)))
	}
	assert.Contains(t, buf.String(), "...")
}
