// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/job-aggregator/internal/db"
	"github.com/jonathan/job-aggregator/internal/pipeline"
	"github.com/jonathan/job-aggregator/internal/syncer"
	"github.com/jonathan/job-aggregator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// PrintAggregation outputs the per-source counts and errors of a collection run.
func (p *Printer) PrintAggregation(result *pipeline.AggregationResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Collected:   %d\n", result.TotalBeforeDedup()))
	sb.WriteString(fmt.Sprintf("Duplicates:  %d\n", result.DuplicatesRemoved))
	sb.WriteString(fmt.Sprintf("Kept:        %d\n", len(result.Records)))
	if result.UnstableIdentities > 0 {
		sb.WriteString(fmt.Sprintf("Unstable:    %d\n", result.UnstableIdentities))
	}
	sb.WriteString(fmt.Sprintf("Duration:    %s\n", result.Duration.Round(1e6)))
	sb.WriteString("\n")

	sb.WriteString("Sources:\n")
	for _, name := range result.Sources {
		sb.WriteString(fmt.Sprintf("  • %-20s %d\n", name, result.PerSource[name]))
	}

	if len(result.SourceErrors) > 0 {
		sb.WriteString("\nFailed sources:\n")
		for _, e := range result.SourceErrors {
			mark := "⚠"
			if e.TimedOut {
				mark = "⏱"
			}
			sb.WriteString(fmt.Sprintf("  %s %s: %s\n", mark, e.Source, e.Message))
		}
	}
	if n := len(result.NormalizationErrors); n > 0 {
		sb.WriteString(fmt.Sprintf("\nNormalization errors: %d\n", n))
	}

	p.printBox("COLLECTION SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTopRecords outputs the highest scoring records.
func (p *Printer) PrintTopRecords(records []types.JobRecord) {
	if len(records) == 0 {
		return
	}

	ranked := make([]types.JobRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})

	var sb strings.Builder
	count := min(len(ranked), maxItemsToShow)
	for i := 0; i < count; i++ {
		rec := ranked[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, rec.Title))
		sb.WriteString(fmt.Sprintf("    %s · %s\n", rec.CompanyName, rec.SourcePlatform))
		if rec.Relevance != nil {
			sb.WriteString(fmt.Sprintf("    Score: %d (tier %s)\n", rec.Relevance.Score, rec.Relevance.Tier))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(ranked) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more offers", len(ranked)-maxItemsToShow))
	}

	p.printBox("TOP RELEVANT OFFERS", strings.TrimSuffix(sb.String(), "\n"))
}

func score(rec types.JobRecord) int {
	if rec.Relevance == nil {
		return -1 << 31
	}
	return rec.Relevance.Score
}

// PrintSyncStats outputs the counters of an upsert run.
func (p *Printer) PrintSyncStats(stats *syncer.Stats) {
	if stats == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Processed:   %d\n", stats.Total))
	sb.WriteString(fmt.Sprintf("New:         %d\n", stats.New))
	sb.WriteString(fmt.Sprintf("Updated:     %d\n", stats.Updated))
	sb.WriteString(fmt.Sprintf("Errors:      %d\n", stats.Errors))
	if stats.Unstable > 0 {
		sb.WriteString(fmt.Sprintf("Unstable:    %d\n", stats.Unstable))
	}

	if len(stats.Failures) > 0 {
		sb.WriteString("\n")
		count := min(len(stats.Failures), maxItemsToShow)
		for i := 0; i < count; i++ {
			f := stats.Failures[i]
			sb.WriteString(fmt.Sprintf("⚠ %s/%s\n", f.SourcePlatform, f.SourceID))
			sb.WriteString(fmt.Sprintf("  %s: %s\n", f.Op, f.Message))
		}
		if len(stats.Failures) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more failures\n", len(stats.Failures)-maxItemsToShow))
		}
	}

	p.printBox("SYNC RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStoreStats outputs the store breakdown by status, tier and platform.
func (p *Printer) PrintStoreStats(stats *db.Stats) {
	if stats == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total offers:      %d\n", stats.Total))
	sb.WriteString(fmt.Sprintf("Discovered (7d):   %d\n", stats.DiscoveredRecently))

	sb.WriteString("\nBy status:\n")
	for _, st := range types.AllStatuses {
		if n := stats.ByStatus[st]; n > 0 {
			sb.WriteString(fmt.Sprintf("  • %-12s %d\n", st, n))
		}
	}

	if len(stats.ByTier) > 0 {
		sb.WriteString("\nBy tier:\n")
		for _, tier := range sortedKeys(stats.ByTier) {
			sb.WriteString(fmt.Sprintf("  • %-12s %d\n", tier, stats.ByTier[tier]))
		}
	}

	if len(stats.ByPlatform) > 0 {
		sb.WriteString("\nBy platform:\n")
		for _, platform := range sortedKeys(stats.ByPlatform) {
			sb.WriteString(fmt.Sprintf("  • %-18s %d\n", platform, stats.ByPlatform[platform]))
		}
	}

	p.printBox("STORE STATISTICS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStoredRecords outputs a listing of stored offers.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintStoredRecords(records []types.StoredRecord) {
	if len(records) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO OFFERS FOUND")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	for i, rec := range records {
		tier := "-"
		if rec.Record.Relevance != nil {
			tier = string(rec.Record.Relevance.Tier)
		}
		sb.WriteString(fmt.Sprintf("[%s] %s\n", tier, rec.Record.Title))
		sb.WriteString(fmt.Sprintf("    %s · %s\n", rec.Record.CompanyName, rec.Record.SourcePlatform))
		sb.WriteString(fmt.Sprintf("    %s  status=%s priority=%d\n", rec.ID.String()[:8], rec.State.Status, rec.State.Priority))
		if i < len(records)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(fmt.Sprintf("STORED OFFERS (%d)", len(records)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAudit outputs the history of a stored offer.
func (p *Printer) PrintAudit(entries []types.AuditEntry) {
	if len(entries) == 0 {
		return
	}

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s  %s: %s → %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.ActionType, e.OldValue, e.NewValue))
	}

	p.printBox("HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}
