// Package normalize converts heterogeneous raw source records into canonical
// JobRecords.
//
// Normalizers are pure given their input and the injected clock: they do no
// I/O and never panic on unexpected shapes. The only failure is a record whose
// title and company are both unrecoverable.
package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/job-aggregator/internal/raw"
	"github.com/jonathan/job-aggregator/internal/types"
)

// Normalizer maps one source's raw records into the canonical model.
type Normalizer interface {
	Normalize(rec raw.Record, platform string) (*types.JobRecord, error)
}

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// NormalizationError reports a raw record that could not be mapped.
type NormalizationError struct {
	Platform string `json:"platform"`
	Index    int    `json:"index"`
	RawRef   string `json:"raw_ref"`
	Message  string `json:"message"`
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization error for %s record %d (%s): %s", e.Platform, e.Index, e.RawRef, e.Message)
}

// Registry dispatches to a per-platform normalizer, falling back to the
// generic flat-record normalizer for unknown platforms.
type Registry struct {
	byPlatform map[string]Normalizer
	fallback   Normalizer
}

// NewRegistry returns a registry with the built-in normalizers.
func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = time.Now
	}
	b := base{clock: clock}
	return &Registry{
		byPlatform: map[string]Normalizer{
			types.PlatformLinkedIn:           &LinkedIn{base: b},
			types.PlatformWelcomeToTheJungle: &WelcomeToTheJungle{base: b},
			types.PlatformAdzuna:             &Adzuna{base: b},
		},
		fallback: &Generic{base: b},
	}
}

// Register installs or replaces the normalizer for a platform.
func (r *Registry) Register(platform string, n Normalizer) {
	r.byPlatform[platform] = n
}

// Normalize maps rec using the normalizer registered for platform.
func (r *Registry) Normalize(rec raw.Record, platform string) (*types.JobRecord, error) {
	if n, ok := r.byPlatform[platform]; ok {
		return n.Normalize(rec, platform)
	}
	return r.fallback.Normalize(rec, platform)
}

// base carries the state shared by all built-in normalizers.
type base struct {
	clock Clock
}

func (b base) now() time.Time {
	if b.clock == nil {
		return time.Now().UTC()
	}
	return b.clock().UTC()
}

// draft is the source-agnostic intermediate every normalizer fills in.
type draft struct {
	ids            IDCandidates
	title          string
	company        string
	companyURL     string
	sourceURL      string
	applicationURL string
	location       string
	description    string
	salary         string
	remoteFlag     bool
	workModeLabel  string
	jobTypeLabel   string
	postedAt       *time.Time
}

func (b base) build(platform string, rec raw.Record, d draft) (*types.JobRecord, error) {
	title := strings.TrimSpace(d.title)
	company := strings.TrimSpace(d.company)
	if title == "" && company == "" {
		return nil, &NormalizationError{
			Platform: platform,
			RawRef:   rawReference(rec),
			Message:  "title and company name are both missing",
		}
	}
	if title == "" {
		title = types.PlaceholderTitle
	}
	if company == "" {
		company = types.PlaceholderCompany
	}

	now := b.now()
	if d.ids.URL == "" {
		d.ids.URL = d.sourceURL
	}
	sourceID, unstable := ResolveSourceID(d.ids, now)

	description := CleanText(d.description)
	location := strings.TrimSpace(d.location)

	applicationURL := strings.TrimSpace(d.applicationURL)
	if applicationURL == "" {
		applicationURL = strings.TrimSpace(d.sourceURL)
	}

	return &types.JobRecord{
		SourcePlatform: platform,
		SourceID:       sourceID,
		SourceURL:      strings.TrimSpace(d.sourceURL),
		Title:          title,
		CompanyName:    company,
		CompanyURL:     strings.TrimSpace(d.companyURL),
		Location:       location,
		Description:    description,
		WorkMode: InferWorkMode(WorkModeSignal{
			RemoteFlag:  d.remoteFlag,
			Label:       d.workModeLabel,
			Title:       title,
			Description: description,
			Location:    location,
		}),
		JobType:        types.ParseJobType(d.jobTypeLabel),
		ApplicationURL: applicationURL,
		SalaryInfo:     strings.TrimSpace(d.salary),
		PostedAt:       d.postedAt,
		DiscoveredAt:   now,
		UnstableID:     unstable,
	}, nil
}

// rawReference produces a short pointer back to the raw input for error reports.
func rawReference(rec raw.Record) string {
	ref := rec.FirstString(
		raw.P("source_url"), raw.P("url"), raw.P("redirect_url"),
		raw.P("enhanced_info", "source_url"),
		raw.P("detailed_info", "jobPostingId"), raw.P("basic_info", "entityUrn"),
		raw.P("source_id"), raw.P("id"), raw.P("reference"), raw.P("slug"),
	)
	if ref != "" {
		return ref
	}
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "keys=[" + strings.Join(keys, ",") + "]"
}
