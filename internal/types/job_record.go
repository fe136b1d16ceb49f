// Package types defines the canonical data model shared by every pipeline stage.
package types

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Placeholders substituted for a missing title or company name.
const (
	PlaceholderTitle   = "Untitled position"
	PlaceholderCompany = "Unknown company"
)

// Known source platforms. The set is open; connectors may report any identifier.
const (
	PlatformLinkedIn           = "linkedin"
	PlatformWelcomeToTheJungle = "welcometothejungle"
	PlatformIndeed             = "indeed"
	PlatformGlassdoor          = "glassdoor"
	PlatformAdzuna             = "adzuna"
)

// WorkMode is where the work happens.
type WorkMode string

const (
	WorkModeRemote  WorkMode = "remote"
	WorkModeHybrid  WorkMode = "hybrid"
	WorkModeOnSite  WorkMode = "on-site"
	WorkModeUnknown WorkMode = "unknown"
)

// Valid reports whether m is one of the four canonical work modes.
func (m WorkMode) Valid() bool {
	switch m {
	case WorkModeRemote, WorkModeHybrid, WorkModeOnSite, WorkModeUnknown:
		return true
	}
	return false
}

// ParseWorkMode maps a source-specific label onto a canonical work mode.
// The second return value is false when the label carries no signal.
func ParseWorkMode(label string) (WorkMode, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "remote", "full remote", "fully remote", "fulltime", "full_time_remote", "télétravail", "teletravail", "distanciel":
		return WorkModeRemote, true
	case "hybrid", "hybride", "partial", "punctual", "mixte":
		return WorkModeHybrid, true
	case "on-site", "onsite", "on_site", "on site", "sur site", "présentiel", "presentiel", "office", "no":
		return WorkModeOnSite, true
	}
	return WorkModeUnknown, false
}

// JobType is the employment arrangement.
type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeFreelance  JobType = "freelance"
)

var jobTypeAliases = map[string]JobType{
	"full-time":      JobTypeFullTime,
	"full_time":      JobTypeFullTime,
	"fulltime":       JobTypeFullTime,
	"full time":      JobTypeFullTime,
	"permanent":      JobTypeFullTime,
	"cdi":            JobTypeFullTime,
	"part-time":      JobTypePartTime,
	"part_time":      JobTypePartTime,
	"parttime":       JobTypePartTime,
	"part time":      JobTypePartTime,
	"temps partiel":  JobTypePartTime,
	"contract":       JobTypeContract,
	"contractor":     JobTypeContract,
	"temporary":      JobTypeContract,
	"cdd":            JobTypeContract,
	"interim":        JobTypeContract,
	"internship":     JobTypeInternship,
	"intern":         JobTypeInternship,
	"stage":          JobTypeInternship,
	"apprenticeship": JobTypeInternship,
	"alternance":     JobTypeInternship,
	"freelance":      JobTypeFreelance,
	"freelancer":     JobTypeFreelance,
	"independent":    JobTypeFreelance,
	"self-employed":  JobTypeFreelance,
}

// ParseJobType normalizes a source label. Unknown or empty input yields full-time.
func ParseJobType(label string) JobType {
	if jt, ok := jobTypeAliases[strings.ToLower(strings.TrimSpace(label))]; ok {
		return jt
	}
	return JobTypeFullTime
}

// JobRecord is one job posting, independent of where it was found.
// (SourcePlatform, SourceID) is its global identity.
type JobRecord struct {
	SourcePlatform string     `json:"source_platform" validate:"required"`
	SourceID       string     `json:"source_id" validate:"required"`
	SourceURL      string     `json:"source_url,omitempty"`
	Title          string     `json:"title" validate:"required"`
	CompanyName    string     `json:"company_name" validate:"required"`
	CompanyURL     string     `json:"company_url,omitempty"`
	Location       string     `json:"location,omitempty"`
	Description    string     `json:"description,omitempty"`
	WorkMode       WorkMode   `json:"work_mode" validate:"oneof=remote hybrid on-site unknown"`
	JobType        JobType    `json:"job_type" validate:"oneof=full-time part-time contract internship freelance"`
	ApplicationURL string     `json:"application_url,omitempty"`
	SalaryInfo     string     `json:"salary_info,omitempty"`
	PostedAt       *time.Time `json:"posted_at,omitempty"`
	DiscoveredAt   time.Time  `json:"discovered_at"`

	// UnstableID is set when SourceID came from the timestamp fallback and
	// cannot be matched against an earlier sync.
	UnstableID bool `json:"unstable_id,omitempty"`

	// Notes is an optional producer note. The sync engine only writes it into
	// a stored record whose notes are empty.
	Notes string `json:"notes,omitempty"`

	Relevance *RelevanceAnnotation `json:"relevance,omitempty"`
}

// Validate checks the fields the store relies on.
func (r *JobRecord) Validate() error {
	return validate.Struct(r)
}

// IdentityKey returns the persistence identity of the record.
func (r *JobRecord) IdentityKey() string {
	return r.SourcePlatform + "\x00" + r.SourceID
}

// DedupKey returns the cross-source duplicate key: lower-cased, trimmed title and company.
func (r *JobRecord) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(r.Title)) + "|" + strings.ToLower(strings.TrimSpace(r.CompanyName))
}
