package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the user-owned lifecycle tag of a stored record.
type Status string

const (
	StatusDiscovered Status = "discovered"
	StatusInterested Status = "interested"
	StatusApplied    Status = "applied"
	StatusInterview  Status = "interview"
	StatusRejected   Status = "rejected"
	StatusAccepted   Status = "accepted"
)

// AllStatuses lists the statuses in lifecycle order.
var AllStatuses = []Status{
	StatusDiscovered,
	StatusInterested,
	StatusApplied,
	StatusInterview,
	StatusRejected,
	StatusAccepted,
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// IsAppliedTier reports whether the status means an application was sent.
func (s Status) IsAppliedTier() bool {
	return s == StatusApplied || s == StatusInterview || s == StatusAccepted
}

// UserState holds the fields owned by the user rather than by connectors.
type UserState struct {
	Status    Status     `json:"status"`
	Priority  int        `json:"priority"`
	Notes     string     `json:"notes,omitempty"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// StoredRecord is a persisted JobRecord with its user overlay.
type StoredRecord struct {
	ID        uuid.UUID `json:"id"`
	Record    JobRecord `json:"record"`
	State     UserState `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyPosting overwrites the posting fields with fresh and leaves the user
// state alone. Identity and the first discovery time are kept. Notes from
// fresh only land when the stored notes are empty.
func (s *StoredRecord) ApplyPosting(fresh JobRecord, now time.Time) {
	platform, sourceID, discovered := s.Record.SourcePlatform, s.Record.SourceID, s.Record.DiscoveredAt
	s.Record = fresh
	s.Record.SourcePlatform, s.Record.SourceID = platform, sourceID
	s.Record.Notes = ""
	if !discovered.IsZero() {
		s.Record.DiscoveredAt = discovered
	}
	if s.State.Notes == "" && fresh.Notes != "" {
		s.State.Notes = fresh.Notes
	}
	s.UpdatedAt = now
}

// ApplyState replaces the user state and leaves the posting alone.
func (s *StoredRecord) ApplyState(state UserState, now time.Time) {
	s.State = state
	s.UpdatedAt = now
}

// Audit action types.
const (
	ActionStatusChange   = "status_change"
	ActionPriorityChange = "priority_change"
)

// AuditEntry is one traceability row attached to a stored record.
type AuditEntry struct {
	ID         uuid.UUID `json:"id"`
	RecordID   uuid.UUID `json:"record_id"`
	ActionType string    `json:"action_type"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	CreatedAt  time.Time `json:"created_at"`
}
