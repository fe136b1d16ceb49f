package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-aggregator/internal/types"
)

// Store is the persistence surface shared by every backend. Find methods
// return (nil, nil) when no row matches.
type Store interface {
	FindByIdentity(ctx context.Context, platform, sourceID string) (*types.StoredRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*types.StoredRecord, error)
	Insert(ctx context.Context, rec *types.StoredRecord) error
	// UpdatePosting rewrites the posting columns of a row. The user state is
	// never written; notes are filled only while the stored ones are empty.
	UpdatePosting(ctx context.Context, id uuid.UUID, rec types.JobRecord, updatedAt time.Time) error
	// UpdateState rewrites the user-owned columns of a row.
	UpdateState(ctx context.Context, id uuid.UUID, state types.UserState, updatedAt time.Time) error
	AppendAudit(ctx context.Context, entry *types.AuditEntry) error
	ListAudit(ctx context.Context, recordID uuid.UUID) ([]types.AuditEntry, error)
	List(ctx context.Context, filter ListFilter) ([]types.StoredRecord, error)
	Stats(ctx context.Context, now time.Time) (*Stats, error)
	Close()
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Status   types.Status
	Platform string
	// MinTier keeps records at or above this tier.
	MinTier types.Tier
	// Search is matched case-insensitively against title, company and description.
	Search string
	Limit  int
}

// RecentWindow is the span counted by Stats.DiscoveredRecently.
const RecentWindow = 7 * 24 * time.Hour

// Stats is the dashboard summary of stored records.
type Stats struct {
	Total              int                  `json:"total"`
	ByStatus           map[types.Status]int `json:"by_status"`
	ByPlatform         map[string]int       `json:"by_platform"`
	ByTier             map[types.Tier]int   `json:"by_tier"`
	DiscoveredRecently int                  `json:"discovered_recently"`
}

func newStats() *Stats {
	return &Stats{
		ByStatus:   make(map[types.Status]int),
		ByPlatform: make(map[string]int),
		ByTier:     make(map[types.Tier]int),
	}
}

// tiersAtLeast lists the tiers ranked at or above floor.
func tiersAtLeast(floor types.Tier) []string {
	var out []string
	for _, t := range []types.Tier{types.TierA, types.TierB, types.TierC, types.TierD, types.TierE} {
		if t.Rank() >= floor.Rank() {
			out = append(out, string(t))
		}
	}
	return out
}

// Open connects to the backend named by driver: "postgres", "sqlite" or "memory".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "":
		if dsn == "" {
			return nil, fmt.Errorf("postgres store requires a database URL")
		}
		return Connect(ctx, dsn)
	case "sqlite", "sqlite3":
		return OpenSQLite(ctx, dsn)
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

// relevanceColumns splits an annotation into the stored score, tier and
// JSON columns. A nil annotation stores NULLs.
func relevanceColumns(ann *types.RelevanceAnnotation) (score *int, tier *string, data []byte, err error) {
	if ann == nil {
		return nil, nil, nil, nil
	}
	data, err = json.Marshal(ann)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal relevance: %w", err)
	}
	s, t := ann.Score, string(ann.Tier)
	return &s, &t, data, nil
}

func parseRelevance(data []byte) *types.RelevanceAnnotation {
	if len(data) == 0 {
		return nil
	}
	var ann types.RelevanceAnnotation
	if err := json.Unmarshal(data, &ann); err != nil {
		return nil
	}
	return &ann
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*SQLite)(nil)
	_ Store = (*MemoryStore)(nil)
)
