package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-aggregator/internal/types"
)

// MemoryStore keeps everything in process. It backs dry runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]types.StoredRecord
	identity map[string]uuid.UUID
	actions  map[uuid.UUID][]types.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[uuid.UUID]types.StoredRecord),
		identity: make(map[string]uuid.UUID),
		actions:  make(map[uuid.UUID][]types.AuditEntry),
	}
}

func (m *MemoryStore) Close() {}

func (m *MemoryStore) FindByIdentity(_ context.Context, platform, sourceID string) (*types.StoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.identity[platform+"\x00"+sourceID]
	if !ok {
		return nil, nil
	}
	rec := m.byID[id]
	return &rec, nil
}

func (m *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*types.StoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) Insert(_ context.Context, rec *types.StoredRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.Record.IdentityKey()
	if _, ok := m.identity[key]; ok {
		return fmt.Errorf("job offer %s/%s already exists", rec.Record.SourcePlatform, rec.Record.SourceID)
	}
	if _, ok := m.byID[rec.ID]; ok {
		return fmt.Errorf("job offer %s already exists", rec.ID)
	}
	m.byID[rec.ID] = *rec
	m.identity[key] = rec.ID
	return nil
}

func (m *MemoryStore) UpdatePosting(_ context.Context, id uuid.UUID, rec types.JobRecord, updatedAt time.Time) error {
	return m.modify(id, func(s *types.StoredRecord) { s.ApplyPosting(rec, updatedAt) })
}

func (m *MemoryStore) UpdateState(_ context.Context, id uuid.UUID, state types.UserState, updatedAt time.Time) error {
	return m.modify(id, func(s *types.StoredRecord) { s.ApplyState(state, updatedAt) })
}

func (m *MemoryStore) modify(id uuid.UUID, fn func(*types.StoredRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("job offer %s not found", id)
	}
	fn(&rec)
	m.byID[id] = rec
	return nil
}

func (m *MemoryStore) AppendAudit(_ context.Context, entry *types.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[entry.RecordID]; !ok {
		return fmt.Errorf("job offer %s not found", entry.RecordID)
	}
	m.actions[entry.RecordID] = append(m.actions[entry.RecordID], *entry)
	return nil
}

func (m *MemoryStore) ListAudit(_ context.Context, recordID uuid.UUID) ([]types.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.AuditEntry(nil), m.actions[recordID]...), nil
}

func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]types.StoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var allowed map[string]bool
	if f.MinTier != "" {
		allowed = make(map[string]bool)
		for _, t := range tiersAtLeast(f.MinTier) {
			allowed[t] = true
		}
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var out []types.StoredRecord
	for _, rec := range m.byID {
		if f.Status != "" && rec.State.Status != f.Status {
			continue
		}
		if f.Platform != "" && rec.Record.SourcePlatform != f.Platform {
			continue
		}
		if allowed != nil && (rec.Record.Relevance == nil || !allowed[string(rec.Record.Relevance.Tier)]) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(rec.Record.Title), search) &&
			!strings.Contains(strings.ToLower(rec.Record.CompanyName), search) &&
			!strings.Contains(strings.ToLower(rec.Record.Description), search) {
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.State.Priority != b.State.Priority {
			return a.State.Priority > b.State.Priority
		}
		if !a.Record.DiscoveredAt.Equal(b.Record.DiscoveredAt) {
			return a.Record.DiscoveredAt.After(b.Record.DiscoveredAt)
		}
		return a.ID.String() < b.ID.String()
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Stats(_ context.Context, now time.Time) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := newStats()
	since := now.Add(-RecentWindow)
	for _, rec := range m.byID {
		stats.Total++
		stats.ByStatus[rec.State.Status]++
		stats.ByPlatform[rec.Record.SourcePlatform]++
		if rec.Record.Relevance != nil {
			stats.ByTier[rec.Record.Relevance.Tier]++
		}
		if !rec.Record.DiscoveredAt.Before(since) {
			stats.DiscoveredRecently++
		}
	}
	return stats, nil
}
