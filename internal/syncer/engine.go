// Package syncer upserts canonical records into a store while keeping the
// fields a user owns (status, priority, notes) intact.
package syncer

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-aggregator/internal/events"
	"github.com/jonathan/job-aggregator/internal/logging"
	"github.com/jonathan/job-aggregator/internal/types"
)

// DefaultConcurrency is the number of identities upserted in parallel.
const DefaultConcurrency = 4

// Store is the persistence surface the engine needs. Find methods return
// (nil, nil) when nothing matches.
type Store interface {
	FindByIdentity(ctx context.Context, platform, sourceID string) (*types.StoredRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*types.StoredRecord, error)
	Insert(ctx context.Context, rec *types.StoredRecord) error
	UpdatePosting(ctx context.Context, id uuid.UUID, rec types.JobRecord, updatedAt time.Time) error
	UpdateState(ctx context.Context, id uuid.UUID, state types.UserState, updatedAt time.Time) error
	AppendAudit(ctx context.Context, entry *types.AuditEntry) error
}

// Options configures an Engine.
type Options struct {
	Concurrency int
	Logger      *logging.Logger
	Publisher   events.Publisher
	Clock       func() time.Time
}

// Stats summarizes one Upsert call.
type Stats struct {
	Total    int          `json:"total"`
	New      int          `json:"new"`
	Updated  int          `json:"updated"`
	Errors   int          `json:"errors"`
	Unstable int          `json:"unstable"`
	Failures []*SyncError `json:"failures,omitempty"`
}

// Engine applies upserts and user-state changes.
type Engine struct {
	store     Store
	logger    *logging.Logger
	publisher events.Publisher
	clock     func() time.Time
	workers   int
	locks     *keyedMutex
}

// New builds an engine over store.
func New(store Store, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	return &Engine{
		store:     store,
		logger:    logging.OrNop(opts.Logger),
		publisher: opts.Publisher,
		clock:     opts.Clock,
		workers:   opts.Concurrency,
		locks:     newKeyedMutex(),
	}
}

type indexed struct {
	index int
	rec   types.JobRecord
}

// Upsert inserts unseen identities and merges known ones. Records sharing an
// identity are applied in input order by a single worker; distinct
// identities run in parallel. Per-record failures are counted in the stats.
// The returned error is non-nil only when ctx ends before the batch does.
func (e *Engine) Upsert(ctx context.Context, records []types.JobRecord) (*Stats, error) {
	stats := &Stats{Total: len(records)}

	var order []string
	groups := make(map[string][]indexed)
	for i, rec := range records {
		key := rec.IdentityKey()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], indexed{index: i, rec: rec})
		if rec.UnstableID {
			stats.Unstable++
		}
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, key := range order {
		group := groups[key]
		g.Go(func() error {
			unlock := e.locks.Lock(key)
			defer unlock()
			for _, item := range group {
				created, serr := e.upsertOne(ctx, item)
				mu.Lock()
				switch {
				case serr != nil:
					stats.Errors++
					stats.Failures = append(stats.Failures, serr)
				case created:
					stats.New++
				default:
					stats.Updated++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(stats.Failures, func(i, j int) bool { return stats.Failures[i].Index < stats.Failures[j].Index })
	for _, f := range stats.Failures {
		e.logger.Warn("record not synced", "index", f.Index, "source", f.SourcePlatform, "source_id", f.SourceID, "op", f.Op, "error", f.Message)
	}
	e.logger.Info("sync completed", "total", stats.Total, "new", stats.New, "updated", stats.Updated, "errors", stats.Errors, "unstable", stats.Unstable)

	e.publish(ctx, events.ChannelSyncCompleted, events.SyncCompleted{
		Total:       stats.Total,
		New:         stats.New,
		Updated:     stats.Updated,
		Errors:      stats.Errors,
		Unstable:    stats.Unstable,
		CompletedAt: e.clock().UTC(),
	})
	return stats, ctx.Err()
}

func (e *Engine) upsertOne(ctx context.Context, item indexed) (bool, *SyncError) {
	rec := item.rec
	fail := func(op string, err error) *SyncError {
		return &SyncError{
			Index:          item.index,
			SourcePlatform: rec.SourcePlatform,
			SourceID:       rec.SourceID,
			Op:             op,
			Message:        err.Error(),
			Cause:          err,
		}
	}

	if err := ctx.Err(); err != nil {
		return false, fail("cancelled", err)
	}
	if err := rec.Validate(); err != nil {
		return false, fail("validate", err)
	}

	existing, err := e.store.FindByIdentity(ctx, rec.SourcePlatform, rec.SourceID)
	if err != nil {
		return false, fail("find", err)
	}

	now := e.clock().UTC()
	if existing == nil {
		if err := e.store.Insert(ctx, NewStored(rec, now)); err != nil {
			return false, fail("insert", err)
		}
		return true, nil
	}

	// Only the posting is written back. The state read above may already be
	// stale if another process edited the row.
	if err := e.store.UpdatePosting(ctx, existing.ID, rec, now); err != nil {
		return false, fail("update", err)
	}
	return false, nil
}

// NewStored wraps a fresh record with the initial user state.
func NewStored(rec types.JobRecord, now time.Time) *types.StoredRecord {
	stored := &types.StoredRecord{
		ID:     uuid.New(),
		Record: rec,
		State: types.UserState{
			Status:   types.StatusDiscovered,
			Priority: 0,
			Notes:    rec.Notes,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	stored.Record.Notes = ""
	if stored.Record.DiscoveredAt.IsZero() {
		stored.Record.DiscoveredAt = now
	}
	return stored
}

// Patch is a user edit. Nil fields are left alone.
type Patch struct {
	Status   *types.Status
	Priority *int
	Notes    *string
}

// SetStatus moves a stored record to status.
func (e *Engine) SetStatus(ctx context.Context, id uuid.UUID, status types.Status) (*types.StoredRecord, error) {
	return e.Annotate(ctx, id, Patch{Status: &status})
}

// Annotate applies a user edit, writing an audit entry for every status or
// priority change. The first move into the applied tier stamps AppliedAt.
//
// When the edit is stored but some audit entries are not, the updated record
// is returned together with an *AuditError.
func (e *Engine) Annotate(ctx context.Context, id uuid.UUID, patch Patch) (*types.StoredRecord, error) {
	if patch.Status != nil {
		status, err := types.ParseStatus(string(*patch.Status))
		if err != nil {
			return nil, err
		}
		patch.Status = &status
	}

	current, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	unlock := e.locks.Lock(current.Record.IdentityKey())
	defer unlock()

	// Re-read under the identity lock so a concurrent upsert is not lost.
	current, err = e.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	now := e.clock().UTC()
	updated := *current
	var audit []*types.AuditEntry

	if patch.Status != nil && *patch.Status != current.State.Status {
		updated.State.Status = *patch.Status
		if updated.State.Status.IsAppliedTier() && updated.State.AppliedAt == nil {
			applied := now
			updated.State.AppliedAt = &applied
		}
		audit = append(audit, e.auditEntry(id, types.ActionStatusChange, string(current.State.Status), string(updated.State.Status), now))
	}
	if patch.Priority != nil && *patch.Priority != current.State.Priority {
		updated.State.Priority = *patch.Priority
		audit = append(audit, e.auditEntry(id, types.ActionPriorityChange, strconv.Itoa(current.State.Priority), strconv.Itoa(updated.State.Priority), now))
	}
	if patch.Notes != nil {
		updated.State.Notes = *patch.Notes
	}

	if updated.State == current.State {
		return current, nil
	}
	updated.UpdatedAt = now
	if err := e.store.UpdateState(ctx, id, updated.State, now); err != nil {
		return nil, fmt.Errorf("failed to update record %s: %w", id, err)
	}

	var auditErr *AuditError
	for _, entry := range audit {
		if err := e.store.AppendAudit(ctx, entry); err != nil {
			e.logger.Warn("failed to write audit entry", "record_id", id, "action", entry.ActionType, "error", err)
			if auditErr == nil {
				auditErr = &AuditError{RecordID: id}
			}
			auditErr.Actions = append(auditErr.Actions, entry.ActionType)
			auditErr.Causes = append(auditErr.Causes, err)
		}
	}

	if updated.State.Status != current.State.Status {
		e.logger.Info("status changed", "record_id", id, "old", current.State.Status, "new", updated.State.Status)
		e.publish(ctx, events.ChannelStatusChanged, events.StatusChanged{
			RecordID:       id.String(),
			SourcePlatform: updated.Record.SourcePlatform,
			SourceID:       updated.Record.SourceID,
			Title:          updated.Record.Title,
			CompanyName:    updated.Record.CompanyName,
			OldStatus:      string(current.State.Status),
			NewStatus:      string(updated.State.Status),
			ChangedAt:      now,
		})
	}
	if auditErr != nil {
		return &updated, auditErr
	}
	return &updated, nil
}

func (e *Engine) auditEntry(id uuid.UUID, action, oldValue, newValue string, now time.Time) *types.AuditEntry {
	return &types.AuditEntry{
		ID:         uuid.New(),
		RecordID:   id,
		ActionType: action,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  now,
	}
}

// publish is best effort.
func (e *Engine) publish(ctx context.Context, channel string, payload any) {
	if err := e.publisher.Publish(ctx, channel, payload); err != nil {
		e.logger.Warn("failed to publish event", "channel", channel, "error", err)
	}
}
