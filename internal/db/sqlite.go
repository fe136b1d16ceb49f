package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jonathan/job-aggregator/internal/types"
)

//go:embed migrations/sqlite.sql
var sqliteSchema string

// SQLite is a single-file store for local use.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path and applies
// the schema. ":memory:" is accepted.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store requires a file path")
	}
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLite{db: conn}, nil
}

func (s *SQLite) Close() {
	_ = s.db.Close()
}

func (s *SQLite) FindByIdentity(ctx context.Context, platform, sourceID string) (*types.StoredRecord, error) {
	rec, err := scanOffer(s.db.QueryRowContext(ctx, selectByIdentityQuery(question), platform, sourceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job offer: %w", err)
	}
	return rec, nil
}

func (s *SQLite) FindByID(ctx context.Context, id uuid.UUID) (*types.StoredRecord, error) {
	rec, err := scanOffer(s.db.QueryRowContext(ctx, selectByIDQuery(question), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job offer by ID: %w", err)
	}
	return rec, nil
}

func (s *SQLite) Insert(ctx context.Context, rec *types.StoredRecord) error {
	args, err := insertArgs(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, insertOfferQuery(question), args...); err != nil {
		return fmt.Errorf("failed to insert job offer: %w", err)
	}
	return nil
}

func (s *SQLite) UpdatePosting(ctx context.Context, id uuid.UUID, rec types.JobRecord, updatedAt time.Time) error {
	args, err := updatePostingArgs(id, rec, updatedAt)
	if err != nil {
		return err
	}
	return s.exec(ctx, id, updatePostingQuery(question), args)
}

func (s *SQLite) UpdateState(ctx context.Context, id uuid.UUID, state types.UserState, updatedAt time.Time) error {
	return s.exec(ctx, id, updateStateQuery(question), updateStateArgs(id, state, updatedAt))
}

func (s *SQLite) exec(ctx context.Context, id uuid.UUID, query string, args []any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job offer: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job offer %s not found", id)
	}
	return nil
}

func (s *SQLite) AppendAudit(ctx context.Context, entry *types.AuditEntry) error {
	if _, err := s.db.ExecContext(ctx, insertActionQuery(question), actionArgs(entry)...); err != nil {
		return fmt.Errorf("failed to insert job action: %w", err)
	}
	return nil
}

func (s *SQLite) ListAudit(ctx context.Context, recordID uuid.UUID) ([]types.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, selectActionsQuery(question), recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job actions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []types.AuditEntry
	for rows.Next() {
		e, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job action: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLite) List(ctx context.Context, filter ListFilter) ([]types.StoredRecord, error) {
	query, args := listQuery(question, filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job offers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.StoredRecord
	for rows.Next() {
		rec, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job offer: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := newStats()
	if err := s.countInto(ctx, statsByStatusSQL, func(k string, n int) {
		stats.ByStatus[types.Status(k)] = n
		stats.Total += n
	}); err != nil {
		return nil, err
	}
	if err := s.countInto(ctx, statsByPlatformSQL, func(k string, n int) { stats.ByPlatform[k] = n }); err != nil {
		return nil, err
	}
	if err := s.countInto(ctx, statsByTierSQL, func(k string, n int) {
		if k != "" {
			stats.ByTier[types.Tier(k)] = n
		}
	}); err != nil {
		return nil, err
	}

	since := now.Add(-RecentWindow).UTC()
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(statsRecentSQL, question(1)), since).Scan(&stats.DiscoveredRecently); err != nil {
		return nil, fmt.Errorf("failed to count recent offers: %w", err)
	}
	return stats, nil
}

func (s *SQLite) countInto(ctx context.Context, query string, add func(key string, n int)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan stats: %w", err)
		}
		add(key, n)
	}
	return rows.Err()
}
