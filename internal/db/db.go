// Package db persists synced job offers and their audit trail.
package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/job-aggregator/internal/types"
)

//go:embed migrations/postgres.sql
var postgresSchema string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database and applies the schema
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// FindByIdentity retrieves an offer by (platform, source id)
func (db *DB) FindByIdentity(ctx context.Context, platform, sourceID string) (*types.StoredRecord, error) {
	rec, err := scanOffer(db.pool.QueryRow(ctx, selectByIdentityQuery(dollar), platform, sourceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job offer: %w", err)
	}
	return rec, nil
}

// FindByID retrieves an offer by its row ID
func (db *DB) FindByID(ctx context.Context, id uuid.UUID) (*types.StoredRecord, error) {
	rec, err := scanOffer(db.pool.QueryRow(ctx, selectByIDQuery(dollar), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job offer by ID: %w", err)
	}
	return rec, nil
}

// Insert creates a new offer row
func (db *DB) Insert(ctx context.Context, rec *types.StoredRecord) error {
	args, err := insertArgs(rec)
	if err != nil {
		return err
	}
	if _, err := db.pool.Exec(ctx, insertOfferQuery(dollar), args...); err != nil {
		return fmt.Errorf("failed to insert job offer: %w", err)
	}
	return nil
}

// UpdatePosting refreshes the connector-owned columns of an offer
func (db *DB) UpdatePosting(ctx context.Context, id uuid.UUID, rec types.JobRecord, updatedAt time.Time) error {
	args, err := updatePostingArgs(id, rec, updatedAt)
	if err != nil {
		return err
	}
	return db.exec(ctx, id, updatePostingQuery(dollar), args)
}

// UpdateState writes the user-owned columns of an offer
func (db *DB) UpdateState(ctx context.Context, id uuid.UUID, state types.UserState, updatedAt time.Time) error {
	return db.exec(ctx, id, updateStateQuery(dollar), updateStateArgs(id, state, updatedAt))
}

func (db *DB) exec(ctx context.Context, id uuid.UUID, query string, args []any) error {
	tag, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job offer %s not found", id)
	}
	return nil
}

// AppendAudit records one action against an offer
func (db *DB) AppendAudit(ctx context.Context, entry *types.AuditEntry) error {
	if _, err := db.pool.Exec(ctx, insertActionQuery(dollar), actionArgs(entry)...); err != nil {
		return fmt.Errorf("failed to insert job action: %w", err)
	}
	return nil
}

// ListAudit returns the actions recorded for an offer, oldest first
func (db *DB) ListAudit(ctx context.Context, recordID uuid.UUID) ([]types.AuditEntry, error) {
	rows, err := db.pool.Query(ctx, selectActionsQuery(dollar), recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job actions: %w", err)
	}
	defer rows.Close()

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

// List returns offers matching the filter
func (db *DB) List(ctx context.Context, filter ListFilter) ([]types.StoredRecord, error) {
	query, args := listQuery(dollar, filter)
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job offers: %w", err)
	}
	defer rows.Close()

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

// Stats computes the dashboard summary
func (db *DB) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := newStats()

	groups := []struct {
		query string
		add   func(key string, n int)
	}{
		{statsByStatusSQL, func(k string, n int) { stats.ByStatus[types.Status(k)] = n; stats.Total += n }},
		{statsByPlatformSQL, func(k string, n int) { stats.ByPlatform[k] = n }},
		{statsByTierSQL, func(k string, n int) {
			if k != "" {
				stats.ByTier[types.Tier(k)] = n
			}
		}},
	}
	for _, g := range groups {
		rows, err := db.pool.Query(ctx, g.query)
		if err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan stats: %w", err)
			}
			g.add(key, n)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}
	}

	since := now.Add(-RecentWindow).UTC()
	if err := db.pool.QueryRow(ctx, fmt.Sprintf(statsRecentSQL, dollar(1)), since).Scan(&stats.DiscoveredRecently); err != nil {
		return nil, fmt.Errorf("failed to count recent offers: %w", err)
	}
	return stats, nil
}
