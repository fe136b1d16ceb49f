package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-aggregator/internal/types"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func storedOffer(platform, sourceID, title string, tier types.Tier, priority int, discovered time.Time) *types.StoredRecord {
	return &types.StoredRecord{
		ID: uuid.New(),
		Record: types.JobRecord{
			SourcePlatform: platform,
			SourceID:       sourceID,
			SourceURL:      "https://example.com/jobs/" + sourceID,
			Title:          title,
			CompanyName:    "Acme",
			Description:    "Own the " + title + " roadmap",
			WorkMode:       types.WorkModeRemote,
			JobType:        types.JobTypeFullTime,
			DiscoveredAt:   discovered,
			Relevance:      &types.RelevanceAnnotation{Score: 12, Tier: tier, MatchedTerms: []types.MatchedTerm{{Term: "seo", Weight: 10, Location: types.LocationTitle}}},
		},
		State:     types.UserState{Status: types.StatusDiscovered, Priority: priority},
		CreatedAt: discovered,
		UpdatedAt: discovered,
	}
}

// runStoreContract exercises the behavior every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("find missing returns nil", func(t *testing.T) {
		store := newStore(t)
		rec, err := store.FindByIdentity(ctx, "linkedin", "nope")
		require.NoError(t, err)
		assert.Nil(t, rec)

		rec, err = store.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("insert then find", func(t *testing.T) {
		store := newStore(t)
		posted := testNow.Add(-48 * time.Hour)
		in := storedOffer("linkedin", "123", "SEO Specialist", types.TierB, 2, testNow)
		in.Record.PostedAt = &posted
		require.NoError(t, store.Insert(ctx, in))

		got, err := store.FindByIdentity(ctx, "linkedin", "123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, in.ID, got.ID)
		assert.Equal(t, "SEO Specialist", got.Record.Title)
		assert.Equal(t, types.WorkModeRemote, got.Record.WorkMode)
		assert.Equal(t, types.StatusDiscovered, got.State.Status)
		assert.Equal(t, 2, got.State.Priority)
		require.NotNil(t, got.Record.PostedAt)
		assert.True(t, posted.Equal(*got.Record.PostedAt))
		assert.True(t, testNow.Equal(got.Record.DiscoveredAt))
		assert.Nil(t, got.State.AppliedAt)
		require.NotNil(t, got.Record.Relevance)
		assert.Equal(t, types.TierB, got.Record.Relevance.Tier)
		assert.Len(t, got.Record.Relevance.MatchedTerms, 1)

		byID, err := store.FindByID(ctx, in.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, "123", byID.Record.SourceID)
	})

	t.Run("duplicate identity rejected", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, storedOffer("linkedin", "dup", "A", types.TierA, 0, testNow)))
		assert.Error(t, store.Insert(ctx, storedOffer("linkedin", "dup", "B", types.TierA, 0, testNow)))
	})

	t.Run("update state leaves the posting", func(t *testing.T) {
		store := newStore(t)
		in := storedOffer("adzuna", "9", "SEO Manager", types.TierC, 0, testNow)
		require.NoError(t, store.Insert(ctx, in))

		applied := testNow.Add(time.Hour)
		state := types.UserState{Status: types.StatusApplied, Priority: 5, Notes: "call back", AppliedAt: &applied}
		require.NoError(t, store.UpdateState(ctx, in.ID, state, applied))

		got, err := store.FindByID(ctx, in.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "SEO Manager", got.Record.Title)
		require.NotNil(t, got.Record.Relevance)
		assert.Equal(t, types.StatusApplied, got.State.Status)
		assert.Equal(t, 5, got.State.Priority)
		assert.Equal(t, "call back", got.State.Notes)
		require.NotNil(t, got.State.AppliedAt)
		assert.True(t, applied.Equal(*got.State.AppliedAt))
		assert.True(t, applied.Equal(got.UpdatedAt))
	})

	t.Run("update posting leaves the user state", func(t *testing.T) {
		store := newStore(t)
		in := storedOffer("adzuna", "10", "SEO Manager", types.TierC, 0, testNow)
		require.NoError(t, store.Insert(ctx, in))

		applied := testNow.Add(time.Hour)
		require.NoError(t, store.UpdateState(ctx, in.ID, types.UserState{Status: types.StatusInterview, Priority: 4, Notes: "user note", AppliedAt: &applied}, applied))

		fresh := in.Record
		fresh.Title = "Senior SEO Manager"
		fresh.Relevance = nil
		fresh.Notes = "connector note"
		fresh.DiscoveredAt = testNow.Add(48 * time.Hour)
		later := testNow.Add(2 * time.Hour)
		require.NoError(t, store.UpdatePosting(ctx, in.ID, fresh, later))

		got, err := store.FindByID(ctx, in.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Senior SEO Manager", got.Record.Title)
		assert.Nil(t, got.Record.Relevance)
		assert.True(t, testNow.Equal(got.Record.DiscoveredAt), "first discovery time is kept")
		assert.Equal(t, types.StatusInterview, got.State.Status)
		assert.Equal(t, 4, got.State.Priority)
		assert.Equal(t, "user note", got.State.Notes)
		require.NotNil(t, got.State.AppliedAt)
		assert.True(t, applied.Equal(*got.State.AppliedAt))
		assert.True(t, later.Equal(got.UpdatedAt))
	})

	t.Run("update posting fills empty notes", func(t *testing.T) {
		store := newStore(t)
		in := storedOffer("adzuna", "11", "SEO Manager", types.TierC, 0, testNow)
		require.NoError(t, store.Insert(ctx, in))

		fresh := in.Record
		fresh.Notes = "connector note"
		require.NoError(t, store.UpdatePosting(ctx, in.ID, fresh, testNow.Add(time.Hour)))

		got, err := store.FindByID(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, "connector note", got.State.Notes)
		assert.Equal(t, types.StatusDiscovered, got.State.Status)
	})

	t.Run("update missing fails", func(t *testing.T) {
		store := newStore(t)
		ghost := storedOffer("adzuna", "ghost", "X", types.TierA, 0, testNow)
		assert.Error(t, store.UpdatePosting(ctx, ghost.ID, ghost.Record, testNow))
		assert.Error(t, store.UpdateState(ctx, ghost.ID, ghost.State, testNow))
	})

	t.Run("audit trail", func(t *testing.T) {
		store := newStore(t)
		in := storedOffer("linkedin", "audit", "SEO Lead", types.TierA, 0, testNow)
		require.NoError(t, store.Insert(ctx, in))

		for i, change := range [][2]string{{"discovered", "interested"}, {"interested", "applied"}} {
			require.NoError(t, store.AppendAudit(ctx, &types.AuditEntry{
				ID:         uuid.New(),
				RecordID:   in.ID,
				ActionType: types.ActionStatusChange,
				OldValue:   change[0],
				NewValue:   change[1],
				CreatedAt:  testNow.Add(time.Duration(i) * time.Minute),
			}))
		}

		entries, err := store.ListAudit(ctx, in.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "interested", entries[0].NewValue)
		assert.Equal(t, "applied", entries[1].NewValue)
		assert.Equal(t, in.ID, entries[1].RecordID)
	})

	t.Run("list filters and ordering", func(t *testing.T) {
		store := newStore(t)
		old := storedOffer("linkedin", "1", "SEO Specialist", types.TierA, 0, testNow.Add(-72*time.Hour))
		recent := storedOffer("linkedin", "2", "Content Writer", types.TierD, 0, testNow)
		urgent := storedOffer("adzuna", "3", "SEO Analyst", types.TierB, 3, testNow.Add(-24*time.Hour))
		urgent.State.Status = types.StatusInterested
		for _, rec := range []*types.StoredRecord{old, recent, urgent} {
			require.NoError(t, store.Insert(ctx, rec))
		}

		tests := []struct {
			name   string
			filter ListFilter
			want   []string
		}{
			{"all by priority then recency", ListFilter{}, []string{"3", "2", "1"}},
			{"status", ListFilter{Status: types.StatusInterested}, []string{"3"}},
			{"platform", ListFilter{Platform: "linkedin"}, []string{"2", "1"}},
			{"min tier", ListFilter{MinTier: types.TierB}, []string{"3", "1"}},
			{"search is case-insensitive", ListFilter{Search: "seo"}, []string{"3", "1"}},
			{"search description", ListFilter{Search: "WRITER ROADMAP"}, []string{"2"}},
			{"limit", ListFilter{Limit: 1}, []string{"3"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := store.List(ctx, tt.filter)
				require.NoError(t, err)
				ids := make([]string, len(got))
				for i, rec := range got {
					ids[i] = rec.Record.SourceID
				}
				assert.Equal(t, tt.want, ids)
			})
		}
	})

	t.Run("stats", func(t *testing.T) {
		store := newStore(t)
		a := storedOffer("linkedin", "1", "SEO Specialist", types.TierA, 0, testNow.Add(-10*24*time.Hour))
		b := storedOffer("linkedin", "2", "SEO Analyst", types.TierA, 0, testNow.Add(-24*time.Hour))
		c := storedOffer("adzuna", "3", "Writer", types.TierE, 0, testNow)
		c.State.Status = types.StatusApplied
		for _, rec := range []*types.StoredRecord{a, b, c} {
			require.NoError(t, store.Insert(ctx, rec))
		}

		stats, err := store.Stats(ctx, testNow)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 2, stats.ByStatus[types.StatusDiscovered])
		assert.Equal(t, 1, stats.ByStatus[types.StatusApplied])
		assert.Equal(t, 2, stats.ByPlatform["linkedin"])
		assert.Equal(t, 1, stats.ByPlatform["adzuna"])
		assert.Equal(t, 2, stats.ByTier[types.TierA])
		assert.Equal(t, 1, stats.ByTier[types.TierE])
		assert.Equal(t, 2, stats.DiscoveredRecently)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(*testing.T) Store { return NewMemoryStore() })
}

func TestSQLite(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "jobs.db"))
		require.NoError(t, err)
		t.Cleanup(store.Close)
		return store
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, "memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(ctx, "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, store)
	store.Close()

	_, err = Open(ctx, "postgres", "")
	assert.Error(t, err)

	_, err = Open(ctx, "oracle", "x")
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestListQuery(t *testing.T) {
	q, args := listQuery(dollar, ListFilter{Status: types.StatusApplied, MinTier: types.TierC, Search: "seo", Limit: 10})
	assert.Contains(t, q, "status = $1")
	assert.Contains(t, q, "relevance_tier IN ($2, $3, $4)")
	assert.Contains(t, q, "LOWER(title) LIKE $5")
	assert.Contains(t, q, "LIMIT $8")
	assert.Equal(t, []any{"applied", "A", "B", "C", "%seo%", "%seo%", "%seo%", 10}, args)

	q, args = listQuery(question, ListFilter{})
	assert.NotContains(t, q, "WHERE")
	assert.Empty(t, args)
}

func TestTiersAtLeast(t *testing.T) {
	assert.Equal(t, []string{"A"}, tiersAtLeast(types.TierA))
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, tiersAtLeast(types.TierE))
}
