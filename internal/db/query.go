package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-aggregator/internal/types"
)

const offerColumns = `id, source_platform, source_id, source_url, title, company_name, company_url,
	location, description, work_mode, job_type, application_url, salary_info, posted_at,
	discovered_at, unstable_id, relevance, status, priority, notes, applied_at,
	created_at, updated_at`

const insertOfferSQL = `INSERT INTO job_offers (id, source_platform, source_id, source_url, title,
	company_name, company_url, location, description, work_mode, job_type, application_url,
	salary_info, posted_at, discovered_at, unstable_id, relevance, relevance_score,
	relevance_tier, status, priority, notes, applied_at, created_at, updated_at)
	VALUES (%s)`

// updatePostingSQL never touches status, priority or applied_at, and only
// fills notes that are still empty, so a concurrent user edit survives a re-sync.
const updatePostingSQL = `UPDATE job_offers SET source_url = %s, title = %s, company_name = %s,
	company_url = %s, location = %s, description = %s, work_mode = %s, job_type = %s,
	application_url = %s, salary_info = %s, posted_at = %s, unstable_id = %s,
	relevance = %s, relevance_score = %s, relevance_tier = %s,
	notes = CASE WHEN notes = '' THEN %s ELSE notes END, updated_at = %s
	WHERE id = %s`

const updateStateSQL = `UPDATE job_offers SET status = %s, priority = %s, notes = %s,
	applied_at = %s, updated_at = %s WHERE id = %s`

const insertActionSQL = `INSERT INTO job_actions (id, job_offer_id, action_type, old_value, new_value, created_at)
	VALUES (%s)`

const (
	statsByStatusSQL   = `SELECT status, COUNT(*) FROM job_offers GROUP BY status`
	statsByPlatformSQL = `SELECT source_platform, COUNT(*) FROM job_offers GROUP BY source_platform`
	statsByTierSQL     = `SELECT COALESCE(relevance_tier, ''), COUNT(*) FROM job_offers GROUP BY relevance_tier`
	statsRecentSQL     = `SELECT COUNT(*) FROM job_offers WHERE discovered_at >= %s`
)

// placeholder renders the n-th (1-based) bind parameter for a dialect.
type placeholder func(n int) string

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func question(int) string { return "?" }

func placeholders(ph placeholder, from, count int) []any {
	out := make([]any, count)
	for i := range out {
		out[i] = ph(from + i)
	}
	return out
}

func placeholderList(ph placeholder, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = ph(i + 1)
	}
	return strings.Join(parts, ", ")
}

func insertOfferQuery(ph placeholder) string {
	return fmt.Sprintf(insertOfferSQL, placeholderList(ph, 25))
}

func updatePostingQuery(ph placeholder) string {
	return fmt.Sprintf(updatePostingSQL, placeholders(ph, 1, 18)...)
}

func updateStateQuery(ph placeholder) string {
	return fmt.Sprintf(updateStateSQL, placeholders(ph, 1, 6)...)
}

func insertActionQuery(ph placeholder) string {
	return fmt.Sprintf(insertActionSQL, placeholderList(ph, 6))
}

func selectByIdentityQuery(ph placeholder) string {
	return "SELECT " + offerColumns + " FROM job_offers WHERE source_platform = " + ph(1) + " AND source_id = " + ph(2)
}

func selectByIDQuery(ph placeholder) string {
	return "SELECT " + offerColumns + " FROM job_offers WHERE id = " + ph(1)
}

func selectActionsQuery(ph placeholder) string {
	return "SELECT id, job_offer_id, action_type, old_value, new_value, created_at FROM job_actions WHERE job_offer_id = " +
		ph(1) + " ORDER BY created_at, id"
}

// scanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOffer(s scanner) (*types.StoredRecord, error) {
	var (
		rec                       types.StoredRecord
		workMode, jobType, status string
		relevance                 []byte
	)
	r := &rec.Record
	err := s.Scan(&rec.ID, &r.SourcePlatform, &r.SourceID, &r.SourceURL, &r.Title, &r.CompanyName,
		&r.CompanyURL, &r.Location, &r.Description, &workMode, &jobType, &r.ApplicationURL,
		&r.SalaryInfo, &r.PostedAt, &r.DiscoveredAt, &r.UnstableID, &relevance, &status,
		&rec.State.Priority, &rec.State.Notes, &rec.State.AppliedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.WorkMode = types.WorkMode(workMode)
	r.JobType = types.JobType(jobType)
	r.Relevance = parseRelevance(relevance)
	rec.State.Status = types.Status(status)
	return &rec, nil
}

func scanAction(s scanner) (types.AuditEntry, error) {
	var e types.AuditEntry
	err := s.Scan(&e.ID, &e.RecordID, &e.ActionType, &e.OldValue, &e.NewValue, &e.CreatedAt)
	return e, err
}

func insertArgs(rec *types.StoredRecord) ([]any, error) {
	score, tier, relevance, err := relevanceColumns(rec.Record.Relevance)
	if err != nil {
		return nil, err
	}
	r := &rec.Record
	return []any{
		rec.ID, r.SourcePlatform, r.SourceID, r.SourceURL, r.Title,
		r.CompanyName, r.CompanyURL, r.Location, r.Description, string(r.WorkMode), string(r.JobType), r.ApplicationURL,
		r.SalaryInfo, utcPtr(r.PostedAt), r.DiscoveredAt.UTC(), r.UnstableID, jsonArg(relevance), score,
		tier, string(rec.State.Status), rec.State.Priority, rec.State.Notes, utcPtr(rec.State.AppliedAt), rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	}, nil
}

func updatePostingArgs(id uuid.UUID, r types.JobRecord, updatedAt time.Time) ([]any, error) {
	score, tier, relevance, err := relevanceColumns(r.Relevance)
	if err != nil {
		return nil, err
	}
	return []any{
		r.SourceURL, r.Title, r.CompanyName,
		r.CompanyURL, r.Location, r.Description, string(r.WorkMode), string(r.JobType),
		r.ApplicationURL, r.SalaryInfo, utcPtr(r.PostedAt), r.UnstableID,
		jsonArg(relevance), score, tier,
		r.Notes, updatedAt.UTC(),
		id,
	}, nil
}

func updateStateArgs(id uuid.UUID, st types.UserState, updatedAt time.Time) []any {
	return []any{string(st.Status), st.Priority, st.Notes, utcPtr(st.AppliedAt), updatedAt.UTC(), id}
}

func actionArgs(e *types.AuditEntry) []any {
	return []any{e.ID, e.RecordID, e.ActionType, e.OldValue, e.NewValue, e.CreatedAt.UTC()}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// jsonArg binds a nil document as NULL.
func jsonArg(data []byte) any {
	if data == nil {
		return nil
	}
	return data
}

// listQuery builds the filtered listing query and its arguments.
func listQuery(ph placeholder, f ListFilter) (string, []any) {
	var where []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return ph(len(args))
	}

	if f.Status != "" {
		where = append(where, "status = "+next(string(f.Status)))
	}
	if f.Platform != "" {
		where = append(where, "source_platform = "+next(f.Platform))
	}
	if f.MinTier != "" {
		tiers := tiersAtLeast(f.MinTier)
		in := make([]string, len(tiers))
		for i, t := range tiers {
			in[i] = next(t)
		}
		where = append(where, "relevance_tier IN ("+strings.Join(in, ", ")+")")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		where = append(where, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(company_name) LIKE %s OR LOWER(description) LIKE %s)",
			next(pattern), next(pattern), next(pattern)))
	}

	q := "SELECT " + offerColumns + " FROM job_offers"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY priority DESC, discovered_at DESC, id"
	if f.Limit > 0 {
		q += " LIMIT " + next(f.Limit)
	}
	return q, args
}
