package normalize

import (
	"github.com/jonathan/job-aggregator/internal/raw"
	"github.com/jonathan/job-aggregator/internal/types"
)

// Generic normalizes flat records that already use canonical or common
// scraper field names. It backs every platform without a dedicated normalizer.
type Generic struct {
	base
}

func (n *Generic) Normalize(rec raw.Record, platform string) (*types.JobRecord, error) {
	remote, _ := rec.Bool("remote")
	if !remote {
		remote, _ = rec.Bool("is_remote")
	}

	d := draft{
		ids: IDCandidates{
			PostingID: rec.FirstString(raw.P("source_id"), raw.P("job_id"), raw.P("id")),
		},
		title:          rec.FirstString(raw.P("title"), raw.P("job_title")),
		company:        rec.FirstString(raw.P("company_name"), raw.P("company"), raw.P("company", "name")),
		companyURL:     rec.FirstString(raw.P("company_url"), raw.P("company", "url")),
		sourceURL:      rec.FirstString(raw.P("source_url"), raw.P("job_url"), raw.P("url")),
		applicationURL: rec.FirstString(raw.P("application_url"), raw.P("apply_url")),
		location:       rec.FirstString(raw.P("location"), raw.P("location", "name")),
		description:    rec.FirstString(raw.P("description"), raw.P("summary")),
		salary:         rec.FirstString(raw.P("salary_info"), raw.P("salary")),
		remoteFlag:     remote,
		workModeLabel:  rec.FirstString(raw.P("work_mode"), raw.P("workplace_type")),
		jobTypeLabel:   rec.FirstString(raw.P("job_type"), raw.P("employment_type")),
		postedAt:       postedAt(rec, raw.P("posted_at"), raw.P("date_posted")),
	}
	return n.build(platform, rec, d)
}
