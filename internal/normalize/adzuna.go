package normalize

import (
	"github.com/jonathan/job-aggregator/internal/raw"
	"github.com/jonathan/job-aggregator/internal/types"
)

// Adzuna normalizes results from the Adzuna search API.
type Adzuna struct {
	base
}

func (n *Adzuna) Normalize(rec raw.Record, platform string) (*types.JobRecord, error) {
	// contract_type distinguishes permanent from contract; contract_time
	// distinguishes full from part time.
	jobType := rec.String("contract_time")
	if ct := rec.String("contract_type"); ct == "contract" {
		jobType = ct
	}

	d := draft{
		ids: IDCandidates{
			PostingID: rec.String("id"),
			EntityRef: rec.String("adref"),
		},
		title:        rec.String("title"),
		company:      rec.String("company", "display_name"),
		sourceURL:    rec.String("redirect_url"),
		location:     rec.String("location", "display_name"),
		description:  rec.String("description"),
		salary:       salaryFrom(rec, raw.P("salary_min"), raw.P("salary_max"), "", ""),
		jobTypeLabel: jobType,
		postedAt:     postedAt(rec, raw.P("created")),
	}
	return n.build(platform, rec, d)
}
