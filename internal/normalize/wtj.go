package normalize

import (
	"regexp"
	"strings"

	"github.com/jonathan/job-aggregator/internal/raw"
	"github.com/jonathan/job-aggregator/internal/types"
)

// WelcomeToTheJungle normalizes scraped job cards as well as search API hits.
type WelcomeToTheJungle struct {
	base
}

const wtjBaseURL = "https://www.welcometothejungle.com/fr/companies/"

var wtjSlugPattern = regexp.MustCompile(`/jobs/([A-Za-z0-9_-]+)`)

func (n *WelcomeToTheJungle) Normalize(rec raw.Record, platform string) (*types.JobRecord, error) {
	orgSlug := rec.String("organization", "slug")
	slug := rec.String("slug")

	sourceURL := rec.FirstString(raw.P("source_url"), raw.P("url"))
	if sourceURL == "" && orgSlug != "" && slug != "" {
		sourceURL = wtjBaseURL + orgSlug + "/jobs/" + slug
	}
	if slug == "" {
		if m := wtjSlugPattern.FindStringSubmatch(sourceURL); m != nil {
			slug = m[1]
		}
	}
	var entityRef string
	if slug != "" {
		entityRef = "wtj_" + slug
	}

	companyURL := rec.FirstString(raw.P("company_url"), raw.P("organization", "website_url"))
	if companyURL == "" && orgSlug != "" {
		companyURL = wtjBaseURL + orgSlug
	}

	location := rec.String("location")
	if location == "" {
		location = strings.Join(uniqueStrings(rec.Strings(raw.P("offices"), "city")), ", ")
	}

	salary := rec.String("salary_info")
	if salary == "" {
		salary = salaryFrom(rec, raw.P("salary_minimum"), raw.P("salary_maximum"),
			rec.String("salary_currency"), rec.String("salary_period"))
	}

	d := draft{
		ids: IDCandidates{
			PostingID: rec.FirstString(raw.P("source_id"), raw.P("reference")),
			EntityRef: entityRef,
		},
		title:          rec.FirstString(raw.P("title"), raw.P("name")),
		company:        rec.FirstString(raw.P("company_name"), raw.P("organization", "name"), raw.P("company", "name")),
		companyURL:     companyURL,
		sourceURL:      sourceURL,
		applicationURL: rec.String("application_url"),
		location:       location,
		description:    rec.FirstString(raw.P("description"), raw.P("summary"), raw.P("profile")),
		salary:         salary,
		workModeLabel:  rec.FirstString(raw.P("work_mode"), raw.P("remote")),
		jobTypeLabel:   rec.FirstString(raw.P("job_type"), raw.P("contract_type")),
		postedAt:       postedAt(rec, raw.P("posted_at"), raw.P("published_at")),
	}
	return n.build(platform, rec, d)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
