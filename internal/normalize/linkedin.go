package normalize

import (
	"strings"

	"github.com/jonathan/job-aggregator/internal/raw"
	"github.com/jonathan/job-aggregator/internal/types"
)

// LinkedIn normalizes LinkedIn voyager payloads. Both the raw
// {basic_info, detailed_info} pair and the flattened {enhanced_info} export
// are accepted.
type LinkedIn struct {
	base
}

const linkedInViewURL = "https://www.linkedin.com/jobs/view/"

func (n *LinkedIn) Normalize(rec raw.Record, platform string) (*types.JobRecord, error) {
	w := raw.Wildcard

	postingID := rec.FirstString(
		raw.P("detailed_info", "jobPostingId"),
		raw.P("enhanced_info", "job_posting_id"),
		raw.P("jobPostingId"),
	)
	sourceURL := rec.FirstString(raw.P("enhanced_info", "source_url"), raw.P("source_url"))
	if sourceURL == "" && postingID != "" {
		sourceURL = linkedInViewURL + postingID + "/"
	}

	remote, _ := rec.Bool("detailed_info", "workRemoteAllowed")
	if !remote {
		remote, _ = rec.Bool("enhanced_info", "remote_allowed")
	}

	d := draft{
		ids: IDCandidates{
			PostingID: postingID,
			EntityRef: urnSuffix(rec.FirstString(
				raw.P("basic_info", "entityUrn"),
				raw.P("detailed_info", "entityUrn"),
				raw.P("entityUrn"),
			)),
			TrackingRef: urnSuffix(rec.FirstString(
				raw.P("basic_info", "trackingUrn"),
				raw.P("trackingUrn"),
			)),
		},
		title: rec.FirstString(
			raw.P("detailed_info", "title"),
			raw.P("basic_info", "title"),
			raw.P("enhanced_info", "title"),
			raw.P("title"),
		),
		company: rec.FirstString(
			raw.P("detailed_info", "companyDetails", w, "companyResolutionResult", "name"),
			raw.P("basic_info", "primaryDescription", "text"),
			raw.P("basic_info", "companyName"),
			raw.P("enhanced_info", "company_name"),
			raw.P("companyName"),
			raw.P("company_name"),
		),
		companyURL: rec.FirstString(
			raw.P("detailed_info", "companyDetails", w, "companyResolutionResult", "url"),
			raw.P("enhanced_info", "company_url"),
		),
		sourceURL: sourceURL,
		applicationURL: rec.FirstString(
			raw.P("detailed_info", "applyMethod", w, "companyApplyUrl"),
			raw.P("detailed_info", "applyMethod", w, "easyApplyUrl"),
			raw.P("enhanced_info", "application_url"),
		),
		location: rec.FirstString(
			raw.P("detailed_info", "formattedLocation"),
			raw.P("basic_info", "secondaryDescription", "text"),
			raw.P("enhanced_info", "location"),
			raw.P("location"),
		),
		description: rec.FirstString(
			raw.P("detailed_info", "description", "text"),
			raw.P("detailed_info", "description"),
			raw.P("enhanced_info", "description"),
			raw.P("description", "text"),
			raw.P("description"),
		),
		salary: rec.FirstString(
			raw.P("detailed_info", "formattedSalaryDescription"),
			raw.P("enhanced_info", "salary_info"),
		),
		remoteFlag: remote,
		workModeLabel: rec.FirstString(
			raw.P("detailed_info", "workplaceTypesResolutionResults", w, "localizedName"),
			raw.P("enhanced_info", "work_mode"),
		),
		jobTypeLabel: linkedInJobType(rec),
		postedAt: postedAt(rec,
			raw.P("detailed_info", "listedAt"),
			raw.P("detailed_info", "originalListedAt"),
			raw.P("enhanced_info", "posted_at"),
			raw.P("listedAt"),
		),
	}
	return n.build(platform, rec, d)
}

// linkedInJobType reads the employment status, which LinkedIn reports either
// as a label ("Full-time") or as a URN ending in a constant ("...:FULL_TIME").
func linkedInJobType(rec raw.Record) string {
	label := rec.FirstString(
		raw.P("detailed_info", "formattedEmploymentStatus"),
		raw.P("detailed_info", "employmentStatus"),
		raw.P("enhanced_info", "job_type"),
	)
	return strings.ReplaceAll(urnSuffix(label), "_", "-")
}
