package provider

import "regexp"

// Canonical candidate field names used by mappings and rules.
const (
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldCompany        = "company"
	FieldLocation       = "location"
	FieldURL            = "url"
	FieldDate           = "date"
	FieldSalary         = "salary"
	FieldType           = "type"
	FieldExpires        = "expires"
	FieldBenefits       = "benefits"
	FieldCompanyLogo    = "company_logo"
	FieldCompanyWebsite = "company_website"
)

func builtinProviders() []Config {
	return []Config{
		{
			ID:          GenericID,
			DisplayName: "Generic RSS",
			Mapping: []FieldMap{
				{FieldTitle, "title"},
				{FieldDescription, "description"},
				{FieldDescription, "content:encoded"},
				{FieldDescription, "summary"}, // Atom
				{FieldDescription, "content"}, // Atom
				{FieldCompany, "company"},
				{FieldCompany, "dc:creator"},
				{FieldCompany, "author"},
				{FieldLocation, "location"},
				{FieldURL, "link"},
				{FieldDate, "pubDate"},
				{FieldDate, "published"},
				{FieldDate, "updated"},
				{FieldSalary, "salary"},
				{FieldType, "type"},
			},
		},
		{
			ID:          "wpjobmanager",
			DisplayName: "WP Job Manager",
			URLPattern:  regexp.MustCompile(`(?i)(job_listing|wp-job-manager|/jobs/feed)`),
			Mapping: []FieldMap{
				{FieldTitle, "title"},
				{FieldDescription, "description"},
				{FieldDescription, "content:encoded"},
				{FieldCompany, "job_listing:company"},
				{FieldCompany, "job_listing:company_name"},
				{FieldLocation, "job_listing:location"},
				{FieldType, "job_listing:job_type"},
				{FieldSalary, "job_listing:salary"},
				{FieldExpires, "job_listing:expires"},
				{FieldCompanyLogo, "job_listing:company_logo"},
				{FieldCompanyWebsite, "job_listing:company_website"},
				{FieldURL, "link"},
				{FieldDate, "pubDate"},
			},
		},
		{
			ID:          "indeed",
			DisplayName: "Indeed",
			URLPattern:  regexp.MustCompile(`(?i)indeed\.`),
			Mapping: []FieldMap{
				{FieldTitle, "title"},
				{FieldDescription, "description"},
				{FieldCompany, "source"},
				{FieldURL, "link"},
				{FieldDate, "pubDate"},
				{FieldLocation, "georss:point"},
			},
			Rules: []ExtractRule{
				{FieldCompany, "description", regexp.MustCompile(`(?i)Company:\s*([^\n<.]+)`)},
				{FieldLocation, "description", regexp.MustCompile(`(?i)Location:\s*([^\n<.]+)`)},
				{FieldSalary, "description", regexp.MustCompile(`(?i)Salary:\s*([^\n<.]+)`)},
			},
		},
		{
			ID:          "linkedin",
			DisplayName: "LinkedIn",
			URLPattern:  regexp.MustCompile(`(?i)linkedin\.`),
			// Item titles look like "Backend Engineer at Acme in Lisbon";
			// the mapped title lookup is deliberately absent so the rules
			// run against the raw title tag.
			Mapping: []FieldMap{
				{FieldDescription, "description"},
				{FieldURL, "link"},
				{FieldDate, "pubDate"},
			},
			Rules: []ExtractRule{
				{FieldTitle, "title", regexp.MustCompile(`^(.+?)\sat\s`)},
				{FieldTitle, "title", regexp.MustCompile(`^(.+)$`)},
				{FieldCompany, "title", regexp.MustCompile(`\sat\s(.+?)(?:\sin\s.+)?$`)},
				{FieldLocation, "title", regexp.MustCompile(`\sin\s(.+)$`)},
			},
		},
	}
}
