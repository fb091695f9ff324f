// Package pipeline applies the candidate filters and the hash-based
// deduplication that sit between extraction and materialization.
package pipeline

import (
	"strings"
	"time"

	"golang.org/x/net/html"

	"job-killer/internal/model"
)

// FilterSettings are the per-run filter thresholds. A zero threshold
// disables its filter.
type FilterSettings struct {
	AgeFilterDays        int `yaml:"age_filter_days" json:"age_filter_days"`
	DescriptionMinLength int `yaml:"description_min_length" json:"description_min_length"`
	ImportCap            int `yaml:"import_cap" json:"import_cap"`
}

// DefaultImportCap bounds how many candidates one feed may materialize per
// run when no cap is configured.
const DefaultImportCap = 50

// FilterResult reports what Apply kept and dropped.
type FilterResult struct {
	Kept    []model.JobCandidate
	Dropped int
}

// Apply runs the age filter, then the description-length filter, then the
// per-feed cap. The filters are independent per-candidate predicates, so
// their order does not change the result set.
//
// Candidates without a parsable published date pass the age filter: the
// permissive treatment is deliberate and pinned by tests.
func Apply(candidates []model.JobCandidate, settings FilterSettings, now time.Time) FilterResult {
	limit := settings.ImportCap
	if limit <= 0 {
		limit = DefaultImportCap
	}

	kept := make([]model.JobCandidate, 0, len(candidates))
	cutoff := now.AddDate(0, 0, -settings.AgeFilterDays)
	for _, c := range candidates {
		if settings.AgeFilterDays > 0 && !c.PublishedAt.IsZero() && c.PublishedAt.Before(cutoff) {
			continue
		}
		if settings.DescriptionMinLength > 0 {
			if len([]rune(StripTags(c.Description))) < settings.DescriptionMinLength {
				continue
			}
		}
		kept = append(kept, c)
		if len(kept) >= limit {
			break
		}
	}
	return FilterResult{Kept: kept, Dropped: len(candidates) - len(kept)}
}

// StripTags reduces HTML-bearing text to its visible characters so length
// checks and keyword scans see content, not markup.
func StripTags(markup string) string {
	if !strings.ContainsRune(markup, '<') {
		return strings.TrimSpace(markup)
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(tokenizer.Text())
		}
	}
}
