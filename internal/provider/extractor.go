package provider

import (
	"net/url"
	"strings"

	"job-killer/internal/feed"
	"job-killer/internal/model"
)

// Extract resolves every mapped field of every item in doc against cfg and
// returns the surviving candidates. Items lacking a title or a description
// after extraction are dropped silently; the orchestrator reports the
// found-vs-imported discrepancy in its per-feed log line.
func Extract(doc *feed.Feed, cfg Config, feedID string) []model.JobCandidate {
	candidates := make([]model.JobCandidate, 0, len(doc.Items))
	for _, item := range doc.Items {
		fields := ExtractFields(item, cfg)
		if fields[FieldTitle] == "" || fields[FieldDescription] == "" {
			continue
		}
		candidates = append(candidates, buildCandidate(fields, doc, feedID))
	}
	return candidates
}

// ExtractFields resolves each canonical field of one raw item: mapped tag
// lookup first (namespaced or direct), then the provider's regex rules for
// fields still empty. Missing optional fields stay absent from the map.
func ExtractFields(item feed.Item, cfg Config) map[string]string {
	fields := make(map[string]string)

	for _, m := range cfg.Mapping {
		if fields[m.Field] != "" {
			continue
		}
		value := item.Get(m.Source)
		if value == "" && m.Field == FieldURL {
			// Atom link tags carry the target in an href attribute.
			value = item.GetAttr(m.Source, "href")
		}
		if value != "" {
			fields[m.Field] = strings.TrimSpace(value)
		}
	}

	if len(cfg.Rules) > 0 {
		rawTitle := item.Get("title")
		rawDescription := item.Get("description")
		for _, rule := range cfg.Rules {
			if fields[rule.Field] != "" {
				continue
			}
			source := rawTitle
			if rule.Source == FieldDescription {
				source = rawDescription
			}
			if source == "" {
				continue
			}
			if m := rule.Pattern.FindStringSubmatch(source); len(m) > 1 {
				if v := strings.TrimSpace(m[1]); v != "" {
					fields[rule.Field] = v
				}
			}
		}
	}

	return fields
}

// MappingOverride applies a per-feed field-mapping override on top of a
// provider config, keeping the provider's rules.
func MappingOverride(cfg Config, override map[string]any) Config {
	if len(override) == 0 {
		return cfg
	}
	mapping := make([]FieldMap, 0, len(override)+len(cfg.Mapping))
	for field, source := range override {
		if s, ok := source.(string); ok && s != "" {
			mapping = append(mapping, FieldMap{Field: field, Source: s})
		}
	}
	cfg.Mapping = append(mapping, cfg.Mapping...)
	return cfg
}

func buildCandidate(fields map[string]string, doc *feed.Feed, feedID string) model.JobCandidate {
	c := model.JobCandidate{
		Title:          fields[FieldTitle],
		Description:    fields[FieldDescription],
		Company:        fields[FieldCompany],
		Location:       fields[FieldLocation],
		URL:            resolveURL(fields[FieldURL], doc.Link),
		PublishedAt:    feed.ParseDate(fields[FieldDate]),
		Salary:         fields[FieldSalary],
		EmploymentType: fields[FieldType],
		FeedID:         feedID,
	}

	extra := make(map[string]string)
	for _, key := range []string{FieldExpires, FieldBenefits, FieldCompanyLogo, FieldCompanyWebsite} {
		if v := fields[key]; v != "" {
			extra[key] = v
		}
	}
	if len(extra) > 0 {
		c.Extra = extra
	}
	return c
}

// resolveURL turns a relative item link into an absolute one using the
// feed's channel link as base.
func resolveURL(raw, base string) string {
	if raw == "" || strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return b.ResolveReference(ref).String()
}
