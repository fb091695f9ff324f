package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"job-killer/internal/feed"
	"job-killer/internal/model"
)

// AutoFeed is an API-based job source processed after the RSS feeds. The
// endpoint returns JSON, either a bare array of jobs or a {"jobs": [...]}
// wrapper in the shape the public remote-job APIs use.
type AutoFeed struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Category string `yaml:"category" json:"category"`
	Region   string `yaml:"region" json:"region"`
	Active   bool   `yaml:"active" json:"active"`
}

type apiJob struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Company     string `json:"company_name"`
	CompanyAlt  string `json:"company"`
	Location    string `json:"candidate_required_location"`
	LocationAlt string `json:"location"`
	URL         string `json:"url"`
	Published   string `json:"publication_date"`
	Date        string `json:"date"`
	Salary      string `json:"salary"`
	JobType     string `json:"job_type"`
	Logo        string `json:"company_logo"`
}

type apiEnvelope struct {
	Jobs []apiJob `json:"jobs"`
}

// ParseAPIPayload decodes an auto-provider JSON payload into candidates.
// Jobs without a title or description are dropped, the same invariant the
// RSS extractor enforces.
func ParseAPIPayload(payload []byte, src AutoFeed) ([]model.JobCandidate, error) {
	jobs, err := decodeAPIJobs(payload)
	if err != nil {
		return nil, fmt.Errorf("decode api payload: %w", err)
	}

	candidates := make([]model.JobCandidate, 0, len(jobs))
	for _, j := range jobs {
		title := strings.TrimSpace(j.Title)
		description := strings.TrimSpace(j.Description)
		if title == "" || description == "" {
			continue
		}
		c := model.JobCandidate{
			Title:          title,
			Description:    description,
			Company:        pick(j.Company, j.CompanyAlt),
			Location:       pick(j.Location, j.LocationAlt),
			URL:            j.URL,
			PublishedAt:    feed.ParseDate(pick(j.Published, j.Date)),
			Salary:         j.Salary,
			EmploymentType: j.JobType,
			FeedID:         src.ID,
		}
		if j.Logo != "" {
			c.Extra = map[string]string{FieldCompanyLogo: j.Logo}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func decodeAPIJobs(payload []byte) ([]apiJob, error) {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "[") {
		var jobs []apiJob
		if err := json.Unmarshal(payload, &jobs); err != nil {
			return nil, err
		}
		return jobs, nil
	}
	var env apiEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	return env.Jobs, nil
}

func pick(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
