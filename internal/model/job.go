package model

import (
	"time"

	"gorm.io/datatypes"
)

// JobCandidate is a parsed, not-yet-persisted job record produced by field
// extraction. Title and Description must both be non-empty for a candidate
// to survive extraction; everything else is optional free text.
type JobCandidate struct {
	Title          string
	Description    string
	Company        string
	Location       string
	URL            string
	PublishedAt    time.Time // zero when the feed carried no usable date
	Salary         string
	EmploymentType string
	FeedID         string
	Extra          map[string]string // provider extras: expires, benefits, company_logo, company_website
}

// JobListing is the materialized content entity a surviving candidate
// becomes. Mutated after creation only by the expiry cleanup job or manual
// admin edits; the importer never deletes listings.
type JobListing struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Company        string            `json:"company"`
	Location       string            `json:"location"`
	ApplicationURL string            `json:"application_url"`
	Salary         string            `json:"salary"`
	Status         string            `json:"status"`
	ExpiryDate     time.Time         `json:"expiry_date"`
	Filled         bool              `json:"filled"`
	Featured       bool              `json:"featured"`
	Remote         bool              `json:"remote"`
	SourceFeedID   string            `gorm:"index" json:"source_feed_id"`
	ImportedAt     time.Time         `json:"imported_at"`
	Attributes     datatypes.JSONMap `json:"attributes"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (JobListing) TableName() string { return "job_listings" }

// ListingStatusPublish is the status assigned to freshly materialized listings.
const ListingStatusPublish = "publish"
