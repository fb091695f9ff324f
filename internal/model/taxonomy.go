package model

import "time"

// Controlled vocabularies for listing classification.
const (
	VocabularyCategory = "job_category"
	VocabularyType     = "job_type"
	VocabularyRegion   = "job_region"
)

// TaxonomyTerm is a term within a named vocabulary, created on first use.
type TaxonomyTerm struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Vocabulary string    `gorm:"uniqueIndex:idx_vocab_name" json:"vocabulary"`
	Name       string    `gorm:"uniqueIndex:idx_vocab_name" json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

func (TaxonomyTerm) TableName() string { return "taxonomy_terms" }

// ListingTerm assigns a term to a listing.
type ListingTerm struct {
	ListingID uint `gorm:"primaryKey;autoIncrement:false" json:"listing_id"`
	TermID    uint `gorm:"primaryKey;autoIncrement:false" json:"term_id"`
}

func (ListingTerm) TableName() string { return "listing_terms" }

// CacheEntry is one row of the generic key-value store, used for the fetch
// cache and small state blobs like the run marker. Zero ExpiresAt means the
// entry never expires.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Payload   []byte    `json:"payload"`
	ExpiresAt time.Time `json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CacheEntry) TableName() string { return "cache_entries" }
