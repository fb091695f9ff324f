package model

import "time"

// ImportRecord is one row of the import ledger: the persisted association
// between a dedup hash and the listing it produced. Rows are only ever
// inserted; the job_hash unique index is the storage-level guarantee that
// two runs cannot import the same job twice.
type ImportRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FeedID     string    `gorm:"index" json:"feed_id"`
	JobHash    string    `gorm:"uniqueIndex;size:64" json:"job_hash"`
	PostID     uint      `gorm:"index" json:"post_id"`
	ImportedAt time.Time `gorm:"index" json:"imported_at"`
}

func (ImportRecord) TableName() string { return "job_killer_imports" }
