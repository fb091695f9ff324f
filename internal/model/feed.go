package model

import (
	"time"

	"gorm.io/datatypes"
)

// FeedConfig is a user-managed feed definition. Created and edited through
// the admin API, read by the importer; only LastImport changes during a run.
type FeedConfig struct {
	ID              string            `gorm:"primaryKey" json:"id"`
	Name            string            `json:"name"`
	URL             string            `json:"url"`
	Active          bool              `json:"active"`
	ProviderID      string            `json:"provider_id"` // explicit provider selection, empty = detect from URL
	DefaultCategory string            `json:"default_category"`
	DefaultRegion   string            `json:"default_region"`
	FieldMapping    datatypes.JSONMap `json:"field_mapping"` // per-feed override of the provider mapping
	Deduplication   bool              `json:"deduplication"`
	LastImport      *time.Time        `json:"last_import"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (FeedConfig) TableName() string { return "feeds" }

// RunMarker records an import run in progress. It is a monitoring signal,
// not a lock: a marker older than StaleRunAfter means a run died or hung,
// it never blocks a new run.
type RunMarker struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
}

// StaleRunAfter is the age past which a run marker is reported as stale.
const StaleRunAfter = 10 * time.Minute

// Stale reports whether the marker is older than StaleRunAfter.
func (m RunMarker) Stale(now time.Time) bool {
	return now.Sub(m.StartedAt) > StaleRunAfter
}

// RunSummary aggregates the outcome of one orchestrator run across all
// feeds and auto providers.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Feeds      int       `json:"feeds"`
	Found      int       `json:"found"`
	Filtered   int       `json:"filtered"`
	Duplicates int       `json:"duplicates"`
	Imported   int       `json:"imported"`
	Errors     int       `json:"errors"`
}
