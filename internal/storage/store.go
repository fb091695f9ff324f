// Package storage wraps the embedded SQLite database: job listings,
// taxonomy terms, feed configs, the import ledger, the log table and the
// generic key-value cache all live here.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"job-killer/internal/model"
)

// Store wraps database access for every persisted collaborator the
// pipeline needs.
type Store struct {
	db *gorm.DB
}

// NewStore opens (creating if needed) the SQLite database at dbPath and
// migrates all tables.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(
		&model.JobListing{},
		&model.ImportRecord{},
		&model.LogEntry{},
		&model.FeedConfig{},
		&model.TaxonomyTerm{},
		&model.ListingTerm{},
		&model.CacheEntry{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// --- feeds ---

// SaveFeed creates or updates a feed config, maintaining timestamps.
func (s *Store) SaveFeed(ctx context.Context, feed *model.FeedConfig) error {
	now := time.Now()
	feed.UpdatedAt = now
	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = now
	}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "url", "active", "provider_id", "default_category",
			"default_region", "field_mapping", "deduplication", "updated_at",
		}),
	}).Create(feed)
	if tx.Error != nil {
		return fmt.Errorf("save feed: %w", tx.Error)
	}
	return nil
}

// GetFeed returns a feed config by id, sql.ErrNoRows when absent.
func (s *Store) GetFeed(ctx context.Context, id string) (*model.FeedConfig, error) {
	var feed model.FeedConfig
	if err := s.db.WithContext(ctx).First(&feed, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get feed: %w", err)
	}
	return &feed, nil
}

// ListFeeds returns feed configs in insertion order, which is the
// processing order of a run. activeOnly restricts to active feeds.
func (s *Store) ListFeeds(ctx context.Context, activeOnly bool) ([]model.FeedConfig, error) {
	var feeds []model.FeedConfig
	query := s.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&feeds).Error; err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	return feeds, nil
}

// DeleteFeed removes a feed config.
func (s *Store) DeleteFeed(ctx context.Context, id string) error {
	tx := s.db.WithContext(ctx).Delete(&model.FeedConfig{}, "id = ?", id)
	if tx.Error != nil {
		return fmt.Errorf("delete feed: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TouchFeedImport updates only the feed's last_import timestamp.
func (s *Store) TouchFeedImport(ctx context.Context, id string, at time.Time) error {
	tx := s.db.WithContext(ctx).Model(&model.FeedConfig{}).
		Where("id = ?", id).
		Update("last_import", at)
	if tx.Error != nil {
		return fmt.Errorf("touch feed import: %w", tx.Error)
	}
	return nil
}

// --- listings ---

// CreateListing inserts a materialized listing and fills in its id.
func (s *Store) CreateListing(ctx context.Context, listing *model.JobListing) error {
	if err := s.db.WithContext(ctx).Create(listing).Error; err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

// CountListings returns the number of non-filled published listings.
func (s *Store) CountListings(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.JobListing{}).
		Where("filled = ?", false).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return total, nil
}

// MarkExpiredListings flags listings past their expiry date as filled and
// returns how many changed. Run by the daily cleanup job.
func (s *Store) MarkExpiredListings(ctx context.Context, now time.Time) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&model.JobListing{}).
		Where("filled = ? AND expiry_date < ?", false, now).
		Update("filled", true)
	if tx.Error != nil {
		return 0, fmt.Errorf("mark expired listings: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// --- taxonomy ---

// AssignTerm get-or-creates the term within vocabulary and links it to the
// listing. Re-assigning an existing pair is a no-op.
func (s *Store) AssignTerm(ctx context.Context, listingID uint, vocabulary, name string) error {
	term := model.TaxonomyTerm{Vocabulary: vocabulary, Name: name}
	if err := s.db.WithContext(ctx).
		Where("vocabulary = ? AND name = ?", vocabulary, name).
		FirstOrCreate(&term).Error; err != nil {
		return fmt.Errorf("get or create term: %w", err)
	}

	link := model.ListingTerm{ListingID: listingID, TermID: term.ID}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
	if tx.Error != nil {
		return fmt.Errorf("assign term: %w", tx.Error)
	}
	return nil
}

// ListingTerms returns the term names assigned to a listing within one
// vocabulary.
func (s *Store) ListingTerms(ctx context.Context, listingID uint, vocabulary string) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&model.TaxonomyTerm{}).
		Joins("JOIN listing_terms ON listing_terms.term_id = taxonomy_terms.id").
		Where("listing_terms.listing_id = ? AND taxonomy_terms.vocabulary = ?", listingID, vocabulary).
		Pluck("taxonomy_terms.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("listing terms: %w", err)
	}
	return names, nil
}

// --- import ledger ---

// HasImport reports whether the hash already exists in the ledger.
func (s *Store) HasImport(ctx context.Context, hash string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.ImportRecord{}).
		Where("job_hash = ?", hash).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("query import ledger: %w", err)
	}
	return count > 0, nil
}

// RecordImport inserts a ledger row. The job_hash unique index makes the
// insert idempotent: a concurrent run inserting the same hash simply keeps
// the first row, and the second call succeeds without effect.
func (s *Store) RecordImport(ctx context.Context, feedID, hash string, postID uint) error {
	record := model.ImportRecord{
		FeedID:     feedID,
		JobHash:    hash,
		PostID:     postID,
		ImportedAt: time.Now(),
	}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_hash"}},
		DoNothing: true,
	}).Create(&record)
	if tx.Error != nil {
		return fmt.Errorf("record import: %w", tx.Error)
	}
	return nil
}

// CountImports returns the ledger size.
func (s *Store) CountImports(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.ImportRecord{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count imports: %w", err)
	}
	return total, nil
}

// --- logs ---

// AppendLog writes one log entry.
func (s *Store) AppendLog(ctx context.Context, entry model.LogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// LogQuery filters ListLogs.
type LogQuery struct {
	Type   string
	Source string
	Since  time.Time
	Limit  int
}

// ListLogs returns log entries newest first.
func (s *Store) ListLogs(ctx context.Context, q LogQuery) ([]model.LogEntry, error) {
	query := s.db.WithContext(ctx).Model(&model.LogEntry{}).Order("created_at DESC, id DESC")
	if q.Type != "" {
		query = query.Where("type = ?", q.Type)
	}
	if q.Source != "" {
		query = query.Where("source = ?", q.Source)
	}
	if !q.Since.IsZero() {
		query = query.Where("created_at >= ?", q.Since)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	var entries []model.LogEntry
	if err := query.Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return entries, nil
}

// PruneLogs deletes log entries older than cutoff and returns how many
// went away. Run by the daily cleanup job.
func (s *Store) PruneLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.LogEntry{})
	if tx.Error != nil {
		return 0, fmt.Errorf("prune logs: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// --- key-value cache ---

// CacheGet returns the payload for key when present and not expired.
func (s *Store) CacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	var entry model.CacheEntry
	if err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if !entry.ExpiresAt.IsZero() && entry.ExpiresAt.Before(time.Now()) {
		return nil, false, nil
	}
	return entry.Payload, true, nil
}

// CacheSet stores a payload under key. Zero ttl means no expiry.
func (s *Store) CacheSet(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	entry := model.CacheEntry{Key: key, Payload: payload, UpdatedAt: time.Now()}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
	}).Create(&entry)
	if tx.Error != nil {
		return fmt.Errorf("cache set: %w", tx.Error)
	}
	return nil
}

// CacheDelete removes a key; deleting an absent key succeeds.
func (s *Store) CacheDelete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&model.CacheEntry{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// --- run marker ---

const runMarkerKey = "import:run_marker"

// SetRunMarker records an import run in progress.
func (s *Store) SetRunMarker(ctx context.Context, marker model.RunMarker) error {
	payload, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("encode run marker: %w", err)
	}
	return s.CacheSet(ctx, runMarkerKey, payload, 0)
}

// GetRunMarker returns the current run marker, nil when no run is
// recorded.
func (s *Store) GetRunMarker(ctx context.Context) (*model.RunMarker, error) {
	payload, ok, err := s.CacheGet(ctx, runMarkerKey)
	if err != nil || !ok {
		return nil, err
	}
	var marker model.RunMarker
	if err := json.Unmarshal(payload, &marker); err != nil {
		return nil, fmt.Errorf("decode run marker: %w", err)
	}
	return &marker, nil
}

// ClearRunMarker removes the run marker after a run finishes.
func (s *Store) ClearRunMarker(ctx context.Context) error {
	return s.CacheDelete(ctx, runMarkerKey)
}
