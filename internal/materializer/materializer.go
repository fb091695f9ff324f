// Package materializer turns surviving candidates into stored job listings
// with taxonomy classification.
package materializer

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"

	"job-killer/internal/model"
)

// DefaultExpiryDays is how long a listing stays open when the feed gave no
// explicit expiry date.
const DefaultExpiryDays = 30

// Config controls materialization.
type Config struct {
	AutoTaxonomy bool `yaml:"auto_taxonomy" json:"auto_taxonomy"`
}

// MaterializeError reports a rejected content-entity write. The underlying
// storage error message is preserved for the log.
type MaterializeError struct {
	Title string
	Err   error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("materialize %q: %v", e.Title, e.Err)
}

func (e *MaterializeError) Unwrap() error { return e.Err }

// ContentStore is the storage surface the materializer writes through.
type ContentStore interface {
	CreateListing(ctx context.Context, listing *model.JobListing) error
	AssignTerm(ctx context.Context, listingID uint, vocabulary, name string) error
}

// Materializer converts candidates into listings plus taxonomy terms.
type Materializer struct {
	store  ContentStore
	cfg    Config
	logger *log.Logger
	now    func() time.Time
}

// New creates a Materializer.
func New(store ContentStore, cfg Config) *Materializer {
	return &Materializer{
		store:  store,
		cfg:    cfg,
		logger: log.New(os.Stdout, "[materializer] ", log.LstdFlags),
		now:    time.Now,
	}
}

// Materialize creates the listing for a candidate and assigns its
// category, type and region terms. Each taxonomy assignment is
// independent: a failed one is logged and the others still happen. Only a
// rejected listing write fails the call, as a MaterializeError.
func (m *Materializer) Materialize(ctx context.Context, c model.JobCandidate, feedCfg model.FeedConfig) (uint, error) {
	now := m.now()

	listing := &model.JobListing{
		Title:          c.Title,
		Description:    c.Description,
		Company:        c.Company,
		Location:       c.Location,
		ApplicationURL: c.URL,
		Salary:         c.Salary,
		Status:         model.ListingStatusPublish,
		ExpiryDate:     m.expiryDate(c, now),
		Remote:         IsRemote(c.Title, c.Description, c.Location),
		SourceFeedID:   c.FeedID,
		ImportedAt:     now,
		Attributes:     extraAttributes(c),
	}

	if err := m.store.CreateListing(ctx, listing); err != nil {
		return 0, &MaterializeError{Title: c.Title, Err: err}
	}

	m.assign(ctx, listing.ID, model.VocabularyCategory, feedCfg.DefaultCategory)
	m.assign(ctx, listing.ID, model.VocabularyType, NormalizeType(c.EmploymentType))
	if region := m.region(c, feedCfg); region != "" {
		m.assign(ctx, listing.ID, model.VocabularyRegion, region)
	}

	return listing.ID, nil
}

// expiryDate prefers the feed's explicit expires field, falling back to
// import time plus DefaultExpiryDays.
func (m *Materializer) expiryDate(c model.JobCandidate, now time.Time) time.Time {
	if raw, ok := c.Extra["expires"]; ok {
		if t := parseExpiry(raw); !t.IsZero() {
			return t
		}
	}
	return now.AddDate(0, 0, DefaultExpiryDays)
}

func (m *Materializer) region(c model.JobCandidate, feedCfg model.FeedConfig) string {
	if feedCfg.DefaultRegion != "" {
		return feedCfg.DefaultRegion
	}
	if !m.cfg.AutoTaxonomy || c.Location == "" {
		return ""
	}
	return ExtractRegion(c.Location)
}

func (m *Materializer) assign(ctx context.Context, listingID uint, vocabulary, name string) {
	if name == "" {
		return
	}
	if err := m.store.AssignTerm(ctx, listingID, vocabulary, name); err != nil {
		m.logger.Printf("assign %s %q to listing %d: %v", vocabulary, name, listingID, err)
	}
}

func extraAttributes(c model.JobCandidate) datatypes.JSONMap {
	if len(c.Extra) == 0 {
		return nil
	}
	attrs := datatypes.JSONMap{}
	for k, v := range c.Extra {
		if k == "expires" {
			continue
		}
		attrs[k] = v
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

var expiryLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339, time.RFC1123Z, time.RFC1123}

func parseExpiry(raw string) time.Time {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
