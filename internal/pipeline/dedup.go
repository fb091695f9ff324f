package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"job-killer/internal/model"
)

// Ledger is the persisted record of already-imported job hashes. The
// storage layer enforces hash uniqueness, so RecordImport must treat a
// constraint violation as "already imported", never as a failure.
type Ledger interface {
	HasImport(ctx context.Context, hash string) (bool, error)
	RecordImport(ctx context.Context, feedID, hash string, postID uint) error
}

// Hash computes the stable dedup hash of a candidate from its title,
// company and location only, case- and whitespace-insensitive.
func Hash(title, company, location string) string {
	normalize := func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}
	sum := sha256.Sum256([]byte(normalize(title) + "|" + normalize(company) + "|" + normalize(location)))
	return hex.EncodeToString(sum[:])
}

// CandidateHash is Hash applied to a candidate.
func CandidateHash(c model.JobCandidate) string {
	return Hash(c.Title, c.Company, c.Location)
}

// Deduper checks candidates against the import ledger. Deduplication is
// feed-agnostic: the same hash from two feeds is still a duplicate. When
// disabled, every candidate passes and no ledger writes happen.
type Deduper struct {
	ledger  Ledger
	enabled bool
}

// NewDeduper creates a Deduper backed by ledger.
func NewDeduper(ledger Ledger, enabled bool) *Deduper {
	return &Deduper{ledger: ledger, enabled: enabled}
}

// Enabled reports whether dedup checks and ledger writes are active.
func (d *Deduper) Enabled() bool { return d.enabled && d.ledger != nil }

// IsDuplicate reports whether the candidate's hash already exists in the
// ledger. Always false when dedup is disabled.
func (d *Deduper) IsDuplicate(ctx context.Context, c model.JobCandidate) (bool, error) {
	if !d.Enabled() {
		return false, nil
	}
	dup, err := d.ledger.HasImport(ctx, CandidateHash(c))
	if err != nil {
		return false, fmt.Errorf("check import ledger: %w", err)
	}
	return dup, nil
}

// Record inserts a ledger row for a materialized candidate. A no-op when
// dedup is disabled.
func (d *Deduper) Record(ctx context.Context, c model.JobCandidate, postID uint) error {
	if !d.Enabled() {
		return nil
	}
	if err := d.ledger.RecordImport(ctx, c.FeedID, CandidateHash(c), postID); err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}
