package pipeline

import (
	"context"
	"testing"

	"job-killer/internal/model"
)

// stubLedger is an in-memory Ledger.
type stubLedger struct {
	hashes  map[string]bool
	records int
}

func newStubLedger() *stubLedger {
	return &stubLedger{hashes: make(map[string]bool)}
}

func (l *stubLedger) HasImport(_ context.Context, hash string) (bool, error) {
	return l.hashes[hash], nil
}

func (l *stubLedger) RecordImport(_ context.Context, _, hash string, _ uint) error {
	l.hashes[hash] = true
	l.records++
	return nil
}

func TestHashIsCaseAndWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	a := Hash("Foo ", " Bar", "Baz")
	b := Hash("foo", "bar", "BAZ")
	if a != b {
		t.Fatalf("hash must normalize case and whitespace: %s != %s", a, b)
	}

	if Hash("foo", "bar", "baz") == Hash("foo", "bar", "qux") {
		t.Fatalf("different locations must hash differently")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha-256, got %d chars", len(a))
	}
}

func TestHashIgnoresOtherFields(t *testing.T) {
	t.Parallel()

	a := model.JobCandidate{Title: "Dev", Company: "Acme", Location: "SP", Description: "one", URL: "https://x/1"}
	b := model.JobCandidate{Title: "Dev", Company: "Acme", Location: "SP", Description: "two", URL: "https://x/2", Salary: "10k"}
	if CandidateHash(a) != CandidateHash(b) {
		t.Fatalf("hash must depend on title, company and location only")
	}
}

func TestDeduperDetectsAcrossFeeds(t *testing.T) {
	t.Parallel()

	ledger := newStubLedger()
	d := NewDeduper(ledger, true)
	ctx := context.Background()

	first := model.JobCandidate{Title: "Dev", Company: "Acme", Location: "SP", FeedID: "feed-a"}
	if dup, err := d.IsDuplicate(ctx, first); err != nil || dup {
		t.Fatalf("fresh candidate flagged duplicate: dup=%v err=%v", dup, err)
	}
	if err := d.Record(ctx, first, 1); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	// Same job from a different feed is still a duplicate.
	second := first
	second.FeedID = "feed-b"
	if dup, err := d.IsDuplicate(ctx, second); err != nil || !dup {
		t.Fatalf("cross-feed duplicate not detected: dup=%v err=%v", dup, err)
	}
}

func TestDeduperDisabled(t *testing.T) {
	t.Parallel()

	ledger := newStubLedger()
	ledger.hashes[CandidateHash(model.JobCandidate{Title: "Dev"})] = true

	d := NewDeduper(ledger, false)
	ctx := context.Background()

	c := model.JobCandidate{Title: "Dev"}
	if dup, err := d.IsDuplicate(ctx, c); err != nil || dup {
		t.Fatalf("disabled deduper must pass everything: dup=%v err=%v", dup, err)
	}
	if err := d.Record(ctx, c, 1); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if ledger.records != 0 {
		t.Fatalf("disabled deduper must not write the ledger, wrote %d", ledger.records)
	}
}
