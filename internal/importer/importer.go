// Package importer orchestrates one run across all active feeds and auto
// providers: fetch, extract, filter, dedup, materialize, with every feed
// and every item on an independent best-effort attempt.
package importer

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"

	"job-killer/internal/feed"
	"job-killer/internal/model"
	"job-killer/internal/pipeline"
	"job-killer/internal/provider"
)

// Config controls run behavior.
type Config struct {
	FeedDelaySeconds int                     `yaml:"feed_delay_seconds" json:"feed_delay_seconds"`
	Deduplication    bool                    `yaml:"deduplication" json:"deduplication"`
	Filters          pipeline.FilterSettings `yaml:"filters" json:"filters"`
	LogRetentionDays int                     `yaml:"log_retention_days" json:"log_retention_days"`
	AutoFeeds        []provider.AutoFeed     `yaml:"auto_feeds" json:"auto_feeds"`
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	ListFeeds(ctx context.Context, activeOnly bool) ([]model.FeedConfig, error)
	TouchFeedImport(ctx context.Context, id string, at time.Time) error
	AppendLog(ctx context.Context, entry model.LogEntry) error
	SetRunMarker(ctx context.Context, marker model.RunMarker) error
	ClearRunMarker(ctx context.Context) error
	PruneLogs(ctx context.Context, cutoff time.Time) (int64, error)
	MarkExpiredListings(ctx context.Context, now time.Time) (int64, error)
	pipeline.Ledger
}

// Fetcher retrieves raw feed payloads.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Materializer converts an accepted candidate into a stored listing.
type Materializer interface {
	Materialize(ctx context.Context, c model.JobCandidate, feedCfg model.FeedConfig) (uint, error)
}

// Notifier receives the run summary once per run.
type Notifier interface {
	Notify(ctx context.Context, summary model.RunSummary) error
}

// Importer drives the fetch → extract → filter → dedup → materialize
// pipeline.
type Importer struct {
	store    Store
	fetcher  Fetcher
	registry *provider.Registry
	mat      Materializer
	notif    Notifier
	cfg      Config
	limiter  *rate.Limiter
	logger   *log.Logger
	now      func() time.Time
}

// New creates an Importer. notif may be nil when run notifications are
// disabled.
func New(store Store, fetcher Fetcher, registry *provider.Registry, mat Materializer, notif Notifier, cfg Config) *Importer {
	if cfg.LogRetentionDays <= 0 {
		cfg.LogRetentionDays = 30
	}
	var limiter *rate.Limiter
	if cfg.FeedDelaySeconds > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(cfg.FeedDelaySeconds)*time.Second), 1)
	}
	return &Importer{
		store:    store,
		fetcher:  fetcher,
		registry: registry,
		mat:      mat,
		notif:    notif,
		cfg:      cfg,
		limiter:  limiter,
		logger:   log.New(os.Stdout, "[importer] ", log.LstdFlags),
		now:      time.Now,
	}
}

// Run executes one import across all active feeds, then the auto
// providers. Per-feed and per-item failures are logged and never abort the
// run; only an inability to read the feed list at all fails it.
func (imp *Importer) Run(ctx context.Context) (model.RunSummary, error) {
	summary := model.RunSummary{RunID: uuid.NewString(), StartedAt: imp.now()}

	if err := imp.store.SetRunMarker(ctx, model.RunMarker{RunID: summary.RunID, StartedAt: summary.StartedAt}); err != nil {
		imp.logger.Printf("set run marker: %v", err)
	}
	defer func() {
		if err := imp.store.ClearRunMarker(ctx); err != nil {
			imp.logger.Printf("clear run marker: %v", err)
		}
	}()

	feeds, err := imp.store.ListFeeds(ctx, true)
	if err != nil {
		imp.logError(ctx, "importer", fmt.Sprintf("read feed list: %v", err), nil)
		return summary, fmt.Errorf("list feeds: %w", err)
	}

	imp.logger.Printf("run %s start: %d feeds, %d auto providers", summary.RunID, len(feeds), len(imp.cfg.AutoFeeds))

	for _, feedCfg := range feeds {
		if err := imp.wait(ctx); err != nil {
			return summary, err
		}
		imp.processFeed(ctx, feedCfg, &summary)
		summary.Feeds++
	}

	for _, auto := range imp.cfg.AutoFeeds {
		if !auto.Active {
			continue
		}
		if err := imp.wait(ctx); err != nil {
			return summary, err
		}
		imp.processAutoFeed(ctx, auto, &summary)
		summary.Feeds++
	}

	summary.FinishedAt = imp.now()
	imp.logger.Printf("run %s done: imported=%d duplicates=%d filtered=%d errors=%d",
		summary.RunID, summary.Imported, summary.Duplicates, summary.Filtered, summary.Errors)

	if imp.notif != nil && summary.Imported > 0 {
		if err := imp.notif.Notify(ctx, summary); err != nil {
			imp.logError(ctx, "notifier", fmt.Sprintf("run notification: %v", err), nil)
		}
	}

	return summary, nil
}

// wait applies the configured between-feed delay.
func (imp *Importer) wait(ctx context.Context) error {
	if imp.limiter == nil {
		return nil
	}
	return imp.limiter.Wait(ctx)
}

func (imp *Importer) processFeed(ctx context.Context, feedCfg model.FeedConfig, summary *model.RunSummary) {
	payload, err := imp.fetcher.Fetch(ctx, feedCfg.URL)
	if err != nil {
		summary.Errors++
		imp.logError(ctx, "fetcher", fmt.Sprintf("feed %s: %v", feedCfg.ID, err), datatypes.JSONMap{"feed_id": feedCfg.ID, "url": feedCfg.URL})
		return
	}

	doc, err := feed.Parse(payload)
	if err != nil {
		summary.Errors++
		imp.logError(ctx, "parser", fmt.Sprintf("feed %s: %v", feedCfg.ID, err), datatypes.JSONMap{"feed_id": feedCfg.ID})
		return
	}

	providerID := feedCfg.ProviderID
	if providerID == "" {
		providerID = imp.registry.Detect(feedCfg.URL)
	}
	cfg := provider.MappingOverride(imp.registry.Get(providerID), feedCfg.FieldMapping)

	candidates := provider.Extract(doc, cfg, feedCfg.ID)
	imp.importCandidates(ctx, candidates, feedCfg, len(doc.Items), providerID, summary)

	if err := imp.store.TouchFeedImport(ctx, feedCfg.ID, imp.now()); err != nil {
		imp.logger.Printf("touch feed %s: %v", feedCfg.ID, err)
	}
}

func (imp *Importer) processAutoFeed(ctx context.Context, auto provider.AutoFeed, summary *model.RunSummary) {
	payload, err := imp.fetcher.Fetch(ctx, auto.URL)
	if err != nil {
		summary.Errors++
		imp.logError(ctx, "fetcher", fmt.Sprintf("auto provider %s: %v", auto.ID, err), datatypes.JSONMap{"feed_id": auto.ID, "url": auto.URL})
		return
	}

	candidates, err := provider.ParseAPIPayload(payload, auto)
	if err != nil {
		summary.Errors++
		imp.logError(ctx, "parser", fmt.Sprintf("auto provider %s: %v", auto.ID, err), datatypes.JSONMap{"feed_id": auto.ID})
		return
	}

	feedCfg := model.FeedConfig{
		ID:              auto.ID,
		Name:            auto.Name,
		DefaultCategory: auto.Category,
		DefaultRegion:   auto.Region,
		Deduplication:   true,
	}
	imp.importCandidates(ctx, candidates, feedCfg, len(candidates), "api", summary)
}

// importCandidates runs the shared filter → dedup → materialize tail and
// logs one per-feed outcome line with the found/imported counts.
func (imp *Importer) importCandidates(ctx context.Context, candidates []model.JobCandidate, feedCfg model.FeedConfig, found int, providerID string, summary *model.RunSummary) {
	filtered := pipeline.Apply(candidates, imp.cfg.Filters, imp.now())
	summary.Found += found
	summary.Filtered += filtered.Dropped

	deduper := pipeline.NewDeduper(imp.store, imp.cfg.Deduplication && feedCfg.Deduplication)

	imported, duplicates := 0, 0
	for _, c := range filtered.Kept {
		dup, err := deduper.IsDuplicate(ctx, c)
		if err != nil {
			summary.Errors++
			imp.logError(ctx, "dedup", fmt.Sprintf("feed %s: %v", feedCfg.ID, err), nil)
			continue
		}
		if dup {
			duplicates++
			continue
		}

		postID, err := imp.mat.Materialize(ctx, c, feedCfg)
		if err != nil {
			summary.Errors++
			imp.logError(ctx, "materializer", fmt.Sprintf("feed %s, job %q: %v", feedCfg.ID, c.Title, err), datatypes.JSONMap{"feed_id": feedCfg.ID})
			continue
		}

		if err := deduper.Record(ctx, c, postID); err != nil {
			imp.logError(ctx, "dedup", fmt.Sprintf("feed %s: %v", feedCfg.ID, err), nil)
		}
		imported++
	}

	summary.Imported += imported
	summary.Duplicates += duplicates

	imp.log(ctx, model.LogSuccess, "importer",
		fmt.Sprintf("feed %s (%s): %d found, %d imported, %d duplicates, %d filtered",
			feedCfg.ID, providerID, found, imported, duplicates, filtered.Dropped),
		datatypes.JSONMap{
			"feed_id":    feedCfg.ID,
			"provider":   providerID,
			"found":      found,
			"imported":   imported,
			"duplicates": duplicates,
			"filtered":   filtered.Dropped,
		})
}

// TestFeed fetches and extracts a feed without filtering or materializing,
// returning the candidates for the admin preview.
func (imp *Importer) TestFeed(ctx context.Context, feedCfg model.FeedConfig) ([]model.JobCandidate, error) {
	payload, err := imp.fetcher.Fetch(ctx, feedCfg.URL)
	if err != nil {
		return nil, err
	}
	doc, err := feed.Parse(payload)
	if err != nil {
		return nil, err
	}
	providerID := feedCfg.ProviderID
	if providerID == "" {
		providerID = imp.registry.Detect(feedCfg.URL)
	}
	cfg := provider.MappingOverride(imp.registry.Get(providerID), feedCfg.FieldMapping)
	return provider.Extract(doc, cfg, feedCfg.ID), nil
}

// Cleanup prunes old log entries and marks expired listings as filled.
// Scheduled daily, independent of import runs.
func (imp *Importer) Cleanup(ctx context.Context) error {
	now := imp.now()

	pruned, err := imp.store.PruneLogs(ctx, now.AddDate(0, 0, -imp.cfg.LogRetentionDays))
	if err != nil {
		return fmt.Errorf("prune logs: %w", err)
	}

	expired, err := imp.store.MarkExpiredListings(ctx, now)
	if err != nil {
		return fmt.Errorf("mark expired listings: %w", err)
	}

	if pruned > 0 || expired > 0 {
		imp.log(ctx, model.LogInfo, "cleanup",
			fmt.Sprintf("pruned %d log entries, marked %d listings filled", pruned, expired), nil)
	}
	return nil
}

func (imp *Importer) log(ctx context.Context, severity, source, message string, data datatypes.JSONMap) {
	imp.logger.Printf("%s: %s", source, message)
	entry := model.LogEntry{Type: severity, Source: source, Message: message, Data: data}
	if err := imp.store.AppendLog(ctx, entry); err != nil {
		imp.logger.Printf("append log entry: %v", err)
	}
}

func (imp *Importer) logError(ctx context.Context, source, message string, data datatypes.JSONMap) {
	imp.log(ctx, model.LogError, source, message, data)
}
