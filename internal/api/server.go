// Package api exposes the admin HTTP surface: feed management, manual
// imports, feed tests, the log viewer and run status.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"

	"job-killer/internal/model"
	"job-killer/internal/storage"
)

// FeedStore manages persisted feed configs.
type FeedStore interface {
	SaveFeed(ctx context.Context, feed *model.FeedConfig) error
	GetFeed(ctx context.Context, id string) (*model.FeedConfig, error)
	ListFeeds(ctx context.Context, activeOnly bool) ([]model.FeedConfig, error)
	DeleteFeed(ctx context.Context, id string) error
}

// LogStore reads the persisted log.
type LogStore interface {
	ListLogs(ctx context.Context, q storage.LogQuery) ([]model.LogEntry, error)
}

// StatusStore exposes run-state reads.
type StatusStore interface {
	GetRunMarker(ctx context.Context) (*model.RunMarker, error)
	CountImports(ctx context.Context) (int64, error)
	CountListings(ctx context.Context) (int64, error)
}

// Runner triggers a manual import run.
type Runner interface {
	RunOnce(ctx context.Context) (model.RunSummary, error)
}

// FeedTester fetches and extracts a feed without materializing anything.
type FeedTester interface {
	TestFeed(ctx context.Context, feedCfg model.FeedConfig) ([]model.JobCandidate, error)
}

// Scheduling reports the next scheduled run.
type Scheduling interface {
	NextRun() time.Time
}

// response is the structured envelope every admin endpoint returns.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// feedRequest is the admin payload for creating or updating a feed.
// Validation failures surface synchronously as 400s.
type feedRequest struct {
	Name            string         `json:"name" validate:"required"`
	URL             string         `json:"url" validate:"required,url"`
	Active          *bool          `json:"active"`
	ProviderID      string         `json:"provider_id"`
	DefaultCategory string         `json:"default_category"`
	DefaultRegion   string         `json:"default_region"`
	FieldMapping    map[string]any `json:"field_mapping"`
	Deduplication   *bool          `json:"deduplication"`
}

// Handler holds the admin API dependencies.
type Handler struct {
	feeds    FeedStore
	logs     LogStore
	status   StatusStore
	runner   Runner
	tester   FeedTester
	sched    Scheduling
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler builds the admin mux.
func NewHandler(feeds FeedStore, logs LogStore, status StatusStore, runner Runner, tester FeedTester, sched Scheduling) http.Handler {
	h := &Handler{
		feeds:    feeds,
		logs:     logs,
		status:   status,
		runner:   runner,
		tester:   tester,
		sched:    sched,
		validate: validator.New(),
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{Success: true, Message: "ok"})
	})
	mux.HandleFunc("/api/feeds", h.handleFeeds)
	mux.HandleFunc("/api/feeds/", h.handleFeed)
	mux.HandleFunc("/api/import", h.handleImport)
	mux.HandleFunc("/api/logs", h.handleLogs)
	mux.HandleFunc("/api/status", h.handleStatus)
	return mux
}

func (h *Handler) handleFeeds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		feeds, err := h.feeds.ListFeeds(r.Context(), false)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, response{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, Data: feeds})
	case http.MethodPost:
		req, err := h.decodeFeedRequest(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, response{Message: err.Error()})
			return
		}
		feed := req.toFeedConfig(generateFeedID(req.Name, h.now()))
		if err := h.feeds.SaveFeed(r.Context(), feed); err != nil {
			writeJSON(w, http.StatusInternalServerError, response{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, response{Success: true, Message: "feed created", Data: feed})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, response{Message: "method not allowed"})
	}
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/feeds/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusNotFound, response{Message: "feed id missing"})
		return
	}

	if action == "test" {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, response{Message: "method not allowed"})
			return
		}
		h.testFeed(w, r, id)
		return
	}
	if action != "" {
		writeJSON(w, http.StatusNotFound, response{Message: "unknown action"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		feed, err := h.feeds.GetFeed(r.Context(), id)
		if err != nil {
			h.writeLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, Data: feed})
	case http.MethodPut:
		existing, err := h.feeds.GetFeed(r.Context(), id)
		if err != nil {
			h.writeLookupError(w, err)
			return
		}
		req, err := h.decodeFeedRequest(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, response{Message: err.Error()})
			return
		}
		feed := req.toFeedConfig(id)
		feed.CreatedAt = existing.CreatedAt
		feed.LastImport = existing.LastImport
		if err := h.feeds.SaveFeed(r.Context(), feed); err != nil {
			writeJSON(w, http.StatusInternalServerError, response{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, Message: "feed updated", Data: feed})
	case http.MethodDelete:
		if err := h.feeds.DeleteFeed(r.Context(), id); err != nil {
			h.writeLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, Message: "feed deleted"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, response{Message: "method not allowed"})
	}
}

func (h *Handler) testFeed(w http.ResponseWriter, r *http.Request, id string) {
	feed, err := h.feeds.GetFeed(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	candidates, err := h.tester.TestFeed(r.Context(), *feed)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, response{Message: err.Error()})
		return
	}
	sample := candidates
	if len(sample) > 5 {
		sample = sample[:5]
	}
	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: fmt.Sprintf("%d jobs found", len(candidates)),
		Data:    map[string]any{"found": len(candidates), "sample": sample},
	})
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, response{Message: "method not allowed"})
		return
	}
	summary, err := h.runner.RunOnce(r.Context())
	if err != nil {
		writeJSON(w, http.StatusConflict, response{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: fmt.Sprintf("%d jobs imported", summary.Imported),
		Data:    summary,
	})
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, response{Message: "method not allowed"})
		return
	}
	q := storage.LogQuery{
		Type:   r.URL.Query().Get("type"),
		Source: r.URL.Query().Get("source"),
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			q.Limit = v
		}
	}
	entries, err := h.logs.ListLogs(r.Context(), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, response{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: entries})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, response{Message: "method not allowed"})
		return
	}

	status := map[string]any{"running": false, "stale": false}
	if marker, err := h.status.GetRunMarker(r.Context()); err == nil && marker != nil {
		status["running"] = true
		status["run_id"] = marker.RunID
		status["started_at"] = marker.StartedAt
		status["stale"] = marker.Stale(h.now())
	}
	if h.sched != nil {
		if next := h.sched.NextRun(); !next.IsZero() {
			status["next_run"] = next
		}
	}
	if imports, err := h.status.CountImports(r.Context()); err == nil {
		status["ledger_entries"] = imports
	}
	if listings, err := h.status.CountListings(r.Context()); err == nil {
		status["open_listings"] = listings
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: status})
}

func (h *Handler) decodeFeedRequest(r *http.Request) (*feedRequest, error) {
	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if err := h.validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := strings.ToLower(verrs[0].Field())
			if verrs[0].Tag() == "required" {
				return nil, fmt.Errorf("feed %s is required", field)
			}
			return nil, fmt.Errorf("feed %s is invalid", field)
		}
		return nil, err
	}
	return &req, nil
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, response{Message: "feed not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, response{Message: err.Error()})
}

func (req *feedRequest) toFeedConfig(id string) *model.FeedConfig {
	feed := &model.FeedConfig{
		ID:              id,
		Name:            req.Name,
		URL:             req.URL,
		Active:          true,
		ProviderID:      req.ProviderID,
		DefaultCategory: req.DefaultCategory,
		DefaultRegion:   req.DefaultRegion,
		Deduplication:   true,
	}
	if req.Active != nil {
		feed.Active = *req.Active
	}
	if req.Deduplication != nil {
		feed.Deduplication = *req.Deduplication
	}
	if len(req.FieldMapping) > 0 {
		feed.FieldMapping = datatypes.JSONMap(req.FieldMapping)
	}
	return feed
}

// generateFeedID derives a stable id from the feed name and creation time.
func generateFeedID(name string, now time.Time) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(name))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "feed"
	}
	return fmt.Sprintf("%s-%d", slug, now.Unix())
}

func writeJSON(w http.ResponseWriter, status int, payload response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
