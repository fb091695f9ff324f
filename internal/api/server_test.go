package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"job-killer/internal/model"
	"job-killer/internal/storage"
)

type stubFeedStore struct {
	feeds map[string]*model.FeedConfig
}

func newStubFeedStore() *stubFeedStore {
	return &stubFeedStore{feeds: map[string]*model.FeedConfig{}}
}

func (s *stubFeedStore) SaveFeed(ctx context.Context, feed *model.FeedConfig) error {
	copied := *feed
	s.feeds[feed.ID] = &copied
	return nil
}

func (s *stubFeedStore) GetFeed(ctx context.Context, id string) (*model.FeedConfig, error) {
	feed, ok := s.feeds[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *feed
	return &copied, nil
}

func (s *stubFeedStore) ListFeeds(ctx context.Context, activeOnly bool) ([]model.FeedConfig, error) {
	var out []model.FeedConfig
	for _, feed := range s.feeds {
		if activeOnly && !feed.Active {
			continue
		}
		out = append(out, *feed)
	}
	return out, nil
}

func (s *stubFeedStore) DeleteFeed(ctx context.Context, id string) error {
	if _, ok := s.feeds[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.feeds, id)
	return nil
}

type stubLogStore struct {
	entries []model.LogEntry
	lastQ   storage.LogQuery
}

func (s *stubLogStore) ListLogs(ctx context.Context, q storage.LogQuery) ([]model.LogEntry, error) {
	s.lastQ = q
	return s.entries, nil
}

type stubStatusStore struct {
	marker   *model.RunMarker
	imports  int64
	listings int64
}

func (s *stubStatusStore) GetRunMarker(ctx context.Context) (*model.RunMarker, error) {
	return s.marker, nil
}
func (s *stubStatusStore) CountImports(ctx context.Context) (int64, error)  { return s.imports, nil }
func (s *stubStatusStore) CountListings(ctx context.Context) (int64, error) { return s.listings, nil }

type stubRunner struct {
	summary model.RunSummary
	err     error
	calls   int
}

func (r *stubRunner) RunOnce(ctx context.Context) (model.RunSummary, error) {
	r.calls++
	return r.summary, r.err
}

type stubTester struct {
	candidates []model.JobCandidate
	err        error
	lastFeed   model.FeedConfig
}

func (s *stubTester) TestFeed(ctx context.Context, feedCfg model.FeedConfig) ([]model.JobCandidate, error) {
	s.lastFeed = feedCfg
	return s.candidates, s.err
}

type stubSched struct {
	next time.Time
}

func (s *stubSched) NextRun() time.Time { return s.next }

type env struct {
	handler http.Handler
	feeds   *stubFeedStore
	logs    *stubLogStore
	status  *stubStatusStore
	runner  *stubRunner
	tester  *stubTester
	sched   *stubSched
}

func newEnv() *env {
	e := &env{
		feeds:  newStubFeedStore(),
		logs:   &stubLogStore{},
		status: &stubStatusStore{},
		runner: &stubRunner{},
		tester: &stubTester{},
		sched:  &stubSched{},
	}
	e.handler = NewHandler(e.feeds, e.logs, e.status, e.runner, e.tester, e.sched)
	return e
}

func (e *env) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestCreateFeedValidation(t *testing.T) {
	t.Parallel()
	e := newEnv()

	rec, resp := e.do(t, http.MethodPost, "/api/feeds", map[string]any{"url": "https://example.com/feed"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp.Message != "feed name is required" {
		t.Fatalf("message = %q", resp.Message)
	}

	rec, resp = e.do(t, http.MethodPost, "/api/feeds", map[string]any{"name": "Vagas", "url": "not a url"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp.Message != "feed url is invalid" {
		t.Fatalf("message = %q", resp.Message)
	}

	if len(e.feeds.feeds) != 0 {
		t.Fatalf("invalid requests must not persist feeds")
	}
}

func TestFeedCRUD(t *testing.T) {
	t.Parallel()
	e := newEnv()

	rec, resp := e.do(t, http.MethodPost, "/api/feeds", map[string]any{
		"name": "Vagas BR", "url": "https://example.com/feed", "default_region": "São Paulo",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, resp.Message)
	}
	data, _ := json.Marshal(resp.Data)
	var created model.FeedConfig
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode created feed: %v", err)
	}
	if !strings.HasPrefix(created.ID, "vagas-br-") {
		t.Fatalf("generated id %q lacks the name slug", created.ID)
	}
	if !created.Active || !created.Deduplication {
		t.Fatalf("active and deduplication must default to true")
	}

	rec, _ = e.do(t, http.MethodGet, "/api/feeds/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	inactive := false
	rec, _ = e.do(t, http.MethodPut, "/api/feeds/"+created.ID, map[string]any{
		"name": "Vagas Brasil", "url": "https://example.com/feed", "active": &inactive,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	stored := e.feeds.feeds[created.ID]
	if stored.Name != "Vagas Brasil" || stored.Active {
		t.Fatalf("update not applied: %+v", stored)
	}

	rec, _ = e.do(t, http.MethodDelete, "/api/feeds/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec, resp = e.do(t, http.MethodGet, "/api/feeds/"+created.ID, nil)
	if rec.Code != http.StatusNotFound || resp.Message != "feed not found" {
		t.Fatalf("expected 404 after delete, got %d %q", rec.Code, resp.Message)
	}
}

func TestFeedTestEndpoint(t *testing.T) {
	t.Parallel()
	e := newEnv()
	e.feeds.feeds["f1"] = &model.FeedConfig{ID: "f1", Name: "Vagas", URL: "https://example.com/feed"}
	for i := 0; i < 7; i++ {
		e.tester.candidates = append(e.tester.candidates, model.JobCandidate{Title: fmt.Sprintf("Vaga %d", i)})
	}

	rec, resp := e.do(t, http.MethodPost, "/api/feeds/f1/test", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, resp.Message)
	}
	if resp.Message != "7 jobs found" {
		t.Fatalf("message = %q", resp.Message)
	}
	payload := resp.Data.(map[string]any)
	if payload["found"].(float64) != 7 {
		t.Fatalf("found = %v", payload["found"])
	}
	if sample := payload["sample"].([]any); len(sample) != 5 {
		t.Fatalf("sample holds %d items, want 5", len(sample))
	}
	if e.tester.lastFeed.ID != "f1" {
		t.Fatalf("tester received feed %q", e.tester.lastFeed.ID)
	}

	e.tester.err = errors.New("connection reset")
	rec, _ = e.do(t, http.MethodPost, "/api/feeds/f1/test", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("fetch failure status = %d, want 502", rec.Code)
	}

	rec, _ = e.do(t, http.MethodPost, "/api/feeds/missing/test", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing feed status = %d, want 404", rec.Code)
	}
}

func TestManualImport(t *testing.T) {
	t.Parallel()
	e := newEnv()
	e.runner.summary = model.RunSummary{Imported: 4}

	rec, resp := e.do(t, http.MethodPost, "/api/import", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Message != "4 jobs imported" {
		t.Fatalf("message = %q", resp.Message)
	}

	e.runner.err = errors.New("an import run is already in progress")
	rec, _ = e.do(t, http.MethodPost, "/api/import", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlap status = %d, want 409", rec.Code)
	}

	rec, _ = e.do(t, http.MethodGet, "/api/import", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", rec.Code)
	}
}

func TestLogsEndpointPassesFilters(t *testing.T) {
	t.Parallel()
	e := newEnv()
	e.logs.entries = []model.LogEntry{{Type: model.LogError, Source: "fetcher", Message: "boom"}}

	rec, resp := e.do(t, http.MethodGet, "/api/logs?type=error&source=fetcher&limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !resp.Success {
		t.Fatalf("expected success envelope")
	}
	if e.logs.lastQ.Type != model.LogError || e.logs.lastQ.Source != "fetcher" || e.logs.lastQ.Limit != 10 {
		t.Fatalf("query not forwarded: %+v", e.logs.lastQ)
	}
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()
	e := newEnv()
	e.status.imports = 12
	e.status.listings = 7
	e.sched.next = time.Now().Add(time.Hour)

	rec, resp := e.do(t, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := resp.Data.(map[string]any)
	if data["running"].(bool) {
		t.Fatalf("no marker means not running")
	}
	if data["ledger_entries"].(float64) != 12 || data["open_listings"].(float64) != 7 {
		t.Fatalf("counts missing: %v", data)
	}
	if _, ok := data["next_run"]; !ok {
		t.Fatalf("next_run missing")
	}

	e.status.marker = &model.RunMarker{RunID: "run-1", StartedAt: time.Now().Add(-20 * time.Minute)}
	_, resp = e.do(t, http.MethodGet, "/api/status", nil)
	data = resp.Data.(map[string]any)
	if !data["running"].(bool) {
		t.Fatalf("marker present means running")
	}
	if !data["stale"].(bool) {
		t.Fatalf("a 20 minute old marker is stale")
	}
}

func TestGenerateFeedID(t *testing.T) {
	t.Parallel()

	at := time.Unix(1700000000, 0)
	if got := generateFeedID("Vagas BR!", at); got != "vagas-br-1700000000" {
		t.Fatalf("got %q", got)
	}
	if got := generateFeedID("  ", at); got != "feed-1700000000" {
		t.Fatalf("blank name: got %q", got)
	}
}
