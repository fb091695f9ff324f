// Package fetcher retrieves raw feed payloads over HTTP with a timeout and
// a best-effort persisted cache keyed by a hash of the URL.
package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Config controls fetch behavior.
type Config struct {
	TimeoutSeconds  int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`
	UserAgent       string `yaml:"user_agent" json:"user_agent"`
}

// FetchError reports a failed feed fetch: a transport error or a non-200
// status. The message always carries the status code or the underlying
// error so the log line is actionable.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Cache is the persisted key-value layer the fetcher caches payloads in.
// Failures on either side are non-fatal: the fetcher degrades to
// always-fetch when the cache is unavailable.
type Cache interface {
	CacheGet(ctx context.Context, key string) ([]byte, bool, error)
	CacheSet(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Fetcher performs HTTP GETs with a timeout and caches successful payloads.
type Fetcher struct {
	client  *http.Client
	cache   Cache
	ttl     time.Duration
	timeout time.Duration
	ua      string
	logger  *log.Logger
}

// New creates a Fetcher. A nil client gets a default one; a nil cache
// disables caching entirely.
func New(cfg Config, client *http.Client, cache Cache) *Fetcher {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	if cfg.CacheTTLSeconds <= 0 {
		cfg.CacheTTLSeconds = 3600
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "job-killer/1.0 (+feed importer)"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:  client,
		cache:   cache,
		ttl:     time.Duration(cfg.CacheTTLSeconds) * time.Second,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		ua:      cfg.UserAgent,
		logger:  log.New(os.Stdout, "[fetcher] ", log.LstdFlags),
	}
}

// CacheKey returns the cache key for a feed URL.
func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "feed:" + hex.EncodeToString(sum[:])
}

// Fetch returns the raw payload for url, serving from cache when a fresh
// copy exists. Network fetches block up to the configured timeout.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := CacheKey(url)
	if f.cache != nil {
		if payload, ok, err := f.cache.CacheGet(ctx, key); err != nil {
			f.logger.Printf("cache read failed for %s: %v", url, err)
		} else if ok {
			return payload, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.ua)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	if f.cache != nil {
		if err := f.cache.CacheSet(ctx, key, payload, f.ttl); err != nil {
			f.logger.Printf("cache write failed for %s: %v", url, err)
		}
	}
	return payload, nil
}
