// Package scheduler triggers import and cleanup runs on a fixed interval
// or a 5-field cron spec.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"job-killer/internal/model"
)

// Config holds schedule settings. Interval accepts either a Go duration
// ("30m") or a cron spec ("*/30 * * * *"); the default is every 30
// minutes. CleanupInterval drives the retention/expiry jobs, default daily.
type Config struct {
	Interval        string `yaml:"interval" json:"interval"`
	CleanupInterval string `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// Runner is the orchestrator surface driven by the scheduler.
type Runner interface {
	Run(ctx context.Context) (model.RunSummary, error)
	Cleanup(ctx context.Context) error
}

// Scheduler drives periodic runs. Overlapping in-process runs are
// prevented by the atomic running flag; the cross-run duplicate guarantee
// lives in the ledger's unique constraint, not here.
type Scheduler struct {
	runner          Runner
	interval        time.Duration
	schedule        cron.Schedule
	cleanupInterval time.Duration
	running         atomic.Bool
	nextRun         atomic.Int64
	newTicker       func(time.Duration) ticker
	now             func() time.Time
	logger          *log.Logger
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

// New creates a Scheduler from config.
func New(runner Runner, cfg Config) *Scheduler {
	interval, schedule := parseSchedule(cfg.Interval)
	cleanup := 24 * time.Hour
	if cfg.CleanupInterval != "" {
		if d, err := time.ParseDuration(cfg.CleanupInterval); err == nil && d > 0 {
			cleanup = d
		}
	}
	return &Scheduler{
		runner:          runner,
		interval:        interval,
		schedule:        schedule,
		cleanupInterval: cleanup,
		newTicker:       defaultTicker,
		now:             time.Now,
		logger:          log.New(os.Stdout, "[scheduler] ", log.LstdFlags),
	}
}

// parseSchedule accepts a duration first, then a standard cron spec, and
// falls back to 30 minutes.
func parseSchedule(value string) (time.Duration, cron.Schedule) {
	trimmed := strings.TrimSpace(value)
	if trimmed != "" {
		if d, err := time.ParseDuration(trimmed); err == nil && d > 0 {
			return d, nil
		}
		if schedule, err := cron.ParseStandard(trimmed); err == nil {
			return 0, schedule
		}
	}
	return 30 * time.Minute, nil
}

// Start runs the import and cleanup loops until the context is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.runner == nil {
		return fmt.Errorf("scheduler missing runner")
	}

	g, ctx := errgroup.WithContext(ctx)

	if s.schedule != nil {
		g.Go(func() error { return s.runCron(ctx) })
	} else {
		g.Go(func() error { return s.runInterval(ctx) })
	}
	g.Go(func() error { return s.runCleanup(ctx) })

	return g.Wait()
}

func (s *Scheduler) runInterval(ctx context.Context) error {
	tick := s.newTicker(s.interval)
	defer tick.Stop()
	ch := tick.C()
	s.nextRun.Store(s.now().Add(s.interval).UnixNano())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			s.trigger(ctx)
			s.nextRun.Store(s.now().Add(s.interval).UnixNano())
			// Drop ticks queued while a run was in flight.
		drain:
			for {
				select {
				case <-ch:
					continue
				default:
					break drain
				}
			}
		}
	}
}

func (s *Scheduler) runCron(ctx context.Context) error {
	for {
		next := s.schedule.Next(s.now())
		s.nextRun.Store(next.UnixNano())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			s.trigger(ctx)
		}
	}
}

func (s *Scheduler) runCleanup(ctx context.Context) error {
	tick := s.newTicker(s.cleanupInterval)
	defer tick.Stop()
	ch := tick.C()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			if err := s.runner.Cleanup(ctx); err != nil {
				s.logger.Printf("cleanup: %v", err)
			}
		}
	}
}

// trigger starts a run unless one is already in flight in this process.
func (s *Scheduler) trigger(ctx context.Context) {
	if s.running.Swap(true) {
		s.logger.Printf("run already in progress, skipping trigger")
		return
	}
	defer s.running.Store(false)

	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Printf("run failed: %v", err)
	}
}

// RunOnce exposes a manual run for the admin API, subject to the same
// overlap guard. The zero summary is returned when a run is already in
// flight.
func (s *Scheduler) RunOnce(ctx context.Context) (model.RunSummary, error) {
	if s.running.Swap(true) {
		return model.RunSummary{}, fmt.Errorf("an import run is already in progress")
	}
	defer s.running.Store(false)
	return s.runner.Run(ctx)
}

// NextRun reports when the next scheduled run fires, zero before Start.
func (s *Scheduler) NextRun() time.Time {
	ns := s.nextRun.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func defaultTicker(d time.Duration) ticker {
	t := time.NewTicker(d)
	return tickerWrapper{t}
}

type tickerWrapper struct {
	*time.Ticker
}

func (t tickerWrapper) C() <-chan time.Time { return t.Ticker.C }
func (t tickerWrapper) Stop()               { t.Ticker.Stop() }
