package importer

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"bookarr/internal/settings"
)

// passRunner is what the scheduler drives; *Importer in production.
type passRunner interface {
	RunPass(ctx context.Context) error
}

// Scheduler runs reconciliation passes: one immediately on Start (when
// enabled), then on a fixed interval. An atomic in-progress flag guards the
// whole pass; a tick that fires while a pass is still running is dropped,
// never queued, because a pass mutates the store and the filesystem
// non-transactionally and must not overlap with itself.
type Scheduler struct {
	Runner   passRunner
	Settings *settings.Store

	running  atomic.Bool
	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewScheduler(runner passRunner, store *settings.Store) *Scheduler {
	return &Scheduler{
		Runner:   runner,
		Settings: store,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the sync loop. Returns immediately; passes run on a
// background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.started.Store(true)

	if !s.Settings.Bool(ctx, "readarr_sync_enabled") {
		log.Printf("[sync] disabled, scheduler not started")
		close(s.done)
		return
	}

	interval := time.Duration(s.Settings.Int(ctx, "readarr_sync_interval", 300)) * time.Second
	log.Printf("[sync] scheduler started (interval: %s)", interval)

	go func() {
		defer close(s.done)

		go s.runOnce()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				go s.runOnce()
			case <-s.stop:
				return
			}
		}
	}()
}

// runOnce executes a single pass unless one is already in flight.
func (s *Scheduler) runOnce() {
	if !s.running.CompareAndSwap(false, true) {
		log.Printf("[sync] pass already running, skipping tick")
		return
	}
	defer s.running.Store(false)

	// The pass owns its own lifetime: stopping the scheduler cancels future
	// ticks but lets an in-flight pass finish, so a half-copied file is
	// never recorded as imported.
	if err := s.Runner.RunPass(context.Background()); err != nil {
		log.Printf("[sync] pass failed: %v", err)
	}
}

// Stop cancels the interval. Any in-flight pass keeps running to
// completion on its own goroutine. Safe to call without a prior Start,
// and more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	if !s.started.Load() {
		// done is only ever closed by Start's paths
		return
	}
	<-s.done
}
