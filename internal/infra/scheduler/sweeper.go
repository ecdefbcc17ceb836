package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

const defaultSweepInterval = 5 * time.Minute

// SessionStore is the slice of the session registry the sweeper needs.
type SessionStore interface {
	Sweep(idle time.Duration) int
}

// Sweeper periodically evicts route sessions that have been idle for too long.
type Sweeper struct {
	scheduler *gocron.Scheduler
	store     SessionStore
	idleTTL   time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewSweeper creates a sweeper. A non-positive idleTTL disables eviction.
func NewSweeper(store SessionStore, idleTTL, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		idleTTL:   idleTTL,
		interval:  interval,
		logger:    logger.With("component", "scheduler.sweeper"),
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Sweeper) Start() error {
	if s.idleTTL <= 0 {
		s.logger.Info("session sweeping disabled")
		return nil
	}
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() { s.SweepOnce() })
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("session sweeper started", "interval", s.interval, "idle_ttl", s.idleTTL)
	return nil
}

// SweepOnce evicts idle sessions and returns how many were removed.
func (s *Sweeper) SweepOnce() int {
	removed := s.store.Sweep(s.idleTTL)
	if removed > 0 {
		s.logger.Info("idle sessions evicted", "count", removed)
	}
	return removed
}

// Stop stops the scheduler and cancels any future runs.
func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
