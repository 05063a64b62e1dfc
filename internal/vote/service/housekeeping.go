package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/openballot/votegate/internal/vote/challenge"
	"github.com/openballot/votegate/internal/vote/ratelimit"
	"github.com/openballot/votegate/internal/vote/store"
)

// HousekeepingService periodically removes expired records to prevent
// unbounded growth of sessions, outstanding challenges, and rate-limit
// windows.
type HousekeepingService struct {
	Store      store.Store
	Challenges challenge.Store
	Limiter    *ratelimit.Limiter
	Logger     *slog.Logger
	Interval   time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, ch challenge.Store, rl *ratelimit.Limiter, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:      st,
		Challenges: ch,
		Limiter:    rl,
		Logger:     logger,
		Interval:   interval,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() for a
// graceful shutdown.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the background worker. Blocks until any in-progress
// sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a sweep immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep performs the deletions. Each sweep is independent; a failure in
// one does not stop the others.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	s.Logger.Debug("starting housekeeping sweep")

	if err := s.Store.Sessions().DeleteExpiredSessions(ctx); err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	}

	if err := s.Challenges.Sweep(ctx); err != nil {
		s.Logger.Error("failed to sweep expired challenges", "error", err)
	}

	if err := s.Limiter.Sweep(ctx); err != nil {
		s.Logger.Error("failed to sweep rate limit windows", "error", err)
	}

	s.Logger.Debug("housekeeping sweep completed")
}
