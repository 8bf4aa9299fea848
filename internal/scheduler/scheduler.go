// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/spatalkback/talkback/internal/database/repository"
)

// TaskObserver receives the duration and outcome of every job run
type TaskObserver interface {
	ObserveTask(job string, duration time.Duration, err error)
}

// Scheduler wraps a gocron scheduler
type Scheduler struct {
	cron     gocron.Scheduler
	observer TaskObserver
	logger   *slog.Logger
}

// New creates a Scheduler; observer may be nil
func New(observer TaskObserver, logger *slog.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}
	return &Scheduler{cron: cron, observer: observer, logger: logger}, nil
}

// Every runs job at a fixed interval, never overlapping with itself
func (s *Scheduler) Every(name string, interval time.Duration, job func(ctx context.Context) error) error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func(ctx context.Context) {
			start := time.Now()
			err := job(ctx)
			if s.observer != nil {
				s.observer.ObserveTask(name, time.Since(start), err)
			}
			if err != nil {
				s.logger.Error("❌ [Scheduler] Job failed", "job", name, "error", err)
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	s.logger.Info("⏰ [Scheduler] Job scheduled", "job", name, "interval", interval)
	return nil
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("✅ [Scheduler] Started", "jobs", len(s.cron.Jobs()))
}

// Stop waits for running jobs and shuts the scheduler down
func (s *Scheduler) Stop() error {
	s.logger.Info("🛑 [Scheduler] Stopping")
	return s.cron.Shutdown()
}

// TokenSweep removes expired and revoked refresh tokens
func TokenSweep(tokens repository.RefreshTokenRepository, logger *slog.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		removed, err := tokens.DeleteExpiredTokens()
		if err != nil {
			return fmt.Errorf("deleting expired tokens: %w", err)
		}
		if removed > 0 {
			logger.Info("🧹 [Scheduler] Refresh tokens swept", "removed", removed)
		}
		return nil
	}
}
