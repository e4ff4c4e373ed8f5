package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsDigest/internal/ports"
)

// Scheduler wires the interval driver with the profile pipelines.
type Scheduler struct {
	driver    ports.Scheduler
	pipelines []*Pipeline
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs of every pipeline.
func NewScheduler(driver ports.Scheduler, logger *slog.Logger, pipelines ...*Pipeline) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipelines: pipelines, logger: logger.With("component", "scheduler")}
}

// Start registers the pipelines with the provided scheduler. Profiles run one after
// another inside a tick, and a failed profile does not stop the others.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || len(s.pipelines) == 0 {
		return nil
	}

	job := func(trigger time.Time) {
		for _, p := range s.pipelines {
			if ctx.Err() != nil {
				return
			}
			if _, err := p.Run(ctx, trigger); err != nil {
				s.logger.Error("scheduled run failed", "profile", p.Profile(), "error", err)
			}
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
