// Package cron runs background jobs on a schedule.
package cron

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of scheduled work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler wraps a cron runner with logging and per-job error isolation.
type Scheduler struct {
	logger *slog.Logger
	cron   *cron.Cron
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger, cron: cron.New()}
}

// Add registers a job on the given cron expression (standard 5-field specs
// plus descriptors like @daily).
func (s *Scheduler) Add(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job.Run(context.Background()); err != nil {
			s.logger.Error("scheduled job failed", "job", job.Name, "error", err)
			return
		}
		s.logger.Info("scheduled job finished", "job", job.Name)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
	}
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
