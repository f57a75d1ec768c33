// Package schedule runs builds on a cron schedule and reloads the configuration when
// its file changes.
package schedule

import (
	"fmt"
	"log/slog"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
)

// Scheduler wraps a gocron scheduler. Jobs never overlap: a tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts down the scheduler and waits for running jobs.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleCron registers fn under a five-field cron expression and returns the job id.
func (s *Scheduler) ScheduleCron(name, expr string, fn func()) (uuid.UUID, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return uuid.Nil, errors.ValidationError("invalid cron schedule").
			WithCause(err).
			WithContext("schedule", expr).
			Build()
	}
	s.logger.Info("Job scheduled", logfields.Name(name), logfields.Schedule(expr))
	return job.ID(), nil
}

// Reschedule replaces the cron expression of an existing job.
func (s *Scheduler) Reschedule(id uuid.UUID, name, expr string, fn func()) error {
	_, err := s.scheduler.Update(id,
		gocron.CronJob(expr, false),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.ValidationError("failed to reschedule job").
			WithCause(err).
			WithContext("schedule", expr).
			Build()
	}
	s.logger.Info("Job rescheduled", logfields.Name(name), logfields.Schedule(expr))
	return nil
}
