package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
)

const jobName = "mobilebuild-run"

// LoadFunc loads the configuration at path.
type LoadFunc func(path string) (*config.Config, error)

// RunFunc performs one build run with cfg.
type RunFunc func(ctx context.Context, cfg *config.Config) error

// Runner triggers RunFunc on the configured cron schedule. Each tick uses the most
// recently loaded configuration; a configuration that fails to load keeps the
// previous one active.
type Runner struct {
	path     string
	load     LoadFunc
	run      RunFunc
	debounce time.Duration
	logger   *slog.Logger

	sched   *Scheduler
	watcher *ConfigWatcher

	mu    sync.RWMutex
	ctx   context.Context
	cfg   *config.Config
	jobID uuid.UUID
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) RunnerOption {
	return func(r *Runner) { r.debounce = d }
}

// NewRunner creates a Runner for the configuration file at path.
func NewRunner(path string, load LoadFunc, run RunFunc, opts ...RunnerOption) *Runner {
	r := &Runner{path: path, load: load, run: run, logger: slog.Default(), ctx: context.Background()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start loads the configuration, schedules the job and starts watching the file.
func (r *Runner) Start(ctx context.Context) error {
	cfg, err := r.load(r.path)
	if err != nil {
		return err
	}
	if cfg.Schedule.Cron == "" {
		return errors.ConfigError("schedule.cron is required for scheduled runs").WithContext("path", r.path).Build()
	}

	sched, err := NewScheduler(r.logger)
	if err != nil {
		return errors.InternalError("failed to create scheduler").WithCause(err).Build()
	}
	id, err := sched.ScheduleCron(jobName, cfg.Schedule.Cron, r.tick)
	if err != nil {
		_ = sched.Stop()
		return err
	}

	r.mu.Lock()
	r.ctx = ctx
	r.cfg = cfg
	r.jobID = id
	r.sched = sched
	r.mu.Unlock()

	watcher, err := NewConfigWatcher(r.path, r.debounce, r.logger, func(context.Context) {
		if err := r.Reload(); err != nil {
			r.logger.Error("Failed to reload configuration", logfields.Error(err))
		}
	})
	if err != nil {
		_ = sched.Stop()
		return errors.InternalError("failed to create config watcher").WithCause(err).Build()
	}
	if err := watcher.Start(ctx); err != nil {
		_ = watcher.Stop()
		_ = sched.Stop()
		return errors.FileSystemError("failed to watch configuration").WithCause(err).Build()
	}
	r.watcher = watcher

	sched.Start()
	return nil
}

// Stop stops watching and waits for a running build to finish.
func (r *Runner) Stop() error {
	if r.watcher != nil {
		_ = r.watcher.Stop()
	}
	if r.sched != nil {
		return r.sched.Stop()
	}
	return nil
}

// Current returns the active configuration.
func (r *Runner) Current() *config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Reload loads the configuration again and reschedules the job if the cron
// expression changed.
func (r *Runner) Reload() error {
	cfg, err := r.load(r.path)
	if err != nil {
		return err
	}
	if cfg.Schedule.Cron == "" {
		return errors.ConfigError("schedule.cron is required for scheduled runs").WithContext("path", r.path).Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg != nil && cfg.Schedule.Cron != r.cfg.Schedule.Cron && r.sched != nil {
		if err := r.sched.Reschedule(r.jobID, jobName, cfg.Schedule.Cron, r.tick); err != nil {
			return err
		}
	}
	r.cfg = cfg
	r.logger.Info("Configuration reloaded", logfields.Project(cfg.Project.Name), logfields.Schedule(cfg.Schedule.Cron))
	return nil
}

// tick runs one build with the active configuration. Failures are logged; the
// schedule keeps going.
func (r *Runner) tick() {
	r.mu.RLock()
	ctx, cfg := r.ctx, r.cfg
	r.mu.RUnlock()
	if ctx.Err() != nil || cfg == nil {
		return
	}

	r.logger.Info("Scheduled run starting", logfields.Project(cfg.Project.Name))
	if err := r.run(ctx, cfg); err != nil {
		r.logger.Error("Scheduled run failed", logfields.Project(cfg.Project.Name), logfields.Error(err))
		return
	}
	r.logger.Info("Scheduled run finished", logfields.Project(cfg.Project.Name))
}
