package retry

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
	"git.home.luguber.info/inful/mobilebuild/internal/metrics"
)

// SleepFunc waits for d or until ctx is done, returning ctx.Err() in the latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Step wraps one named operation with a bounded retry budget.
//
// The budget belongs to the Step: repeated Do calls on the same Step share it, and
// separate Steps never do. A Step is not safe for concurrent use; create one per
// step per run.
type Step struct {
	name     string
	policy   Policy
	sleep    SleepFunc
	logger   *slog.Logger
	recorder metrics.Recorder
	retries  int
}

// Option configures a Step.
type Option func(*Step)

// WithSleep replaces the sleep used between attempts (tests inject a recorder).
func WithSleep(fn SleepFunc) Option {
	return func(s *Step) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Step) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder for retry counters.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Step) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewStep creates a Step with a fresh budget.
func NewStep(name string, policy Policy, opts ...Option) *Step {
	s := &Step{
		name:     name,
		policy:   policy,
		sleep:    Sleep,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name used in logs and metrics.
func (s *Step) Name() string { return s.name }

// Retries returns how much of the budget has been consumed.
func (s *Step) Retries() int { return s.retries }

// Do invokes fn, re-invoking it after any error while budget remains. When the
// budget is exhausted the last error is returned unchanged.
func (s *Step) Do(ctx context.Context, fn func(context.Context) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if s.retries >= s.policy.MaxRetries {
			if s.policy.MaxRetries > 0 {
				s.recorder.IncRetryExhausted(s.name)
			}
			return err
		}
		s.retries++
		delay := s.policy.Delay(s.retries)
		s.logger.Warn("Step failed, retrying",
			logfields.Stage(s.name),
			logfields.Attempt(s.retries),
			slog.Duration("delay", delay),
			logfields.Error(err))
		s.recorder.IncRetry(s.name)
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Call is Do for operations that return a value.
func Call[T any](ctx context.Context, s *Step, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := s.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
