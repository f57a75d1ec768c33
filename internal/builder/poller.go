package builder

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/mobilebuild/internal/appcenter"
	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
	"git.home.luguber.info/inful/mobilebuild/internal/metrics"
	"git.home.luguber.info/inful/mobilebuild/internal/retry"
)

// PollOutcome is the terminal state of a poll loop.
type PollOutcome string

const (
	PollSucceeded PollOutcome = "succeeded"
	PollFailed    PollOutcome = "failed"
	PollAborted   PollOutcome = "aborted"
)

// PollResult describes how a poll loop ended.
type PollResult struct {
	Outcome PollOutcome
	Build   *appcenter.Build // last successfully fetched status
	Fetches int
	Errors  int
	LastErr error
}

// PollSettings tunes the poll loop. Zero values take the configuration defaults.
type PollSettings struct {
	Interval      time.Duration
	ErrorInterval time.Duration
	MaxErrors     int
}

// FetchFunc fetches the current status of the polled build.
type FetchFunc func(ctx context.Context) (*appcenter.Build, error)

// Poller waits for a build to complete. Fetch errors are counted against an error
// budget that is independent of any step retry budget and is never reset by a
// successful fetch.
type Poller struct {
	fetch    FetchFunc
	settings PollSettings
	sleep    retry.SleepFunc
	logger   *slog.Logger
	recorder metrics.Recorder
	observe  func(*appcenter.Build)
}

// PollOption configures a Poller.
type PollOption func(*Poller)

func WithPollSleep(fn retry.SleepFunc) PollOption {
	return func(p *Poller) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

func WithPollLogger(l *slog.Logger) PollOption {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithPollRecorder(r metrics.Recorder) PollOption {
	return func(p *Poller) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithPollObserver is called with every successfully fetched status.
func WithPollObserver(fn func(*appcenter.Build)) PollOption {
	return func(p *Poller) { p.observe = fn }
}

// NewPoller creates a Poller for fetch.
func NewPoller(fetch FetchFunc, settings PollSettings, opts ...PollOption) *Poller {
	if settings.Interval <= 0 {
		settings.Interval = config.DefaultPollInterval
	}
	if settings.ErrorInterval <= 0 {
		settings.ErrorInterval = config.DefaultPollErrorWait
	}
	if settings.MaxErrors <= 0 {
		settings.MaxErrors = config.DefaultPollMaxErrors
	}
	p := &Poller{
		fetch:    fetch,
		settings: settings,
		sleep:    retry.Sleep,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll fetches until the build completes or the error budget is spent. It returns a
// non-nil error only when ctx ends first.
func (p *Poller) Poll(ctx context.Context) (PollResult, error) {
	var res PollResult
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		build, err := p.fetch(ctx)
		res.Fetches++
		if err == nil && build == nil {
			err = errors.RemoteError("build status response was empty").Build()
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Errors++
			res.LastErr = err
			p.recorder.IncPollError()
			if res.Errors >= p.settings.MaxErrors {
				p.logger.Warn("Build status polling gave up",
					slog.Int("errors", res.Errors),
					logfields.Error(err))
				res.Outcome = PollAborted
				return res, nil
			}
			p.logger.Warn("Build status check failed, retrying",
				slog.Int("errors", res.Errors),
				slog.Duration("delay", p.settings.ErrorInterval),
				logfields.Error(err))
			if err := p.sleep(ctx, p.settings.ErrorInterval); err != nil {
				return res, err
			}
			continue
		}

		res.Build = build
		if p.observe != nil {
			p.observe(build)
		}
		if build.Completed() {
			res.Outcome = PollFailed
			if build.Succeeded() {
				res.Outcome = PollSucceeded
			}
			return res, nil
		}
		if err := p.sleep(ctx, p.settings.Interval); err != nil {
			return res, err
		}
	}
}
