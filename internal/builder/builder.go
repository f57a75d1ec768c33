package builder

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/events"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
	"git.home.luguber.info/inful/mobilebuild/internal/metrics"
	"git.home.luguber.info/inful/mobilebuild/internal/retry"
)

// Step names used in logs, metrics and events.
const (
	StageResolveIdentity = "resolve_identity"
	StageUpsertProject   = "upsert_project"
	StageConnectRepo     = "connect_repo"
	StageConfigureBuild  = "configure_build"
	StageTriggerBuild    = "trigger_build"
	StageWaitEstimate    = "wait_estimate"
	StagePollCompletion  = "poll_completion"
	StageDisconnectRepo  = "disconnect_repo"
	StageDownloadPath    = "download_path"
)

const disconnectRemediation = "Please disconnect repo manually after build completes"

// ErrorHandler observes the error that aborted a run before Run returns it.
type ErrorHandler func(err error)

// Builder orchestrates one build run for one project.
type Builder struct {
	cfg       *config.Config
	svc       Service
	logger    *slog.Logger
	recorder  metrics.Recorder
	publisher events.Publisher
	sleep     retry.SleepFunc
	policy    retry.Policy
	onError   ErrorHandler
	runID     string
	verbose   bool
}

// Option configures a Builder.
type Option func(*Builder)

func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(b *Builder) {
		if p != nil {
			b.publisher = p
		}
	}
}

// WithSleep replaces every wait of the run: retry delays, the estimate wait and poll intervals.
func WithSleep(fn retry.SleepFunc) Option {
	return func(b *Builder) {
		if fn != nil {
			b.sleep = fn
		}
	}
}

// WithErrorHandler registers a callback invoked with the error that aborts a run.
func WithErrorHandler(h ErrorHandler) Option {
	return func(b *Builder) { b.onError = h }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(b *Builder) {
		if id != "" {
			b.runID = id
		}
	}
}

// New creates a Builder for cfg talking to svc.
func New(cfg *config.Config, svc Service, opts ...Option) *Builder {
	b := &Builder{
		cfg:       cfg,
		svc:       svc,
		logger:    slog.Default(),
		recorder:  metrics.NoopRecorder{},
		publisher: events.NoopPublisher{},
		sleep:     retry.Sleep,
		policy:    retry.FromConfig(cfg.Retry),
		runID:     uuid.NewString(),
		verbose:   cfg.Verbose(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(
		logfields.RunID(b.runID),
		logfields.Project(cfg.Project.Name),
		logfields.Owner(ownerName(cfg.Owner)),
	)
	return b
}

// RunID identifies this run in logs, events and history.
func (b *Builder) RunID() string { return b.runID }

// Run executes every step in order and returns the context of the finished build.
// The first non-ignored failure aborts the run; it is passed to the error handler and
// returned.
func (b *Builder) Run(ctx context.Context) (*BuildContext, error) {
	start := time.Now()
	b.emit(ctx, events.Event{Type: events.RunStarted})
	b.info("Build run started", logfields.Branch(b.Branch()))

	bc, err := b.run(ctx)
	b.recorder.ObserveRunDuration(time.Since(start))

	if err != nil {
		b.recorder.IncRunOutcome(Outcome(err))
		b.emit(ctx, events.Event{Type: events.RunFailed, Message: err.Error()})
		b.logger.Error("Build run failed", logfields.Error(err))
		if b.onError != nil {
			b.onError(err)
		}
		return nil, err
	}

	b.recorder.IncRunOutcome(metrics.OutcomeSucceeded)
	b.emit(ctx, events.Event{Type: events.RunSucceeded, BuildID: bc.BuildID()})
	b.info("Build run finished", logfields.BuildID(bc.BuildID()), slog.Duration("elapsed", time.Since(start)))
	return bc, nil
}

func (b *Builder) run(ctx context.Context) (*BuildContext, error) {
	if err := b.retryStage(ctx, StageResolveIdentity, b.resolveIdentity); err != nil {
		return nil, err
	}
	if err := b.retryStage(ctx, StageUpsertProject, b.upsertProject); err != nil {
		return nil, err
	}
	if err := b.retryStage(ctx, StageConnectRepo, b.connectRepo); err != nil {
		return nil, err
	}
	if err := b.retryStage(ctx, StageConfigureBuild, b.configureBuild); err != nil {
		return nil, err
	}

	var buildID int
	if err := b.retryStage(ctx, StageTriggerBuild, func(ctx context.Context) error {
		id, err := b.triggerBuild(ctx)
		buildID = id
		return err
	}); err != nil {
		return nil, err
	}

	bc := newBuildContext(b, buildID)
	b.info("Build triggered", logfields.BuildID(buildID), logfields.URL(bc.StatusURL()))
	b.emit(ctx, events.Event{Type: events.BuildTriggered, BuildID: buildID, Message: bc.StatusURL()})

	if err := b.stage(ctx, StageWaitEstimate, func(ctx context.Context) error {
		wait := b.cfg.EstimatedBuildDuration()
		b.info("Waiting for estimated build duration", slog.Duration("estimate", wait))
		return b.sleep(ctx, wait)
	}); err != nil {
		return nil, err
	}

	if err := b.stage(ctx, StagePollCompletion, func(ctx context.Context) error {
		return b.awaitCompletion(ctx, bc)
	}); err != nil {
		return nil, err
	}

	if b.cfg.DisconnectOnFinish {
		bc.Disconnect(ctx)
	}
	return bc, nil
}

// retryStage runs fn under a fresh retry budget owned by this run.
func (b *Builder) retryStage(ctx context.Context, name string, fn func(context.Context) error) error {
	step := b.newStep(name)
	return b.stage(ctx, name, func(ctx context.Context) error {
		return step.Do(ctx, fn)
	})
}

func (b *Builder) newStep(name string) *retry.Step {
	return retry.NewStep(name, b.policy,
		retry.WithSleep(b.sleep),
		retry.WithLogger(b.logger),
		retry.WithRecorder(b.recorder))
}

// stage times fn and reports its result.
func (b *Builder) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	b.info("Step started", logfields.Stage(name))
	b.emit(ctx, events.Event{Type: events.StageStarted, Stage: name})

	err := fn(ctx)
	b.recorder.ObserveStageDuration(name, time.Since(start))

	if err != nil {
		result := metrics.ResultFailed
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			result = metrics.ResultCanceled
		}
		b.recorder.IncStageResult(name, result)
		b.emit(ctx, events.Event{Type: events.StageFailed, Stage: name, Message: err.Error()})
		return err
	}

	b.recorder.IncStageResult(name, metrics.ResultSuccess)
	b.emit(ctx, events.Event{Type: events.StageSucceeded, Stage: name})
	b.info("Step finished", logfields.Stage(name), slog.Duration("elapsed", time.Since(start)))
	return nil
}

// info logs step transitions unless the configuration asks for quiet output.
func (b *Builder) info(msg string, attrs ...any) {
	if b.verbose {
		b.logger.Info(msg, attrs...)
	}
}

// emit publishes ev; delivery failures are logged and never affect the run.
func (b *Builder) emit(ctx context.Context, ev events.Event) {
	ev.RunID = b.runID
	ev.Project = b.cfg.Project.Name
	ev.Owner = ownerName(b.cfg.Owner)
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if err := b.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		b.logger.Warn("Failed to publish event", slog.String("type", string(ev.Type)), logfields.Error(err))
	}
}

// Branch is the branch the run configures and builds: the configured one, else master.
func (b *Builder) Branch() string {
	if b.cfg.Repo.Branch == "" {
		return config.DefaultBranch
	}
	return b.cfg.Repo.Branch
}

func ownerName(o config.Owner) string {
	if o == nil {
		return ""
	}
	return o.OwnerName()
}

// Outcome classifies the error returned by Run: canceled, aborted (poll error budget
// spent) or failed.
func Outcome(err error) metrics.OutcomeLabel {
	switch {
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	case errors.HasCategory(err, errors.CategoryBuild):
		if ce, ok := errors.AsClassified(err); ok && ce.Aborted() {
			return metrics.OutcomeAborted
		}
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeFailed
	}
}
