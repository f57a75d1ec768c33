package commands

import (
	"context"
	"log/slog"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mobilebuild/internal/artifact"
	"git.home.luguber.info/inful/mobilebuild/internal/builder"
	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/events"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/history"
	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
	"git.home.luguber.info/inful/mobilebuild/internal/metrics"
	"git.home.luguber.info/inful/mobilebuild/internal/report"
)

// runOptions are the optional outputs of one build run.
type runOptions struct {
	Download     string
	DownloadKind config.DownloadKind
	Report       string
	MetricsFile  string
}

// runner executes build runs sharing one metrics registry.
type runner struct {
	logger   *slog.Logger
	registry *prom.Registry
	recorder *metrics.PrometheusRecorder
	// newService lets tests point runs at a fake remote.
	newService func(cfg *config.Config, logger *slog.Logger, rec metrics.Recorder) builder.Service
	sleep      func(ctx context.Context, d time.Duration) error
}

func newRunner(logger *slog.Logger) *runner {
	reg := prom.NewRegistry()
	return &runner{
		logger:   logger,
		registry: reg,
		recorder: metrics.NewPrometheusRecorder(reg),
		newService: func(cfg *config.Config, logger *slog.Logger, rec metrics.Recorder) builder.Service {
			return newClient(cfg, logger, rec)
		},
	}
}

// execute runs the pipeline once, then downloads, records history, writes the report
// and exports metrics as requested. The run error is returned after every output has
// been attempted; output failures are logged.
func (r *runner) execute(ctx context.Context, cfg *config.Config, opts runOptions) error {
	trail := &events.Recorder{}
	pubs := []events.Publisher{trail}

	if natsPub, err := events.FromConfig(cfg.Events); err != nil {
		r.logger.Warn("Event publishing disabled", logfields.Error(err))
	} else {
		pubs = append(pubs, natsPub)
	}

	var store *history.Store
	if cfg.History.Path != "" {
		s, err := history.Open(cfg.History.Path)
		if err != nil {
			r.logger.Warn("Run history disabled", logfields.Path(cfg.History.Path), logfields.Error(err))
		} else {
			store = s
			defer func() { _ = store.Close() }()
			pubs = append(pubs, history.NewPublisher(store))
		}
	}
	pub := events.Multi(pubs...)
	defer func() {
		if err := pub.Close(); err != nil {
			r.logger.Warn("Failed to close event publishers", logfields.Error(err))
		}
	}()

	opt := []builder.Option{
		builder.WithLogger(r.logger),
		builder.WithRecorder(r.recorder),
		builder.WithPublisher(pub),
	}
	if r.sleep != nil {
		opt = append(opt, builder.WithSleep(r.sleep))
	}
	b := builder.New(cfg, r.newService(cfg, r.logger, r.recorder), opt...)

	started := time.Now()
	bc, runErr := b.Run(ctx)
	if runErr == nil && opts.Download != "" {
		runErr = r.download(ctx, bc, opts)
	}

	run := history.Run{
		RunID:      b.RunID(),
		Project:    cfg.Project.Name,
		Owner:      cfg.Owner.OwnerName(),
		Branch:     b.Branch(),
		Outcome:    string(metrics.OutcomeSucceeded),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if bc != nil {
		run.BuildID = bc.BuildID()
		run.StatusURL = bc.StatusURL()
	}
	if runErr != nil {
		run.Outcome = string(builder.Outcome(runErr))
		run.Error = runErr.Error()
		if ce, ok := errors.AsClassified(runErr); ok {
			if id, ok := ce.BuildID(); ok {
				run.BuildID = id
			}
			if u, ok := ce.StatusURL(); ok {
				run.StatusURL = u
			}
		}
	}

	if store != nil {
		if err := store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
			r.logger.Warn("Failed to record run history", logfields.Error(err))
		}
	}
	if opts.Report != "" {
		if err := report.Write(opts.Report, report.Summary{Run: run, Events: trail.Events}); err != nil {
			r.logger.Warn("Failed to write report", logfields.Path(opts.Report), logfields.Error(err))
		} else {
			r.logger.Info("Report written", logfields.Path(opts.Report))
		}
	}
	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile, r.registry); err != nil {
			r.logger.Warn("Failed to write metrics", logfields.Path(opts.MetricsFile), logfields.Error(err))
		}
	}
	return runErr
}

func (r *runner) download(ctx context.Context, bc *builder.BuildContext, opts runOptions) error {
	kind := opts.DownloadKind
	if kind == "" {
		kind = config.DownloadBuild
	}
	uri, err := bc.DownloadPath(ctx, kind)
	if err != nil {
		return err
	}
	return artifact.NewExtractor(artifact.WithLogger(r.logger)).ExtractBuild(ctx, uri, opts.Download)
}
