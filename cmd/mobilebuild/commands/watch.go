package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
	ferrors "git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
	"git.home.luguber.info/inful/mobilebuild/internal/metrics"
	"git.home.luguber.info/inful/mobilebuild/internal/schedule"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (overrides metrics.listen_addr)"`
	Report      string `help:"Write a report of every run to this file (.md or .html)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	r := newRunner(g.Logger)
	sr := schedule.NewRunner(root.Config, loadConfig,
		func(ctx context.Context, cfg *config.Config) error {
			return r.execute(ctx, cfg, runOptions{Report: w.Report, MetricsFile: cfg.Metrics.TextfilePath})
		},
		schedule.WithLogger(g.Logger),
	)
	if err := sr.Start(ctx); err != nil {
		return err
	}

	addr := w.MetricsAddr
	if addr == "" {
		addr = sr.Current().Metrics.ListenAddr
	}
	var srv *http.Server
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(r.registry))
		srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			g.Logger.Info("Serving metrics", logfields.URL("http://"+addr+"/metrics"))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				g.Logger.Error("Metrics server failed", logfields.Error(err))
			}
		}()
	}

	<-ctx.Done()
	g.Logger.Info("Shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	if err := sr.Stop(); err != nil {
		return ferrors.RuntimeError("failed to stop scheduler").WithCause(err).Build()
	}
	return nil
}
