package commands

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Timeout      time.Duration `help:"Abort the run after this duration (0 waits indefinitely)"`
	Download     string        `help:"Extract the build artifact to this path (extension selects the bundle, e.g. .ipa or .apk)"`
	DownloadKind string        `name:"download-kind" help:"Artifact kind to download (build, symbol, logs, mapping, bundle)" default:"build"`
	Report       string        `help:"Write a run report to this file (.md or .html)"`
	MetricsFile  string        `name:"metrics-file" help:"Write Prometheus metrics in textfile format to this path"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	kind := config.NormalizeDownloadKind(b.DownloadKind)
	if kind == "" {
		return errors.ValidationError(fmt.Sprintf("unknown download kind %q", b.DownloadKind)).Build()
	}

	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	return newRunner(g.Logger).execute(ctx, cfg, runOptions{
		Download:     b.Download,
		DownloadKind: kind,
		Report:       b.Report,
		MetricsFile:  b.MetricsFile,
	})
}
