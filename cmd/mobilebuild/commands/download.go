package commands

import (
	"fmt"

	"git.home.luguber.info/inful/mobilebuild/internal/artifact"
	"git.home.luguber.info/inful/mobilebuild/internal/builder"
	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/metrics"
)

// DownloadCmd implements the 'download' command.
type DownloadCmd struct {
	BuildID int    `name:"build-id" required:"" help:"Identifier of the build"`
	Kind    string `help:"Artifact kind (build, symbol, logs, mapping, bundle)" default:"build"`
	Output  string `short:"o" help:"Extract the bundle to this path; without it the download URI is printed"`
}

func (d *DownloadCmd) Run(g *Global, root *CLI) error {
	kind := config.NormalizeDownloadKind(d.Kind)
	if kind == "" {
		return errors.ValidationError(fmt.Sprintf("unknown download kind %q", d.Kind)).Build()
	}
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	client := newClient(cfg, g.Logger, metrics.NoopRecorder{})
	bc := builder.New(cfg, client, builder.WithLogger(g.Logger)).Attach(d.BuildID)
	uri, err := bc.DownloadPath(ctx, kind)
	if err != nil {
		return err
	}
	if d.Output == "" {
		fmt.Println(uri)
		return nil
	}
	return artifact.NewExtractor(artifact.WithLogger(g.Logger)).ExtractBuild(ctx, uri, d.Output)
}
