package commands

import (
	"os"

	"git.home.luguber.info/inful/mobilebuild/internal/cleaner"
	"git.home.luguber.info/inful/mobilebuild/internal/metrics"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Include []string `short:"i" help:"Glob of project names to delete (repeatable)"`
	Exclude []string `short:"e" help:"Glob of project names to keep (repeatable)"`
	DryRun  bool     `name:"dry-run" help:"Show the selection without deleting"`
	Yes     bool     `short:"y" help:"Do not ask for confirmation"`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	cl := cleaner.New(newClient(cfg, g.Logger, metrics.NoopRecorder{}), cfg.Owner,
		cleaner.Filter{Include: c.Include, Exclude: c.Exclude},
		cleaner.WithDryRun(c.DryRun),
		cleaner.WithAssumeYes(c.Yes),
		cleaner.WithIO(os.Stdin, os.Stdout),
		cleaner.WithLogger(g.Logger),
	)
	_, err = cl.Clean(ctx)
	return err
}
