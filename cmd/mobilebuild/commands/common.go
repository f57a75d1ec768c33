package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mobilebuild/internal/appcenter"
	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/gitrepo"
	"git.home.luguber.info/inful/mobilebuild/internal/metrics"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"mobilebuild.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Create or update the project, trigger a build and wait for it"`
	Download DownloadCmd `cmd:"" help:"Fetch an artifact of an existing build"`
	Clean    CleanCmd    `cmd:"" help:"Delete projects selected by name patterns"`
	Watch    WatchCmd    `cmd:"" help:"Run builds on the configured cron schedule"`
	History  HistoryCmd  `cmd:"" help:"List recorded build runs"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads the configuration and fills repository details from a local
// checkout when one is configured.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	repo, err := gitrepo.FillRepo(cfg.Repo)
	if err != nil {
		return nil, err
	}
	cfg.Repo = repo
	return cfg, nil
}

func newClient(cfg *config.Config, logger *slog.Logger, rec metrics.Recorder) *appcenter.Client {
	return appcenter.NewFromConfig(cfg, appcenter.WithLogger(logger), appcenter.WithRecorder(rec))
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
