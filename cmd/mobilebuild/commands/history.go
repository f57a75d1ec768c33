package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Project string `short:"p" help:"Only show runs of this project"`
	Limit   int    `short:"n" help:"Maximum number of runs to show (0 shows all)" default:"20"`
	DB      string `name:"db" help:"History database path (overrides history.path)"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	path := h.DB
	if path == "" {
		cfg, err := loadConfig(root.Config)
		if err != nil {
			return err
		}
		path = cfg.History.Path
	}
	if path == "" {
		return errors.ConfigError("history.path is not configured").Build()
	}
	return printHistory(context.Background(), os.Stdout, path, h.Project, h.Limit)
}

func printHistory(ctx context.Context, out io.Writer, path, project string, limit int) error {
	store, err := history.Open(path)
	if err != nil {
		return errors.WrapError(err, errors.CategoryHistory, "failed to open history").WithContext("path", path).Build()
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(ctx, project, limit)
	if err != nil {
		return errors.WrapError(err, errors.CategoryHistory, "failed to list runs").Build()
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tPROJECT\tBRANCH\tBUILD\tOUTCOME\tSTARTED\tDURATION")
	for _, r := range runs {
		build := "-"
		if r.BuildID != 0 {
			build = fmt.Sprintf("%d", r.BuildID)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.Project, r.Branch, build, r.Outcome, humanize.Time(r.StartedAt), r.Duration().Round(time.Second))
	}
	return tw.Flush()
}
