// Package cleaner bulk-deletes remote projects selected by name filters.
package cleaner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"git.home.luguber.info/inful/mobilebuild/internal/appcenter"
	"git.home.luguber.info/inful/mobilebuild/internal/builder"
	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
)

// Service is the part of the remote facade the cleaner needs.
type Service interface {
	builder.IdentityService
	ListProjects(ctx context.Context) ([]appcenter.App, error)
	DeleteProject(ctx context.Context, app string) error
}

var _ Service = (*appcenter.Client)(nil)

// Filter selects projects by glob patterns (path.Match syntax). With no Include
// patterns every project is a candidate; Exclude always wins.
type Filter struct {
	Include []string
	Exclude []string
}

// Empty reports whether the filter has no patterns.
func (f Filter) Empty() bool { return len(f.Include) == 0 && len(f.Exclude) == 0 }

// Validate checks every pattern for syntax errors.
func (f Filter) Validate() error {
	for _, p := range append(append([]string(nil), f.Include...), f.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return errors.ValidationError("invalid project pattern").WithCause(err).WithContext("pattern", p).Build()
		}
	}
	return nil
}

// Select returns the names matched by the filter, in input order.
func (f Filter) Select(names []string) []string {
	var out []string
	for _, name := range names {
		if len(f.Include) > 0 && !matchAny(f.Include, name) {
			continue
		}
		if matchAny(f.Exclude, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Result summarizes a clean run.
type Result struct {
	Projects  []string
	Selected  []string
	Deleted   []string
	Confirmed bool
}

// Cleaner lists the owner's projects and deletes the selected ones after confirmation.
type Cleaner struct {
	svc    Service
	owner  config.Owner
	filter Filter
	dryRun bool
	assume bool
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithDryRun prints the plan without prompting or deleting.
func WithDryRun(dry bool) Option { return func(c *Cleaner) { c.dryRun = dry } }

// WithAssumeYes skips the confirmation prompt.
func WithAssumeYes(yes bool) Option { return func(c *Cleaner) { c.assume = yes } }

// WithIO sets where the plan is printed and the confirmation is read from.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(c *Cleaner) {
		if in != nil {
			c.in = in
		}
		if out != nil {
			c.out = out
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cleaner) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Cleaner for owner.
func New(svc Service, owner config.Owner, filter Filter, opts ...Option) *Cleaner {
	c := &Cleaner{
		svc:    svc,
		owner:  owner,
		filter: filter,
		in:     strings.NewReader(""),
		out:    io.Discard,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean verifies the owner, selects projects, prints the plan, asks for confirmation
// and deletes. Deletion stops at the first failure; Result.Deleted lists what was
// removed before it.
func (c *Cleaner) Clean(ctx context.Context) (Result, error) {
	var res Result
	if c.filter.Empty() {
		return res, errors.ValidationError("at least one include or exclude pattern is required").Build()
	}
	if err := c.filter.Validate(); err != nil {
		return res, err
	}
	if err := builder.VerifyOwner(ctx, c.svc, c.owner); err != nil {
		return res, err
	}
	c.logger.Info("Owner identity verified", logfields.Owner(c.owner.OwnerName()))

	apps, err := c.svc.ListProjects(ctx)
	if err != nil {
		return res, err
	}
	for _, a := range apps {
		res.Projects = append(res.Projects, a.Name)
	}
	res.Selected = c.filter.Select(res.Projects)
	c.logger.Info("Projects selected for deletion", slog.Int("selected", len(res.Selected)), slog.Int("total", len(res.Projects)))

	c.printPlan(res)
	if len(res.Selected) == 0 {
		return res, nil
	}
	if c.dryRun {
		c.logger.Info("Dry run, nothing deleted")
		return res, nil
	}

	if c.assume {
		res.Confirmed = true
	} else {
		res.Confirmed, err = Confirm(c.in, c.out, "Are you sure to delete all projects marked above? (yes/no) ")
		if err != nil {
			return res, err
		}
	}
	if !res.Confirmed {
		c.logger.Info("Cleanup cancelled")
		return res, nil
	}

	for _, name := range res.Selected {
		if err := c.svc.DeleteProject(ctx, name); err != nil {
			return res, err
		}
		res.Deleted = append(res.Deleted, name)
		c.logger.Info("Project deleted", logfields.Project(name))
	}
	c.logger.Info("Cleanup finished", slog.Int("deleted", len(res.Deleted)))
	return res, nil
}

func (c *Cleaner) printPlan(res Result) {
	selected := make(map[string]bool, len(res.Selected))
	for _, s := range res.Selected {
		selected[s] = true
	}
	for _, name := range res.Projects {
		mark := "keep  "
		if selected[name] {
			mark = "DELETE"
		}
		_, _ = fmt.Fprintf(c.out, "  [%s] %s\n", mark, name)
	}
}

// Confirm prints question and reads one line: yes/y is true, no/n is false (case
// insensitive). Any other answer is an error.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	_, _ = fmt.Fprint(out, question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return false, errors.ValidationError("no confirmation answer received").WithCause(err).Build()
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	default:
		return false, errors.ValidationError("unexpected confirmation answer").
			WithContext("answer", strings.TrimSpace(line)).
			Build()
	}
}
