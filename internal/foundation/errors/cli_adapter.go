package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// CLIErrorAdapter prints a command failure and exits with the status of its category.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr, exit: os.Exit}
}

// ExitCodeFor is 0 for nil, the category's code for classified errors and 1 otherwise.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if classified, ok := AsClassified(err); ok {
		return classified.category.ExitCode()
	}
	return 1
}

// FormatError renders err for the terminal. Verbose output adds the cause chain and the
// context sorted by key; the portal link is always shown when the failure has one.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	if !ok {
		return "Error: " + err.Error()
	}

	var b strings.Builder
	b.WriteString("Error: ")
	if !a.verbose {
		b.WriteString(classified.message)
		if u, ok := classified.StatusURL(); ok && u != "" {
			fmt.Fprintf(&b, "\n  see %s", u)
		}
		return b.String()
	}

	b.WriteString(classified.Error())
	keys := make([]string, 0, len(classified.context))
	for k := range classified.context {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %v", k, classified.context[k])
	}
	return b.String()
}

// HandleError prints err and exits. Fatal errors, and every error in verbose mode, are
// also logged.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	classified, ok := AsClassified(err)
	switch {
	case !ok:
		a.logger.Error("Unclassified error", "error", err)
	case a.verbose || classified.severity == SeverityFatal:
		attrs := []slog.Attr{slog.String("category", string(classified.category))}
		if classified.CanRetry() {
			attrs = append(attrs, slog.Bool("retryable", true))
		}
		level := slog.LevelError
		if classified.severity == SeverityWarning {
			level = slog.LevelWarn
		}
		a.logger.LogAttrs(context.Background(), level, classified.message, attrs...)
	}

	fmt.Fprintln(a.out, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}
