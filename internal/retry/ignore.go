package retry

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
)

// Ignore invokes fn once and swallows its error after logging it together with the
// operator remediation. It reports whether a failure was swallowed.
func Ignore(ctx context.Context, logger *slog.Logger, name, remediation string, fn func(context.Context) error) bool {
	err := fn(ctx)
	if err == nil {
		return false
	}
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{logfields.Stage(name), logfields.Error(err)}
	if remediation != "" {
		attrs = append(attrs, slog.String("remediation", remediation))
	}
	logger.Warn("ATTENTION: step failed and was ignored", attrs...)
	return true
}
