package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyProject    = "project"
	KeyOwner      = "owner"
	KeyOwnerType  = "owner_type"
	KeyBranch     = "branch"
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyAttempt    = "attempt"
	KeyDurationMS = "duration_ms"
	KeyStatus     = "status"
	KeyResult     = "result"
	KeyMethod     = "method"
	KeyURL        = "url"
	KeyPath       = "path"
	KeyName       = "name"
	KeySchedule   = "schedule"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr         { return slog.String(KeyRunID, id) }
func Project(name string) slog.Attr     { return slog.String(KeyProject, name) }
func Owner(name string) slog.Attr       { return slog.String(KeyOwner, name) }
func OwnerType(kind string) slog.Attr   { return slog.String(KeyOwnerType, kind) }
func Branch(b string) slog.Attr         { return slog.String(KeyBranch, b) }
func BuildID(id int) slog.Attr          { return slog.Int(KeyBuildID, id) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func Attempt(n int) slog.Attr           { return slog.Int(KeyAttempt, n) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Status(s string) slog.Attr         { return slog.String(KeyStatus, s) }
func Result(r string) slog.Attr         { return slog.String(KeyResult, r) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func URL(u string) slog.Attr            { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Name(n string) slog.Attr           { return slog.String(KeyName, n) }
func Schedule(expr string) slog.Attr    { return slog.String(KeySchedule, expr) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
