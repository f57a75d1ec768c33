package errors

import "maps"

// ErrorCategory groups failures by the subsystem that produced them. The CLI maps each
// category to an exit code.
type ErrorCategory string

const (
	// Caller input.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Account access.
	CategoryAuth     ErrorCategory = "auth"
	CategoryIdentity ErrorCategory = "identity"

	// Remote service and transport.
	CategoryNetwork  ErrorCategory = "network"
	CategoryRemote   ErrorCategory = "remote"
	CategoryNotFound ErrorCategory = "not_found"
	CategoryGit      ErrorCategory = "git"
	CategoryEvents   ErrorCategory = "events"

	// Build outcome and its products.
	CategoryBuild      ErrorCategory = "build"
	CategoryDisconnect ErrorCategory = "disconnect"
	CategoryArtifact   ErrorCategory = "artifact"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Local process state.
	CategoryHistory  ErrorCategory = "history"
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// exitCodes is the process exit status per category. Unlisted categories exit 1.
var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryAuth:       5,
	CategoryIdentity:   5,
	CategoryConfig:     7,
	CategoryNetwork:    8,
	CategoryRemote:     8,
	CategoryNotFound:   8,
	CategoryGit:        8,
	CategoryEvents:     8,
	CategoryInternal:   10,
	CategoryBuild:      11,
	CategoryArtifact:   11,
	CategoryFileSystem: 11,
	CategoryHistory:    12,
	CategoryRuntime:    12,
}

// ExitCode returns the exit status for category.
func (c ErrorCategory) ExitCode() int {
	if code, ok := exitCodes[c]; ok {
		return code
	}
	return 1
}

// ErrorSeverity says how far a failure propagates.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // the run stops
	SeverityError   ErrorSeverity = "error"   // the current step fails
	SeverityWarning ErrorSeverity = "warning" // logged and ignored
)

// RetryStrategy is a hint about whether repeating the call can help. The step retry
// wrapper ignores it and retries every failure the same way.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryBackoff    RetryStrategy = "backoff"
	RetryRateLimit  RetryStrategy = "rate_limit"
	RetryUserAction RetryStrategy = "user"
)

// Well-known context keys read back by other packages.
const (
	KeyMethod    = "method"
	KeyURL       = "url"
	KeyCode      = "code"
	KeyBuildID   = "build_id"
	KeyStatusURL = "status_url"
	KeyResult    = "result"
	KeyAborted   = "aborted"
)

// ErrorContext is structured detail attached to an error.
type ErrorContext map[string]any

// Set stores value under key, allocating the map if needed.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get returns the raw value under key.
func (c ErrorContext) Get(key string) (any, bool) {
	value, ok := c[key]
	return value, ok
}

// GetString returns the value under key when it is a string.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// GetInt returns the value under key when it is an int.
func (c ErrorContext) GetInt(key string) (int, bool) {
	n, ok := c[key].(int)
	return n, ok
}

// GetBool returns the value under key when it is a bool.
func (c ErrorContext) GetBool(key string) (bool, bool) {
	b, ok := c[key].(bool)
	return b, ok
}

func (c ErrorContext) clone() ErrorContext {
	out := make(ErrorContext, len(c)+1)
	maps.Copy(out, c)
	return out
}
