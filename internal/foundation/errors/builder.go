package errors

// ErrorBuilder assembles a ClassifiedError. Constructors below preset the category and
// the severity and retry hint that go with it.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error with SeverityError and RetryNever.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}}
}

// WrapError starts an error caused by err.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.err.cause = cause
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.Set(key, value)
	return b
}

// WithResponse records the remote call that failed.
func (b *ErrorBuilder) WithResponse(method, url string, code int) *ErrorBuilder {
	return b.WithContext(KeyMethod, method).WithContext(KeyURL, url).WithContext(KeyCode, code)
}

// WithBuild records the remote build the failure belongs to.
func (b *ErrorBuilder) WithBuild(buildID int, statusURL string) *ErrorBuilder {
	return b.WithContext(KeyBuildID, buildID).WithContext(KeyStatusURL, statusURL)
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	b.err.severity = SeverityFatal
	return b
}

func (b *ErrorBuilder) Warning() *ErrorBuilder {
	b.err.severity = SeverityWarning
	return b
}

func (b *ErrorBuilder) retryHint(strategy RetryStrategy) *ErrorBuilder {
	b.err.retry = strategy
	return b
}

// RateLimit marks the error as a throttled response.
func (b *ErrorBuilder) RateLimit() *ErrorBuilder {
	return b.retryHint(RetryRateLimit)
}

// Build returns the error. The builder must not be reused afterwards.
func (b *ErrorBuilder) Build() *ClassifiedError {
	out := b.err
	return &out
}

func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

func AuthError(message string) *ErrorBuilder {
	return NewError(CategoryAuth, message).retryHint(RetryUserAction)
}

// IdentityError means the configured owner is not the authenticated account or one of its organizations.
func IdentityError(message string) *ErrorBuilder {
	return NewError(CategoryIdentity, message).Fatal().retryHint(RetryUserAction)
}

func NetworkError(message string) *ErrorBuilder {
	return NewError(CategoryNetwork, message).retryHint(RetryBackoff)
}

func RemoteError(message string) *ErrorBuilder {
	return NewError(CategoryRemote, message).retryHint(RetryBackoff)
}

func GitError(message string) *ErrorBuilder {
	return NewError(CategoryGit, message)
}

// BuildError is a remote build that finished without succeeding, or was never observed finishing.
func BuildError(message string) *ErrorBuilder {
	return NewError(CategoryBuild, message).Fatal().retryHint(RetryUserAction)
}

// DisconnectError never aborts a run.
func DisconnectError(message string) *ErrorBuilder {
	return NewError(CategoryDisconnect, message).Warning()
}

func ArtifactError(message string) *ErrorBuilder {
	return NewError(CategoryArtifact, message)
}

func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

func RuntimeError(message string) *ErrorBuilder {
	return NewError(CategoryRuntime, message).Fatal()
}

func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
