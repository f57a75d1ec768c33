package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsPresetClassification(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"config", ConfigError("x"), CategoryConfig, SeverityFatal, RetryNever},
		{"validation", ValidationError("x"), CategoryValidation, SeverityFatal, RetryNever},
		{"auth", AuthError("x"), CategoryAuth, SeverityError, RetryUserAction},
		{"identity", IdentityError("x"), CategoryIdentity, SeverityFatal, RetryUserAction},
		{"network", NetworkError("x"), CategoryNetwork, SeverityError, RetryBackoff},
		{"remote", RemoteError("x"), CategoryRemote, SeverityError, RetryBackoff},
		{"throttled", RemoteError("x").RateLimit(), CategoryRemote, SeverityError, RetryRateLimit},
		{"build", BuildError("x"), CategoryBuild, SeverityFatal, RetryUserAction},
		{"disconnect", DisconnectError("x"), CategoryDisconnect, SeverityWarning, RetryNever},
		{"artifact", ArtifactError("x"), CategoryArtifact, SeverityError, RetryNever},
		{"runtime", RuntimeError("x"), CategoryRuntime, SeverityFatal, RetryNever},
		{"internal", InternalError("x"), CategoryInternal, SeverityFatal, RetryNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			assert.Equal(t, tt.category, err.Category())
			assert.Equal(t, tt.severity, err.Severity())
			assert.Equal(t, tt.retry, err.RetryStrategy())
		})
	}
}

func TestRemoteFailureCarriesResponse(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := RemoteError("remote call failed").
		WithResponse("GET", "https://api.appcenter.ms/v0.1/user", 503).
		WithCause(cause).
		Build()

	assert.Equal(t, 503, err.HTTPStatus())
	assert.True(t, err.CanRetry())
	assert.ErrorIs(t, err, cause)
	method, _ := err.Context().GetString(KeyMethod)
	assert.Equal(t, "GET", method)
	assert.Equal(t, "[remote:error] remote call failed: connection reset", err.Error())
}

func TestBuildFailureCarriesBuild(t *testing.T) {
	err := BuildError("build did not succeed").
		WithBuild(42, "https://appcenter.ms/users/jane/apps/demo/build/branches/master/builds/42").
		WithContext(KeyAborted, true).
		Build()
	wrapped := fmt.Errorf("run: %w", err)

	ce, ok := AsClassified(wrapped)
	require.True(t, ok)
	id, ok := ce.BuildID()
	require.True(t, ok)
	assert.Equal(t, 42, id)
	u, _ := ce.StatusURL()
	assert.Contains(t, u, "/builds/42")
	assert.True(t, ce.Aborted())
	assert.Equal(t, 0, ce.HTTPStatus())
	assert.True(t, HasCategory(wrapped, CategoryBuild))
}

func TestCategoryOfUnclassified(t *testing.T) {
	plain := stderrors.New("boom")
	assert.False(t, HasCategory(plain, CategoryInternal))
	assert.Equal(t, CategoryInternal, GetCategory(plain))
	assert.False(t, HasCategory(nil, CategoryInternal))
}

func TestWithContextLeavesOriginal(t *testing.T) {
	base := RemoteError("remote call failed").WithContext(KeyCode, 500).Build()
	derived := base.WithContext(KeyCode, 404)

	assert.Equal(t, 500, base.HTTPStatus())
	assert.Equal(t, 404, derived.HTTPStatus())
	assert.ErrorIs(t, derived, base)
}

func TestExitCodes(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{ValidationError("x").Build(), 2},
		{AuthError("x").Build(), 5},
		{IdentityError("x").Build(), 5},
		{ConfigError("x").Build(), 7},
		{RemoteError("x").Build(), 8},
		{NewError(CategoryNotFound, "x").Build(), 8},
		{InternalError("x").Build(), 10},
		{BuildError("x").Build(), 11},
		{NewError(CategoryHistory, "x").Build(), 12},
		{DisconnectError("x").Build(), 1},
		{stderrors.New("plain"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, adapter.ExitCodeFor(tt.err), "%v", tt.err)
	}
}
