// Package errors holds ClassifiedError, the error type mobilebuild returns across
// package boundaries.
//
// Each error carries a category (which picks the CLI exit code), a severity, a retry
// hint and a context map. Remote failures record the call with WithResponse and build
// failures record the build with WithBuild, so callers can read the status code or the
// portal link back without parsing messages:
//
//	err := errors.RemoteError("remote call failed").
//		WithResponse(http.MethodGet, u, resp.StatusCode).
//		WithCause(originalErr).
//		Build()
package errors
