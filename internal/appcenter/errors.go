package appcenter

import (
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
)

// StatusCode returns the remote HTTP status carried by err, or 0 when err did not
// come from a remote response.
func StatusCode(err error) int {
	ce, ok := errors.AsClassified(err)
	if !ok {
		return 0
	}
	return ce.HTTPStatus()
}

// IsNotFound reports whether err is a 404 from the remote.
func IsNotFound(err error) bool {
	return StatusCode(err) == 404
}
