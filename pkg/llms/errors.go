package llms

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when the remote call exceeds the configured
// request timeout.
var ErrTimeout = errors.New("completion request timed out")

// ErrBadResponse is returned for transport failures, malformed response
// bodies, and responses missing the expected fields.
var ErrBadResponse = errors.New("malformed completion response")

// StatusError is returned for non-2xx responses. The status code is kept
// for logging only; callers degrade to a fixed fallback reply either way.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("completion request failed with status %d", e.Code)
}

// IsStatusError reports whether err is a StatusError, returning it if so.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
