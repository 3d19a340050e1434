package embed

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a tagged failure reported to callers as a (code, message) pair.
// Codes starting with 4 are caused by the client or the target site's policy,
// codes starting with 5 are internal or upstream failures.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error codes reported by the service.
var (
	ErrNoURL            = &Error{Code: 4050, Message: "No URL was provided, although one is required"}
	ErrCache            = &Error{Code: 5999, Message: "Something went wrong when trying to retrieve the cache"}
	ErrMetadataFetch    = &Error{Code: 5031, Message: "An error occurred while trying to fetch the metadata"}
	ErrEmbedFetch       = &Error{Code: 5032, Message: "An error occurred while trying to fetch the embed data"}
	ErrEmbedBody        = &Error{Code: 5033, Message: "An error occurred while trying to convert the embed data to HTML"}
	ErrRobotsDisallowed = &Error{Code: 4031, Message: "The URL is not allowed to be scraped"}
	ErrRobotsEvaluate   = &Error{Code: 4090, Message: "An error occurred while trying to respect the robots.txt file"}
	ErrRobotsFetch      = &Error{Code: 4091, Message: "An error occurred while trying to fetch the robots.txt file"}
)

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%d: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, cause: cause}
}

// StatusFor maps an error to the HTTP status reported to callers.
func StatusFor(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case ErrNoURL.Code:
		return http.StatusBadRequest
	case ErrRobotsDisallowed.Code:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// AsError extracts the tagged error from err, falling back to a generic
// internal failure for untagged errors.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: 5000, Message: "Internal error", cause: err}
}
