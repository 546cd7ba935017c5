package core

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// APIError is a failed response from the platform API.
// Status 0 means the server could not be reached at all.
// Reason/Detail/Message mirror the `error`, `detail` and `message`
// fields the API puts in failure bodies; any of them may be empty.
type APIError struct {
	Status  int    `json:"-"`
	Reason  string `json:"error"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if msg := e.ExtractMessage(); msg != "" {
		return msg
	}
	return fmt.Sprintf("%d: %s", e.Status, http.StatusText(e.Status))
}

// ExtractMessage returns the most specific human-readable message carried
// by the error body: `error`, then `detail`, then `message`.
func (e *APIError) ExtractMessage() string {
	switch {
	case e.Reason != "":
		return e.Reason
	case e.Detail != "":
		return e.Detail
	case e.Message != "":
		return e.Message
	}
	return ""
}

// RefreshFailedError terminates a session expiry episode: the refresh call
// itself failed and the session was forcibly cleared.
type RefreshFailedError struct {
	Err error
}

func (e *RefreshFailedError) Error() string {
	if e.Err == nil {
		return "session refresh failed"
	}
	return "session refresh failed: " + e.Err.Error()
}

func (e *RefreshFailedError) Unwrap() error { return e.Err }

func apiErrStatus(err error) (int, bool) {
	apiErr, ok := errors.Cause(err).(*APIError)
	if !ok {
		return 0, false
	}
	return apiErr.Status, true
}

func IsAuthExpired(err error) bool {
	status, ok := apiErrStatus(err)
	return ok && status == http.StatusUnauthorized
}

func IsForbidden(err error) bool {
	status, ok := apiErrStatus(err)
	return ok && status == http.StatusForbidden
}

func IsNotFound(err error) bool {
	status, ok := apiErrStatus(err)
	return ok && status == http.StatusNotFound
}

func IsValidationFailed(err error) bool {
	status, ok := apiErrStatus(err)
	return ok && status == http.StatusUnprocessableEntity
}

func IsServerFault(err error) bool {
	status, ok := apiErrStatus(err)
	return ok && status == http.StatusInternalServerError
}

// IsNetworkUnreachable reports whether the server could not be reached at all.
func IsNetworkUnreachable(err error) bool {
	status, ok := apiErrStatus(err)
	return ok && status == 0
}

func IsRefreshFailed(err error) bool {
	_, ok := errors.Cause(err).(*RefreshFailedError)
	return ok
}
