package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error classes a backend call can fail with. Every *Error unwraps to exactly one.
var (
	ErrNetworkUnavailable = errors.New("backend unreachable")
	ErrValidationFailed   = errors.New("request rejected by backend")
	ErrUnauthorized       = errors.New("not authorized by backend")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
	ErrServerError        = errors.New("backend server error")
)

// Error is returned for any failed backend call.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: backend %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: backend %d", e.Op, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// classify maps an HTTP status to its error class.
func classify(status int) error {
	switch {
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status >= 500:
		return ErrServerError
	default:
		return ErrValidationFailed
	}
}

// Message returns the backend-provided message for err, or fallback when err
// carries none. Views use it to build notifications.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" && errors.Is(err, ErrValidationFailed) {
		return apiErr.Message
	}
	return fallback
}

// StatusOf returns the HTTP status the backend answered with, or 0 when the
// request never produced a response.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
