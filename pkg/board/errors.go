package board

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("board api: unauthorized")
	ErrNotFound     = errors.New("board api: not found")
	ErrRateLimited  = errors.New("board api: rate limited")
	ErrUnavailable  = errors.New("board api: unavailable")
)

// ErrorClass classifies API failures.
type ErrorClass string

const (
	ClassAuthDenied  ErrorClass = "auth_denied"
	ClassNotFound    ErrorClass = "not_found"
	ClassRateLimited ErrorClass = "rate_limited"
	ClassUnavailable ErrorClass = "unavailable"
	ClassUnknown     ErrorClass = "unknown"
)

// APIError is a failed board API call.
type APIError struct {
	Operation  string
	StatusCode int
	Class      ErrorClass
	Temporary  bool
	Body       string
	Cause      error
}

func (e *APIError) Error() string {
	if e == nil {
		return "board api error"
	}
	status := "status unknown"
	if e.StatusCode > 0 {
		status = fmt.Sprintf("status %d", e.StatusCode)
	}
	msg := fmt.Sprintf("%s failed (%s, %s)", e.Operation, status, e.Class)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is lets callers test the class with errors.Is(err, board.ErrNotFound).
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrUnauthorized:
		return e.Class == ClassAuthDenied
	case ErrNotFound:
		return e.Class == ClassNotFound
	case ErrRateLimited:
		return e.Class == ClassRateLimited
	case ErrUnavailable:
		return e.Class == ClassUnavailable
	}
	return false
}

func classify(operation string, status int, body string) *APIError {
	e := &APIError{Operation: operation, StatusCode: status, Body: body}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Class = ClassAuthDenied
	case status == http.StatusNotFound:
		e.Class = ClassNotFound
	case status == http.StatusTooManyRequests:
		e.Class, e.Temporary = ClassRateLimited, true
	case status >= 500 && status < 600:
		e.Class, e.Temporary = ClassUnavailable, true
	default:
		e.Class = ClassUnknown
	}
	return e
}
