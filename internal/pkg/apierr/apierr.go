package apierr

import (
	"fmt"
	"net/http"
	"time"
)

// Error is a failure with an HTTP status and a stable machine code attached.
type Error struct {
	Status int
	Code   string
	Err    error
	// RetryAfter, when set, is advertised to the client as a Retry-After header.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Public is the message a client may see. Server errors never expose their cause.
func (e *Error) Public() string {
	if e == nil || e.Status >= http.StatusInternalServerError {
		return http.StatusText(http.StatusInternalServerError)
	}
	if e.Err == nil {
		return http.StatusText(e.Status)
	}
	return e.Err.Error()
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds; 0 means no header.
func (e *Error) RetryAfterSeconds() int {
	if e == nil || e.RetryAfter <= 0 {
		return 0
	}
	return int((e.RetryAfter + time.Second - 1) / time.Second)
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code, format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, code, fmt.Errorf(format, args...))
}

func Unavailable(code string, err error, retryAfter time.Duration) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Code: code, Err: err, RetryAfter: retryAfter}
}
