package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable marks any failure to reach or get a usable answer from a backend.
	ErrUnavailable = errors.New("llm backend unavailable")
	// ErrEmptyResponse marks a well-formed reply without any candidate content.
	ErrEmptyResponse = errors.New("llm returned an empty response")
)

// Error is a structured backend failure. It matches ErrUnavailable under errors.Is.
type Error struct {
	Op        string // chat or embed
	Backend   string
	Status    int
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s", e.Backend, e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrUnavailable}
	}
	return []error{ErrUnavailable, e.Cause}
}

// StatusError builds an Error from an HTTP status, marking 429 and 5xx retryable.
func StatusError(backend, op string, status int, body string) *Error {
	return &Error{
		Op:        op,
		Backend:   backend,
		Status:    status,
		Retryable: status == http.StatusTooManyRequests || status >= 500,
		Cause:     errors.New(body),
	}
}

// TransportError wraps a network-level failure; those are always retryable.
func TransportError(backend, op string, err error) *Error {
	return &Error{Op: op, Backend: backend, Retryable: true, Cause: err}
}
