package embedder

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies embedding failures.
type ErrorKind string

const (
	// Transient marks rate-limit, timeout, and server-side failures
	// worth retrying.
	Transient ErrorKind = "transient"
	// Permanent marks content and request failures that no retry can
	// fix.
	Permanent ErrorKind = "permanent"
)

// ErrNoProvider is returned when no embedding provider is configured.
var ErrNoProvider = errors.New("no embedding provider configured")

// Error is an embedding failure tagged with its retry classification.
type Error struct {
	Kind    ErrorKind
	Status  int // HTTP status when the provider answered, 0 otherwise
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("embedding %s error (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("embedding %s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a retryable embedding
// error.
func IsTransient(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == Transient
}

// transientStatus reports whether an HTTP status is worth retrying.
func transientStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

// statusError builds an Error classified from an HTTP status.
func statusError(status int, body string) *Error {
	kind := Permanent
	if transientStatus(status) {
		kind = Transient
	}
	return &Error{Kind: kind, Status: status, Message: body}
}

// transportError wraps a network-level failure; always transient.
func transportError(err error) *Error {
	return &Error{Kind: Transient, Err: err}
}
