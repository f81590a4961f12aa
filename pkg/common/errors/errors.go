package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the request handler can see.
// Everything crossing the handler boundary wraps exactly one of these so the
// responder can distinguish bad input from downstream faults.
var (
	ErrValidation    = errors.New("validation error")
	ErrTransport     = errors.New("transport error")
	ErrParse         = errors.New("parse error")
	ErrPersistence   = errors.New("persistence error")
	ErrUnknownMethod = errors.New("unknown method")
)

// WorkerError carries a short user-facing message alongside the underlying
// cause. The cause is logged in full; only Message leaves the process.
type WorkerError struct {
	Kind    error
	Message string
	Err     error
}

func (e *WorkerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *WorkerError) Unwrap() error { return e.Err }

func (e *WorkerError) Is(target error) bool { return e.Kind == target }

// New wraps err as a WorkerError of the given kind.
func New(kind error, message string, err error) *WorkerError {
	return &WorkerError{Kind: kind, Message: message, Err: err}
}

// Validation reports a missing or malformed request parameter.
func Validation(format string, args ...any) *WorkerError {
	return &WorkerError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// Transport wraps a content-store network failure.
func Transport(message string, err error) *WorkerError {
	return &WorkerError{Kind: ErrTransport, Message: message, Err: err}
}

// Message extracts the short user-facing message from err, falling back to
// err.Error() for plain errors.
func Message(err error) string {
	var we *WorkerError
	if errors.As(err, &we) {
		return we.Message
	}
	return err.Error()
}
