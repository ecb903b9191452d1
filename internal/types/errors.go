package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures at the invocation surface
type ErrorKind string

const (
	// ErrorFatalInput aborts the whole run: bad owner/repo, unauthorized, corpus fetch failed
	ErrorFatalInput ErrorKind = "fatal_input"
	// ErrorProvider is an embedding or classifier call failure for one document
	ErrorProvider ErrorKind = "provider"
	// ErrorValidation is a well-formed classifier response that fails the schema
	ErrorValidation ErrorKind = "validation"
	// ErrorPartialBatch is an unexpected failure in one document's pipeline
	ErrorPartialBatch ErrorKind = "partial_batch_failure"
)

// Error is the structured error surfaced to callers: {errorKind, message}.
type Error struct {
	Kind    ErrorKind `json:"error_kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a structured error of the given kind
func NewError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the ErrorKind carried by err, or "" if err is not a *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
