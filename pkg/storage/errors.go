package storage

import (
	"errors"
	"fmt"
)

// ErrorClass classifies an open failure for the retry and recovery policy.
type ErrorClass string

const (
	// ErrorClassTransient indicates a failure that may succeed on retry.
	// Examples: a locked database file, a slow filesystem.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassCorruption indicates the store's on-disk state is damaged
	// and must be deleted before a retry can succeed.
	ErrorClassCorruption ErrorClass = "corruption"
)

// OpenError is a classified backing-store open failure. The retry policy is
// a pure function of Class rather than of the underlying error's type.
type OpenError struct {
	// Class is the failure classification.
	Class ErrorClass

	// Op is the operation that failed, e.g. "open", "ping", "migrate".
	Op string

	// Path is the file or folder the operation targeted.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] storage %s %s: %v", e.Class, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("[%s] storage %s: %v", e.Class, e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *OpenError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *OpenError) Is(target error) bool {
	t, ok := target.(*OpenError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Op == t.Op
}

// NewTransientError creates a transient open failure.
func NewTransientError(op, path string, err error) *OpenError {
	return &OpenError{Class: ErrorClassTransient, Op: op, Path: path, Err: err}
}

// NewCorruptionError creates a corruption-classified open failure.
func NewCorruptionError(op, path string, err error) *OpenError {
	return &OpenError{Class: ErrorClassCorruption, Op: op, Path: path, Err: err}
}

// IsCorruption reports whether err is classified as corruption.
func IsCorruption(err error) bool {
	var e *OpenError
	if errors.As(err, &e) {
		return e.Class == ErrorClassCorruption
	}
	return false
}

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool {
	var e *OpenError
	if errors.As(err, &e) {
		return e.Class == ErrorClassTransient
	}
	return false
}
