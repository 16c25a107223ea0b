// Package errors provides the error types shared by the readers, the store
// layer and the command line. Core boundaries return these as values; nothing
// in the core panics past its own function.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New is an alias for the standard library errors.New.
var New = errors.New

// Is, As and Unwrap re-export the standard helpers so callers only need one import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Sentinel errors.
var (
	// ErrNotFound indicates that a requested file, table or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates that an external store operation exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrNoDriver indicates that no connection strategy could open a store.
	ErrNoDriver = errors.New("no working database driver")
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Attempt records one failed connection strategy.
type Attempt struct {
	Strategy string
	Err      error
}

// ConnectError aggregates every failed connection strategy for one store.
type ConnectError struct {
	Path     string
	Attempts []Attempt
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("failed to connect to %s: no connection strategies configured", e.Path)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return fmt.Sprintf("failed to connect to %s with any driver (%s)", e.Path, strings.Join(parts, "; "))
}

// Is implements errors.Is support.
func (e *ConnectError) Is(target error) bool {
	return target == ErrNoDriver
}

// Unwrap exposes the individual attempt errors.
func (e *ConnectError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// ReadError wraps a failure while reading a schedule source.
type ReadError struct {
	Source string
	Op     string
	Err    error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %s: %v", e.Source, e.Op, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// NewReadError creates a new ReadError.
func NewReadError(source, op string, err error) *ReadError {
	return &ReadError{Source: source, Op: op, Err: err}
}

// BackupError reports a failed pre-mutation backup. No write is attempted after one.
type BackupError struct {
	Path   string
	Backup string
	Err    error
}

// Error implements the error interface.
func (e *BackupError) Error() string {
	return fmt.Sprintf("backup of %s to %s failed: %v", e.Path, e.Backup, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *BackupError) Unwrap() error {
	return e.Err
}
