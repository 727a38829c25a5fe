// Package errors defines the sentinel error kinds raised across the filter
// pipeline plus small helpers for wrapping and aggregating them. Every
// error kind here is opaque to the framework: it is propagated up the
// filter chain and interpreted only by the consumer.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the filter pipeline's error kinds.
var (
	// ErrIO is the generic underlying-device or protocol failure.
	ErrIO = errors.New("i/o error")

	// ErrLimitCheck means input exceeded a declared bound (file name too
	// long, image dimension over limit).
	ErrLimitCheck = errors.New("limit check")

	// ErrRangeCheck means a parameter was out of range (negative Length,
	// wrong AES key length, too many DCT colour components).
	ErrRangeCheck = errors.New("range check")

	// ErrTypeCheck means the wrong object type was supplied as an argument.
	ErrTypeCheck = errors.New("type check")

	// ErrInvalidAccess means a reader operated on a write-only source (or
	// vice versa), or over-access on a permissions-restricted string.
	ErrInvalidAccess = errors.New("invalid access")

	// ErrUndefined means name resolution failed (no such filter template,
	// no such filename).
	ErrUndefined = errors.New("undefined")

	// ErrVM means allocation of a filter slot or buffer failed.
	ErrVM = errors.New("VM error")

	// ErrConfiguration means key derivation or other filter setup failed
	// (e.g. a bad AES key schedule).
	ErrConfiguration = errors.New("configuration error")

	// ErrDead is returned by any operation on a (slot, generation)
	// reference whose generation no longer matches the live slot, or
	// whose slot is closed.
	ErrDead = errors.New("stale filter reference")

	// ErrRestricted means filter creation was attempted during an
	// execution mode that forbids it (e.g. rendering).
	ErrRestricted = errors.New("filter creation restricted in this mode")
)

// Wrap wraps an error with additional context. Returns nil if err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// New creates a new error with a formatted message.
func New(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Is reports whether err is, or wraps, target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to extract a specific error type from err.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap returns the error wrapped by err, if any.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MultiError collects zero or more errors, e.g. from closing a whole
// filter chain where every underlying filter gets a chance to report.
type MultiError struct {
	errors []error
}

// NewMultiError creates an empty MultiError.
func NewMultiError() *MultiError {
	return &MultiError{errors: make([]error, 0)}
}

// Add appends err, ignoring nil.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// HasErrors reports whether any error was added.
func (m *MultiError) HasErrors() bool {
	return len(m.errors) > 0
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return ""
	}
	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}
	return fmt.Sprintf("multiple errors occurred: %v", m.errors)
}

// Errors returns all collected errors.
func (m *MultiError) Errors() []error {
	return m.errors
}

// ErrorOrNil returns nil if no errors were added, otherwise m.
func (m *MultiError) ErrorOrNil() error {
	if m.HasErrors() {
		return m
	}
	return nil
}
