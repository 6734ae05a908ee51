// Package errors provides structured error types for phylocite.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the simulator, analyzer, CLI and API
//   - Machine-readable error codes for programmatic handling
//   - Row attribution for malformed analyzer inputs
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes map onto the failure taxonomy of a run:
//   - INVALID_CONFIGURATION: bad parameter combinations, caught at construction
//   - INVALID_DISTRIBUTION, EMPTY_DISTRIBUTION, SAMPLING_FAILURE: degenerate
//     weight vectors met mid-run (a modeling bug, never transient)
//   - MALFORMED_INPUT, CYCLIC_REFERENCE: analyzer input that violates the
//     id-ordering invariant of the citation DAG
//   - IO_FAILURE: file, cache or database boundary failures, surfaced as-is
//
// None of these are retried. A run is deterministic given its seed, so the
// correct response to a failure is to fix the configuration and rerun.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfiguration, "gen_len must be positive, got %d", n)
//	if errors.Is(err, errors.ErrCodeInvalidConfiguration) {
//	    // Handle validation error
//	}
//
//	// Attribute an error to an input row
//	err := errors.AtRow(errors.ErrCodeCyclicReference, 12, "parent %d is not older than child", p)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors
	ErrCodeInvalidConfiguration Code = "INVALID_CONFIGURATION"

	// Sampling errors
	ErrCodeInvalidDistribution Code = "INVALID_DISTRIBUTION"
	ErrCodeEmptyDistribution   Code = "EMPTY_DISTRIBUTION"
	ErrCodeSamplingFailure     Code = "SAMPLING_FAILURE"

	// Analyzer input errors
	ErrCodeMalformedInput  Code = "MALFORMED_INPUT"
	ErrCodeCyclicReference Code = "CYCLIC_REFERENCE"

	// Boundary errors
	ErrCodeIO       Code = "IO_FAILURE"
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// RowError identifies the input record that caused a failure.
// Rows are 0-based node ids for in-memory inputs and 1-based line numbers
// for files; the message of the enclosing *Error says which.
type RowError struct {
	Row int
	Err error
}

// Error implements the error interface.
func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d", e.Row)
}

// Unwrap returns the wrapped error.
func (e *RowError) Unwrap() error { return e.Err }

// AtRow creates an Error whose cause is a *RowError for row.
func AtRow(code Code, row int, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   &RowError{Row: row},
	}
}

// Row extracts the offending row from err.
// The second return value is false when err carries no row.
func Row(err error) (int, bool) {
	var re *RowError
	if errors.As(err, &re) {
		return re.Row, true
	}
	return 0, false
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + e.Cause.Error()
		}
		return e.Message
	}
	return err.Error()
}
