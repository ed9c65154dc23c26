package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// CompileErrorCode categorizes structural compile failures.
type CompileErrorCode string

const (
	// ErrCodeInvalidCalendar indicates one or more validation errors.
	ErrCodeInvalidCalendar CompileErrorCode = "INVALID_CALENDAR"

	// ErrCodeCycleDetected indicates a unit is (transitively) its own ancestor.
	ErrCodeCycleDetected CompileErrorCode = "CYCLE_DETECTED"

	// ErrCodeDepthExceeded indicates the unit tree is deeper than MaxDepth.
	ErrCodeDepthExceeded CompileErrorCode = "DEPTH_EXCEEDED"
)

// CompileError is returned by Compile. No partial Compiled is ever produced
// alongside it.
type CompileError struct {
	// Code identifies the error category.
	Code CompileErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the offending unit chain for cycle and depth errors,
	// e.g. ["year", "month", "year"].
	Path []string

	// Details holds every validation error for ErrCodeInvalidCalendar.
	Details []ValidationError
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case len(e.Path) > 0:
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Path, " → "))
	case len(e.Details) > 0:
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details[0].Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCycleError returns true if the error is a cycle detection error.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeCycleDetected
	}
	return false
}

// IsDepthError returns true if the error reports an over-deep unit tree.
func IsDepthError(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeDepthExceeded
	}
	return false
}

// ValidationErrors extracts the validation details from a compile error.
// Returns nil for other errors.
func ValidationErrors(err error) []ValidationError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}

func newCycleError(path []string) *CompileError {
	return &CompileError{
		Code:    ErrCodeCycleDetected,
		Message: "unit relation graph is not a tree: unit is its own ancestor",
		Path:    path,
	}
}

func newDepthError(path []string) *CompileError {
	return &CompileError{
		Code:    ErrCodeDepthExceeded,
		Message: fmt.Sprintf("unit tree deeper than %d levels", MaxDepth),
		Path:    path,
	}
}
