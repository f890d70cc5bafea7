// Package errors provides standardized error types for join pipeline
// operations. This package defines JoinError for consistent error handling
// across all public APIs, with pipeline-stage context, an error kind for
// taxonomy checks, and error wrapping support.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a JoinError into the pipeline error taxonomy.
type Kind int

const (
	// KindInvalidInput marks malformed caller input (nil key extractors,
	// unknown join type, and similar).
	KindInvalidInput Kind = iota
	// KindConfiguration marks invalid configuration detected before any
	// data pass.
	KindConfiguration
	// KindProfiling marks a failed dataset scan during key-frequency
	// profiling. The underlying substrate error is preserved as the cause
	// and is never retried here.
	KindProfiling
	// KindMergeInconsistency marks a row-conservation violation between the
	// split subsets and the merged output. It aborts the whole join; a hard
	// failure is preferred over silently corrupt results.
	KindMergeInconsistency
	// KindInternal marks unexpected internal failures.
	KindInternal
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindConfiguration:
		return "configuration"
	case KindProfiling:
		return "profiling"
	case KindMergeInconsistency:
		return "merge inconsistency"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// JoinError represents standardized errors across all join pipeline stages.
type JoinError struct {
	Kind    Kind   // Error taxonomy bucket
	Op      string // Operation name (e.g., "Profile", "Split", "Merge")
	Stage   string // Pipeline stage if applicable (e.g., "heavy", "normal")
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface.
func (e *JoinError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s failed on %s path: %s error: %s", e.Op, e.Stage, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s failed: %s error: %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support.
func (e *JoinError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
func (e *JoinError) Is(target error) bool {
	if je, ok := target.(*JoinError); ok {
		return e.Kind == je.Kind && e.Op == je.Op && e.Stage == je.Stage && e.Message == je.Message
	}
	return false
}

// IsKind reports whether err is (or wraps) a JoinError of the given kind.
func IsKind(err error, kind Kind) bool {
	var je *JoinError
	if errors.As(err, &je) {
		return je.Kind == kind
	}
	return false
}

// Common error constructors for consistent error creation

// NewConfigurationError creates an error for invalid configuration values.
func NewConfigurationError(op, message string) *JoinError {
	return &JoinError{
		Kind:    KindConfiguration,
		Op:      op,
		Message: message,
	}
}

// NewProfilingError creates an error for failed dataset scans during
// profiling. The substrate error is surfaced unchanged as the cause.
func NewProfilingError(op string, cause error) *JoinError {
	return &JoinError{
		Kind:    KindProfiling,
		Op:      op,
		Message: "dataset scan failed",
		Cause:   cause,
	}
}

// NewMergeInconsistencyError creates an error for row-conservation
// violations detected when merging per-subset join outputs.
func NewMergeInconsistencyError(op, stage, message string) *JoinError {
	return &JoinError{
		Kind:    KindMergeInconsistency,
		Op:      op,
		Stage:   stage,
		Message: message,
	}
}

// NewInvalidInputError creates an error for invalid operation inputs.
func NewInvalidInputError(op, message string) *JoinError {
	return &JoinError{
		Kind:    KindInvalidInput,
		Op:      op,
		Message: message,
	}
}

// NewInternalError creates an error for internal operation failures.
func NewInternalError(op string, cause error) *JoinError {
	return &JoinError{
		Kind:    KindInternal,
		Op:      op,
		Message: "internal error occurred",
		Cause:   cause,
	}
}
