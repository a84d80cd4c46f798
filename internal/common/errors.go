package common

import (
	"errors"
	"fmt"
)

// ErrorClass partitions pipeline failures by how callers must react.
type ErrorClass string

const (
	// ClassAcquisition marks unreadable or corrupt input. Fatal.
	ClassAcquisition ErrorClass = "acquisition_error"
	// ClassAcquisitionUnavailable marks an unreachable recognition backend. Retryable.
	ClassAcquisitionUnavailable ErrorClass = "acquisition_unavailable"
	// ClassClassification marks malformed classifier output. Fatal for this run.
	ClassClassification ErrorClass = "classification_error"
	// ClassExtractorUnavailable marks an unreachable model backend. Retryable.
	ClassExtractorUnavailable ErrorClass = "extractor_unavailable"
	// ClassExtraction marks model output that stayed unparseable after bounded repair.
	ClassExtraction ErrorClass = "extraction_error"
	// ClassConfiguration marks a programmer error such as an unregistered schema.
	ClassConfiguration ErrorClass = "configuration_error"
	// ClassWriteConflict marks a same-key commit race. Retryable as a read-back.
	ClassWriteConflict ErrorClass = "write_conflict"
	// ClassSemanticIndexPending marks a committed record whose semantic write is outstanding.
	ClassSemanticIndexPending ErrorClass = "semantic_index_pending"
)

// PipelineError carries the failure class, the owning stage, and the cause.
type PipelineError struct {
	Class ErrorClass
	Stage string
	Msg   string
	Cause error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Class, e.Stage, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Class, e.Stage, e.Msg)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError builds a classified error for a pipeline stage.
func NewPipelineError(class ErrorClass, stage, msg string, cause error) *PipelineError {
	return &PipelineError{Class: class, Stage: stage, Msg: msg, Cause: cause}
}

// ClassOf returns the error class, or "" for unclassified errors.
func ClassOf(err error) ErrorClass {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Class
	}
	return ""
}

// IsClass reports whether err carries the given class.
func IsClass(err error, class ErrorClass) bool {
	return ClassOf(err) == class
}

// Retryable reports whether the error class is transient. Malformed-output
// classes are never retryable.
func Retryable(err error) bool {
	switch ClassOf(err) {
	case ClassAcquisitionUnavailable, ClassExtractorUnavailable, ClassWriteConflict:
		return true
	default:
		return false
	}
}

// Common application errors.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

// WrapError annotates err with a message, preserving the chain.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
