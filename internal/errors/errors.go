// Package errors provides domain-specific error types and sentinel errors
// shared by the knowledge loader, the retrieval pipeline and the transports.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrMalformedKnowledgeBase indicates a knowledge-base file could not be
	// parsed or violates the catalogue invariants. It is fatal at startup.
	ErrMalformedKnowledgeBase = errors.New("malformed knowledge base")

	// ErrEncoderUnavailable indicates the embedding encoder failed or timed out.
	// Turns that hit it answer with a no-match phrase.
	ErrEncoderUnavailable = errors.New("encoder unavailable")

	// ErrEmptyInput indicates the utterance normalized to an empty string.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidUTF8 indicates the utterance is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid utf-8")

	// ErrInvalidInput indicates a caller provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// KnowledgeBaseError pinpoints the offending record in a knowledge-base file.
// Index is -1 when the problem concerns the file as a whole.
type KnowledgeBaseError struct {
	File   string
	Index  int
	Field  string
	Reason string
}

func (e *KnowledgeBaseError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("malformed knowledge base (file=%s): %s", e.File, e.Reason)
	case e.Field == "":
		return fmt.Sprintf("malformed knowledge base (file=%s, index=%d): %s", e.File, e.Index, e.Reason)
	default:
		return fmt.Sprintf("malformed knowledge base (file=%s, index=%d, field=%s): %s", e.File, e.Index, e.Field, e.Reason)
	}
}

func (e *KnowledgeBaseError) Unwrap() error {
	return ErrMalformedKnowledgeBase
}

// NewKnowledgeBaseError creates a new knowledge-base error.
func NewKnowledgeBaseError(file string, index int, field, reason string) *KnowledgeBaseError {
	return &KnowledgeBaseError{
		File:   file,
		Index:  index,
		Field:  field,
		Reason: reason,
	}
}

// IsMalformedKnowledgeBase reports whether err is a knowledge-base failure.
func IsMalformedKnowledgeBase(err error) bool {
	return errors.Is(err, ErrMalformedKnowledgeBase)
}

// IsEncoderUnavailable reports whether err came from a failing encoder.
func IsEncoderUnavailable(err error) bool {
	return errors.Is(err, ErrEncoderUnavailable)
}
