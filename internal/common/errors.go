package common

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Anything not covered here is an internal error.
var (
	// ErrCollaboratorUnavailable means the OCR engine or generative model
	// backend could not be reached or loaded. Terminal for the document;
	// retry policy belongs to the caller.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrNoTextExtracted means every text-recognition strategy produced
	// empty text. Distinct from a successful-but-empty extraction.
	ErrNoTextExtracted = errors.New("no text extracted")

	// ErrExtractionParse means the model-assisted extractor could not obtain
	// a valid, non-placeholder JSON candidate. Recovered locally by falling
	// back to rule-based extraction.
	ErrExtractionParse = errors.New("extraction parse failure")

	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

// AppError carries a stable code alongside a human message.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
