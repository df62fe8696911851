package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineInit is returned when the engine cannot load its model data.
	// Recognition stays disabled until Init succeeds.
	ErrEngineInit = errors.New("OCR engine initialization failed")

	// ErrNotInitialized is returned when Recognize runs before a successful Init.
	ErrNotInitialized = errors.New("OCR engine not initialized")

	// ErrEngineClosed is returned when the engine is used after Close.
	ErrEngineClosed = errors.New("OCR engine closed")

	// ErrInterrupted is returned when a recognition was stopped by Interrupt
	// or by its context.
	ErrInterrupted = errors.New("OCR interrupted")
)

// EngineError wraps errors with the engine operation that produced them.
type EngineError struct {
	// Op is the operation that failed (e.g., "Init", "SetImage").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// newInitError builds an EngineError that matches ErrEngineInit as well as
// the underlying cause.
func newInitError(details string, cause error) error {
	if cause == nil {
		return &EngineError{Op: "Init", Err: ErrEngineInit, Details: details}
	}
	return &EngineError{Op: "Init", Err: fmt.Errorf("%w: %w", ErrEngineInit, cause), Details: details}
}
