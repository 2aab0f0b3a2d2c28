package utils

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared across the pipeline. Configuration problems abort a
// run before processing; malformed records are skipped and counted; an empty
// knowledge table degrades the recommender to unknown-category output.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrEmptyKnowledgeTable  = errors.New("empty knowledge table")
	ErrMalformedRecord      = errors.New("malformed record")
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// InvalidConfig returns an AppError wrapping ErrInvalidConfiguration so
// callers can test with errors.Is.
func InvalidConfig(op, msg string) error {
	return &AppError{Op: op, Msg: msg, Err: ErrInvalidConfiguration}
}
