package service

import (
	"errors"
	"fmt"

	"boardpacks/internal/actor"
)

var (
	ErrNotAuthenticated = actor.ErrNotAuthenticated
	ErrInvalidInput     = errors.New("invalid input")
)

// ValidationError is an input problem found before any store call. Its message is shown to the
// user as is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) UserMessage() string {
	return e.Message
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
