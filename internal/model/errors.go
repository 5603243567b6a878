package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("model: validation failed")
	ErrNotFound   = errors.New("model: not found")
)

// ValidationError reports a missing or malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("model: %s is required", e.Field)
	}
	return fmt.Sprintf("model: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an id that is not present in the list it was looked up in.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model: %s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func required(field string) error {
	return &ValidationError{Field: field}
}
