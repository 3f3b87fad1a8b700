package models

import "fmt"

// ValidationError represents a malformed request or record.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// NotFoundError means a requested resource or data set does not exist.
// Message, when set, replaces the generated text.
type NotFoundError struct {
	Resource string
	ID       string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// ComputationError is a numerical failure inside the model fitter, such as
// an under-determined system.
type ComputationError struct {
	Op      string
	Message string
}

func (e *ComputationError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ComputationError) IsTransient() bool {
	return false
}

// ConflictError is returned when a write collides with an existing row.
type ConflictError struct {
	Resource string
	Key      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Key)
}

func (e *ConflictError) IsTransient() bool {
	return false
}
