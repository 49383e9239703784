package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the store
	ErrJobNotFound = errors.New("job not found")

	// ErrUserNotFound is returned when a user cannot be found in the store
	ErrUserNotFound = errors.New("user not found")

	// ErrAssignmentNotFound is returned when a job has no active assignment
	ErrAssignmentNotFound = errors.New("active assignment not found")

	// ErrJobAlreadyTaken is returned when a conditional claim finds the job no longer pending
	ErrJobAlreadyTaken = errors.New("job already taken")

	// ErrActiveAssignmentExists is returned by stores enforcing one active assignment per job
	ErrActiveAssignmentExists = errors.New("job already has an active assignment")
)

// ValidationError reports a missing or malformed field on an intent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError reports a business rule collision such as a lost accept race.
type ConflictError struct {
	Message string
	Err     error
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return e.Err }

// NewConflictError creates a ConflictError wrapping an optional cause.
func NewConflictError(message string, cause error) error {
	return &ConflictError{Message: message, Err: cause}
}

// PreconditionError reports a transition requested from the wrong state.
type PreconditionError struct {
	Status  JobStatus
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s (status %s)", e.Message, e.Status)
}

// NewPreconditionError creates a PreconditionError for the current status.
func NewPreconditionError(status JobStatus, message string) error {
	return &PreconditionError{Status: status, Message: message}
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     any
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// JobNotFound wraps ErrJobNotFound with the job id.
func JobNotFound(id int64) error {
	return &NotFoundError{Entity: "job", ID: id, Err: ErrJobNotFound}
}

// UserNotFound wraps ErrUserNotFound with the user id or email.
func UserNotFound(id any) error {
	return &NotFoundError{Entity: "user", ID: id, Err: ErrUserNotFound}
}

// TransportError records a failed notification delivery.
type TransportError struct {
	Channel   string
	Recipient string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s to %s failed: %v", e.Channel, e.Recipient, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsNotFound reports whether err denotes a missing entity.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) || errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrUserNotFound)
}
