package domain

import "errors"

var (
	// ErrInvalidPayload is returned when a delivery cannot be rendered or sent
	// as given. Such deliveries are dead-lettered.
	ErrInvalidPayload = errors.New("invalid delivery payload")

	// ErrMaxRetriesExceeded is returned when a delivery has used up its attempts
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrSenderNotConfigured is returned when no sender handles a channel
	ErrSenderNotConfigured = errors.New("sender not configured")
)

// RetryableError wraps transient errors that should trigger a retry
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err or anything it wraps is a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
