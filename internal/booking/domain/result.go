package domain

import "errors"

const (
	ResultSuccess = "success"
	ResultFail    = "fail"
)

// Result is the uniform response of every booking operation.
type Result struct {
	Status    string   `json:"status"`
	Message   string   `json:"message,omitempty"`
	FieldName string   `json:"field_name,omitempty"`
	ID        int64    `json:"id,omitempty"`
	Data      any      `json:"data,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Success builds a successful result.
func Success(message string) Result {
	return Result{Status: ResultSuccess, Message: message}
}

// Fail builds a failed result without a field.
func Fail(message string) Result {
	return Result{Status: ResultFail, Message: message}
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Status == ResultSuccess }

// Degraded reports a committed transition whose notifications partly failed.
func (r Result) Degraded() bool { return r.OK() && len(r.Warnings) > 0 }

// ResultFromError turns business errors into failed results. Errors that are
// not part of the business taxonomy are returned unchanged for the caller to
// propagate.
func ResultFromError(err error) (Result, error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return Result{Status: ResultFail, Message: ve.Message, FieldName: ve.Field}, nil
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return Fail(ce.Message), nil
	}
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return Fail(pe.Message), nil
	}
	return Result{}, err
}
