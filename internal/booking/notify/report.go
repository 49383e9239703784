package notify

import (
	"errors"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// Report summarizes one dispatch. Failures never abort a dispatch; they are
// collected here for the caller to surface as warnings.
type Report struct {
	Sent     int
	Delayed  int
	Skipped  int
	Failures []*domain.TransportError
}

// Add merges another report into r.
func (r *Report) Add(o Report) {
	r.Sent += o.Sent
	r.Delayed += o.Delayed
	r.Skipped += o.Skipped
	r.Failures = append(r.Failures, o.Failures...)
}

func (r *Report) fail(channel, recipient string, err error) {
	r.Failures = append(r.Failures, &domain.TransportError{Channel: channel, Recipient: recipient, Err: err})
}

// Failed reports whether any delivery failed.
func (r Report) Failed() bool { return len(r.Failures) > 0 }

// Err joins every failure, or returns nil.
func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Warnings renders the failures as human readable lines.
func (r Report) Warnings() []string {
	if len(r.Failures) == 0 {
		return nil
	}
	out := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.Error()
	}
	return out
}
