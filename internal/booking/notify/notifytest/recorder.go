// Package notifytest provides an in-memory notify.Transport for tests.
package notifytest

import (
	"context"
	"sync"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// PushCall records one SendPush call.
type PushCall struct {
	Recipients []domain.User
	Payload    domain.NotificationPayload
	SendAfter  *time.Time
}

// SMSCall records one SendSMS call.
type SMSCall struct {
	To       domain.User
	Template string
	Vars     map[string]string
}

// EmailCall records one SendEmail call.
type EmailCall struct {
	To       string
	Name     string
	Subject  string
	Template string
	Vars     map[string]string
}

// Recorder captures every delivery. FailEmailTo, FailSMS and FailPush make
// the matching calls return their error instead.
type Recorder struct {
	mu     sync.Mutex
	pushes []PushCall
	sms    []SMSCall
	emails []EmailCall

	FailPush    error
	FailSMS     error
	FailEmailTo map[string]error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{FailEmailTo: map[string]error{}}
}

func (r *Recorder) SendPush(_ context.Context, recipients []domain.User, payload domain.NotificationPayload, sendAfter *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailPush != nil {
		return r.FailPush
	}
	r.pushes = append(r.pushes, PushCall{Recipients: recipients, Payload: payload, SendAfter: sendAfter})
	return nil
}

func (r *Recorder) SendSMS(_ context.Context, to domain.User, templateKey string, vars map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSMS != nil {
		return r.FailSMS
	}
	r.sms = append(r.sms, SMSCall{To: to, Template: templateKey, Vars: vars})
	return nil
}

func (r *Recorder) SendEmail(_ context.Context, to, name, subject, templateKey string, vars map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailEmailTo[to]; err != nil {
		return err
	}
	r.emails = append(r.emails, EmailCall{To: to, Name: name, Subject: subject, Template: templateKey, Vars: vars})
	return nil
}

// Pushes returns a copy of the recorded push calls.
func (r *Recorder) Pushes() []PushCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PushCall(nil), r.pushes...)
}

// SMS returns a copy of the recorded SMS calls.
func (r *Recorder) SMS() []SMSCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SMSCall(nil), r.sms...)
}

// Emails returns a copy of the recorded email calls.
func (r *Recorder) Emails() []EmailCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EmailCall(nil), r.emails...)
}

// PushesOfType returns the push calls carrying the given notification type.
func (r *Recorder) PushesOfType(t domain.NotificationType) []PushCall {
	var out []PushCall
	for _, p := range r.Pushes() {
		if p.Payload.NotificationType == t {
			out = append(out, p)
		}
	}
	return out
}

// EmailsTo returns the email calls addressed to the given address.
func (r *Recorder) EmailsTo(addr string) []EmailCall {
	var out []EmailCall
	for _, e := range r.Emails() {
		if e.To == addr {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets every recorded call.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes, r.sms, r.emails = nil, nil, nil
}
