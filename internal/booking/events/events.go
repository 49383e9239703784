// Package events defines the outbound domain events of the booking core.
// Events are published after the transaction that produced them commits.
package events

import (
	"context"
	"sync"
	"time"
)

// Type names an event on the wire. It doubles as the routing key.
type Type string

const (
	TypeJobCreated   Type = "booking.job_created"
	TypeJobCanceled  Type = "booking.job_canceled"
	TypeSessionEnded Type = "booking.session_ended"
)

// Event is a single outbound message.
type Event struct {
	Type       Type           `json:"type"`
	JobID      int64          `json:"job_id"`
	ActorID    int64          `json:"actor_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// JobCreated is emitted once a new booking is stored.
func JobCreated(jobID, customerID int64, at time.Time) Event {
	return Event{Type: TypeJobCreated, JobID: jobID, ActorID: customerID, OccurredAt: at}
}

// JobCanceled is emitted when a customer withdraws a booking.
func JobCanceled(jobID, actorID int64, status string, at time.Time) Event {
	return Event{
		Type:       TypeJobCanceled,
		JobID:      jobID,
		ActorID:    actorID,
		OccurredAt: at,
		Attributes: map[string]any{"status": status},
	}
}

// SessionEnded is emitted when a started session is closed.
func SessionEnded(jobID, actorID int64, sessionTime string, at time.Time) Event {
	return Event{
		Type:       TypeSessionEnded,
		JobID:      jobID,
		ActorID:    actorID,
		OccurredAt: at,
		Attributes: map[string]any{"session_time": sessionTime},
	}
}

// Publisher sends events to whoever listens.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of the given type.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
