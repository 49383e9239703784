package lifecycle

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/events"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
)

// Notifier is the part of notify.Dispatcher a transition's effects use.
type Notifier interface {
	Push(ctx context.Context, recipients []domain.User, t domain.NotificationType, variant string, job domain.Job, customer domain.User, language string) notify.Report
	Broadcast(ctx context.Context, job domain.Job, customer domain.User, translators []domain.User, language string) notify.Report
	BroadcastSMS(ctx context.Context, job domain.Job, customer domain.User, translators []domain.User) notify.Report
	Email(ctx context.Context, msgs ...notify.EmailMessage) notify.Report
}

// Effect is one deferred notification.
type Effect struct {
	Name string
	Run  func(ctx context.Context, n Notifier) notify.Report
}

// Effects are the side effects of a transition. They must only run after
// the transaction that produced them has committed.
type Effects struct {
	Notifications []Effect
	Events        []events.Event
}

func (e *Effects) add(name string, run func(ctx context.Context, n Notifier) notify.Report) {
	e.Notifications = append(e.Notifications, Effect{Name: name, Run: run})
}

func (e *Effects) emit(evt events.Event) {
	e.Events = append(e.Events, evt)
}

func (e *Effects) merge(o Effects) {
	e.Notifications = append(e.Notifications, o.Notifications...)
	e.Events = append(e.Events, o.Events...)
}

// Names lists the notification effects in order.
func (e Effects) Names() []string {
	out := make([]string, len(e.Notifications))
	for i, n := range e.Notifications {
		out[i] = n.Name
	}
	return out
}

// Run publishes the events and performs the notifications. Failures are
// collected in the report, never returned.
func (e Effects) Run(ctx context.Context, n Notifier, pub events.Publisher, logger *slog.Logger) notify.Report {
	var report notify.Report

	for _, evt := range e.Events {
		if err := pub.Publish(ctx, evt); err != nil {
			logger.Error("Failed to publish event",
				slog.String("type", string(evt.Type)),
				slog.Int64("job_id", evt.JobID),
				slog.Any("error", err),
			)
			report.Failures = append(report.Failures, &domain.TransportError{Channel: "event", Recipient: string(evt.Type), Err: err})
		}
	}

	for _, effect := range e.Notifications {
		r := effect.Run(ctx, n)
		if r.Failed() {
			logger.Warn("Notification effect partially failed",
				slog.String("effect", effect.Name),
				slog.Any("error", r.Err()),
			)
		}
		report.Add(r)
	}

	return report
}
