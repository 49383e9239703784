package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// SMS template keys.
const (
	SMSPhoneJob    = "sms.phone_job"
	SMSPhysicalJob = "sms.physical_job"
)

// EmailMessage is one (recipient, template) email.
type EmailMessage struct {
	To       string
	Name     string
	Subject  string
	Template string
	Vars     map[string]string
}

// Dispatcher applies recipient preferences and hands messages to the
// transport.
type Dispatcher struct {
	transport Transport
	catalog   *Catalog
	clock     Clock
	now       func() time.Time
	loc       *time.Location
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNow overrides the dispatcher's clock source.
func WithNow(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithLocation sets the zone dates and times are rendered in. The default
// is UTC.
func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(transport Transport, catalog *Catalog, clock Clock, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport: transport,
		catalog:   catalog,
		clock:     clock,
		now:       time.Now,
		loc:       time.UTC,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Push renders a notification for job and sends it to recipients.
func (d *Dispatcher) Push(ctx context.Context, recipients []domain.User, t domain.NotificationType, variant string, job domain.Job, customer domain.User, language string) Report {
	var report Report
	if len(recipients) == 0 {
		return report
	}

	msg, err := d.catalog.PushMessage(t, variant, JobVars(job, customer, language, d.loc))
	if err != nil {
		report.fail(ChannelPush, recipientIDs(recipients), err)
		return report
	}

	local := job
	local.Due = job.Due.In(d.loc)
	payload := domain.NewPayload(t, local, customer, language, msg)
	return d.SendPayload(ctx, recipients, payload)
}

// Broadcast announces a pending job to the translators it was matched with.
func (d *Dispatcher) Broadcast(ctx context.Context, job domain.Job, customer domain.User, translators []domain.User, language string) Report {
	variant := "regular"
	if job.Immediate {
		variant = "immediate"
	}
	return d.Push(ctx, translators, domain.NotificationSuitableJob, variant, job, customer, language)
}

// SendPayload filters recipients by their preferences and splits them into
// a batch sent now and a batch held until the next business time.
func (d *Dispatcher) SendPayload(ctx context.Context, recipients []domain.User, payload domain.NotificationPayload) Report {
	var report Report

	now := d.now()
	night := d.clock.IsNight(now)
	emergency := payload.NotificationType == domain.NotificationSuitableJob && payload.Immediate

	var sendNow, delayed []domain.User
	for _, u := range recipients {
		switch {
		case u.NotGetNotification:
			report.Skipped++
		case emergency && u.NotGetEmergency:
			report.Skipped++
		case night && u.NotGetNighttime:
			delayed = append(delayed, u)
		default:
			sendNow = append(sendNow, u)
		}
	}

	if len(sendNow) > 0 {
		if err := d.transport.SendPush(ctx, sendNow, payload, nil); err != nil {
			report.fail(ChannelPush, recipientIDs(sendNow), err)
		} else {
			report.Sent += len(sendNow)
		}
	}

	if len(delayed) > 0 {
		sendAfter := d.clock.NextBusinessTime(now)
		if err := d.transport.SendPush(ctx, delayed, payload, &sendAfter); err != nil {
			report.fail(ChannelPush, recipientIDs(delayed), err)
		} else {
			report.Delayed += len(delayed)
		}
	}

	d.logger.Debug("Push dispatched",
		slog.String("type", string(payload.NotificationType)),
		slog.Int64("job_id", payload.JobID),
		slog.Int("now", len(sendNow)),
		slog.Int("delayed", len(delayed)),
		slog.Int("skipped", report.Skipped),
	)

	return report
}

// BroadcastSMS texts the matched translators of a new job.
func (d *Dispatcher) BroadcastSMS(ctx context.Context, job domain.Job, customer domain.User, translators []domain.User) Report {
	var report Report

	key := SMSTemplate(job)
	vars := SMSVars(job, customer, d.loc)

	for _, t := range translators {
		if t.Mobile == "" {
			report.Skipped++
			continue
		}
		if err := d.transport.SendSMS(ctx, t, key, vars); err != nil {
			report.fail(ChannelSMS, t.Mobile, err)
			continue
		}
		report.Sent++
	}

	d.logger.Debug("SMS dispatched",
		slog.Int64("job_id", job.ID),
		slog.String("template", key),
		slog.Int("sent", report.Sent),
	)

	return report
}

// Email sends each message with its own transport call.
func (d *Dispatcher) Email(ctx context.Context, msgs ...EmailMessage) Report {
	var report Report
	for _, m := range msgs {
		if m.To == "" {
			report.Skipped++
			continue
		}
		if err := d.transport.SendEmail(ctx, m.To, m.Name, m.Subject, m.Template, m.Vars); err != nil {
			d.logger.Warn("Email delivery failed",
				slog.String("to", m.To),
				slog.String("template", m.Template),
				slog.Any("error", err),
			)
			report.fail(ChannelEmail, m.To, err)
			continue
		}
		report.Sent++
	}
	return report
}

// SMSTemplate picks the SMS template for a job.
func SMSTemplate(job domain.Job) string {
	if job.IsPhysicalOnly() {
		return SMSPhysicalJob
	}
	return SMSPhoneJob
}

// SMSVars builds the variables of the job SMS templates, with the due time
// in loc.
func SMSVars(job domain.Job, customer domain.User, loc *time.Location) map[string]string {
	town := job.Town
	if town == "" {
		town = customer.City
	}
	due := job.Due.In(loc)
	return map[string]string{
		"date":     due.Format("02-01-2006"),
		"time":     due.Format("15:04"),
		"town":     town,
		"duration": domain.HoursMins(job.Duration),
		"jobId":    strconv.FormatInt(job.ID, 10),
	}
}

// JobVars builds the variables shared by push and email templates, with the
// due time in loc.
func JobVars(job domain.Job, customer domain.User, language string, loc *time.Location) map[string]string {
	town := job.Town
	if town == "" {
		town = customer.City
	}
	due := job.Due.In(loc)
	return map[string]string{
		"job_id":   strconv.FormatInt(job.ID, 10),
		"language": language,
		"duration": strconv.Itoa(job.Duration),
		"due":      due.Format("2006-01-02 15:04"),
		"due_date": due.Format(time.DateOnly),
		"due_time": due.Format("15:04"),
		"town":     town,
	}
}

func recipientIDs(users []domain.User) string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = strconv.FormatInt(u.ID, 10)
	}
	return fmt.Sprintf("users[%s]", strings.Join(ids, ","))
}
