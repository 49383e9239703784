package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/eligibility"
	"github.com/cuongbtq/interpreter-booking/internal/booking/events"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
)

// Create stores a new pending job for customer and announces it to the
// matched translators.
func (m *Machine) Create(ctx context.Context, repo Repository, job domain.Job, customer domain.User, now time.Time) (Outcome, error) {
	job.ID = 0
	job.CustomerID = customer.ID
	job.Status = domain.StatusPending
	job.CreatedAt = now
	job.UpdatedAt = now
	job.WillExpireAt = m.cfg.Expiry.WillExpireAt(job.Due, now)

	id, err := repo.InsertJob(ctx, job)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to insert job: %w", err)
	}
	job.ID = id

	out := Outcome{Job: job}
	out.Effects.emit(events.JobCreated(job.ID, customer.ID, now))

	broadcast, err := m.BroadcastEffects(ctx, repo, job, true, true, 0)
	if err != nil {
		return Outcome{}, err
	}
	out.Effects.merge(broadcast)

	m.audit("create", job.ID, customer.ID, snapshot{}, snapshotOf(job, 0))
	return out, nil
}

// Accept assigns a pending job to translator.
func (m *Machine) Accept(ctx context.Context, repo Repository, jobID int64, translator domain.User, now time.Time) (Outcome, error) {
	if !translator.IsTranslator() {
		return Outcome{}, domain.NewConflictError("Only translators can accept bookings", nil)
	}

	job, err := repo.LockJob(ctx, jobID)
	if err != nil {
		return Outcome{}, err
	}
	if job.Status != domain.StatusPending {
		return Outcome{}, domain.NewConflictError("Booking already accepted by someone else", domain.ErrJobAlreadyTaken)
	}
	before := snapshotOf(job, 0)

	customer, language, err := m.customerAndLanguage(ctx, repo, job)
	if err != nil {
		return Outcome{}, err
	}
	if reason := eligibility.Check(job, customer, translator); reason != eligibility.Eligible {
		m.logger.Info("Translator not eligible for job",
			slog.Int64("job_id", job.ID),
			slog.Int64("translator_id", translator.ID),
			slog.String("reason", string(reason)),
		)
		return Outcome{}, domain.NewConflictError("You are not eligible for this booking", nil)
	}

	if err := repo.LockUser(ctx, translator.ID); err != nil {
		return Outcome{}, fmt.Errorf("failed to lock translator: %w", err)
	}

	start, end := job.Window()
	busy, err := repo.HasOverlappingAssignment(ctx, translator.ID, start, end, job.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to check translator calendar: %w", err)
	}
	if busy {
		return Outcome{}, domain.NewConflictError("You already have a booking at that time. The booking was not accepted.", nil)
	}

	if err := repo.ClaimJob(ctx, job.ID, now); err != nil {
		if errors.Is(err, domain.ErrJobAlreadyTaken) {
			return Outcome{}, domain.NewConflictError("Booking already accepted by someone else", err)
		}
		return Outcome{}, fmt.Errorf("failed to claim job: %w", err)
	}

	_, err = repo.CreateAssignment(ctx, domain.Assignment{JobID: job.ID, TranslatorID: translator.ID, CreatedAt: now})
	if err != nil {
		if errors.Is(err, domain.ErrActiveAssignmentExists) {
			return Outcome{}, domain.NewConflictError("Booking already accepted by someone else", err)
		}
		return Outcome{}, fmt.Errorf("failed to create assignment: %w", err)
	}

	job.Status = domain.StatusAssigned
	job.UpdatedAt = now

	out := Outcome{Job: job}
	emails := m.acceptedEmails(job, customer, translator)
	out.Effects.add("email:job_accepted", func(ctx context.Context, n Notifier) notify.Report {
		return n.Email(ctx, emails...)
	})
	out.Effects.add("push:job_accepted", func(ctx context.Context, n Notifier) notify.Report {
		return n.Push(ctx, []domain.User{customer}, domain.NotificationJobAccepted, "default", job, customer, language)
	})

	m.audit("accept", job.ID, translator.ID, before, snapshotOf(job, translator.ID))
	return out, nil
}

// CancelByCustomer withdraws a pending or assigned job. The withdrawal is
// late when less than the cancel window remains before the due time.
func (m *Machine) CancelByCustomer(ctx context.Context, repo Repository, jobID int64, actor domain.User, now time.Time) (Outcome, error) {
	job, err := repo.LockJob(ctx, jobID)
	if err != nil {
		return Outcome{}, err
	}
	if actor.IsCustomer() && job.CustomerID != actor.ID {
		return Outcome{}, domain.NewConflictError("You can only cancel your own bookings", nil)
	}
	if job.Status != domain.StatusPending && job.Status != domain.StatusAssigned {
		return Outcome{}, domain.NewPreconditionError(job.Status, "Booking can not be cancelled")
	}

	assignment, translator, assigned, err := activeTranslator(ctx, repo, job.ID)
	if err != nil {
		return Outcome{}, err
	}
	before := snapshotOf(job, assignment.TranslatorID)

	if job.Due.Sub(now) >= m.cfg.CancelWindow {
		job.Status = domain.StatusWithdrawBefore24
	} else {
		job.Status = domain.StatusWithdrawAfter24
	}
	job.WithdrawAt = &now
	job.UpdatedAt = now

	if err := repo.SaveJob(ctx, job); err != nil {
		return Outcome{}, fmt.Errorf("failed to save job: %w", err)
	}
	if assigned {
		if err := repo.CancelAssignment(ctx, assignment.ID, now); err != nil {
			return Outcome{}, fmt.Errorf("failed to release assignment: %w", err)
		}
	}

	out := Outcome{Job: job}
	out.Effects.emit(events.JobCanceled(job.ID, actor.ID, string(job.Status), now))

	if assigned {
		customer, language, err := m.customerAndLanguage(ctx, repo, job)
		if err != nil {
			return Outcome{}, err
		}
		out.Effects.add("push:job_cancelled", func(ctx context.Context, n Notifier) notify.Report {
			return n.Push(ctx, []domain.User{translator}, domain.NotificationJobCancelled, "by_customer", job, customer, language)
		})
	}

	m.audit("cancel_by_customer", job.ID, actor.ID, before, snapshotOf(job, 0))
	return out, nil
}

// CancelByTranslator returns an assigned job to the pending pool. It is only
// allowed while more than the cancel window remains before the due time.
func (m *Machine) CancelByTranslator(ctx context.Context, repo Repository, jobID int64, translator domain.User, now time.Time) (Outcome, error) {
	job, err := repo.LockJob(ctx, jobID)
	if err != nil {
		return Outcome{}, err
	}

	assignment, _, assigned, err := activeTranslator(ctx, repo, job.ID)
	if err != nil {
		return Outcome{}, err
	}
	if !assigned || assignment.TranslatorID != translator.ID || job.Status != domain.StatusAssigned {
		return Outcome{}, domain.NewPreconditionError(job.Status, "You are not assigned to this booking")
	}
	if job.Due.Sub(now) <= m.cfg.CancelWindow {
		return Outcome{}, domain.NewConflictError("You can not cancel a booking that takes place within 24 hours. Please call us to cancel by phone.", nil)
	}
	before := snapshotOf(job, translator.ID)

	if err := repo.CancelAssignment(ctx, assignment.ID, now); err != nil {
		return Outcome{}, fmt.Errorf("failed to release assignment: %w", err)
	}

	job.Status = domain.StatusPending
	job.CreatedAt = now
	job.UpdatedAt = now
	job.WillExpireAt = m.cfg.Expiry.WillExpireAt(job.Due, now)
	if err := repo.SaveJob(ctx, job); err != nil {
		return Outcome{}, fmt.Errorf("failed to save job: %w", err)
	}

	customer, language, err := m.customerAndLanguage(ctx, repo, job)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Job: job}
	out.Effects.add("push:job_cancelled", func(ctx context.Context, n Notifier) notify.Report {
		return n.Push(ctx, []domain.User{customer}, domain.NotificationJobCancelled, "by_translator", job, customer, language)
	})

	broadcast, err := m.BroadcastEffects(ctx, repo, job, true, false, translator.ID)
	if err != nil {
		return Outcome{}, err
	}
	out.Effects.merge(broadcast)

	m.audit("cancel_by_translator", job.ID, translator.ID, before, snapshotOf(job, 0))
	return out, nil
}

// End completes a started session. Ending a job that is not started fails
// with a PreconditionError the caller treats as a no-op.
func (m *Machine) End(ctx context.Context, repo Repository, jobID int64, actor domain.User, now time.Time) (Outcome, error) {
	job, err := repo.LockJob(ctx, jobID)
	if err != nil {
		return Outcome{}, err
	}
	if job.Status != domain.StatusStarted {
		return Outcome{Job: job}, domain.NewPreconditionError(job.Status, "Session already ended")
	}

	assignment, translator, assigned, err := activeTranslator(ctx, repo, job.ID)
	if err != nil {
		return Outcome{}, err
	}
	before := snapshotOf(job, assignment.TranslatorID)

	job.Status = domain.StatusCompleted
	job.EndAt = &now
	job.SessionTime = domain.FormatSessionTime(now.Sub(job.Due))
	job.UpdatedAt = now
	if err := repo.SaveJob(ctx, job); err != nil {
		return Outcome{}, fmt.Errorf("failed to save job: %w", err)
	}
	if assigned {
		if err := repo.CloseAssignment(ctx, assignment.ID, now, actor.ID); err != nil {
			return Outcome{}, fmt.Errorf("failed to close assignment: %w", err)
		}
	}

	customer, err := repo.FindUser(ctx, job.CustomerID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load customer: %w", err)
	}

	out := Outcome{Job: job}
	out.Effects.emit(events.SessionEnded(job.ID, actor.ID, job.SessionTime, now))
	emails := m.sessionEndedEmails(job, customer, translator)
	if !assigned {
		emails = emails[:1]
	}
	out.Effects.add("email:session_ended", func(ctx context.Context, n Notifier) notify.Report {
		return n.Email(ctx, emails...)
	})

	m.audit("end", job.ID, actor.ID, before, snapshotOf(job, assignment.TranslatorID))
	return out, nil
}

// CustomerNotCall closes a started session the customer never showed up
// for. The customer is not notified.
func (m *Machine) CustomerNotCall(ctx context.Context, repo Repository, jobID int64, actor domain.User, now time.Time) (Outcome, error) {
	job, err := repo.LockJob(ctx, jobID)
	if err != nil {
		return Outcome{}, err
	}
	if job.Status != domain.StatusStarted {
		return Outcome{}, domain.NewPreconditionError(job.Status, "Only started bookings can be marked as not carried out")
	}

	assignment, _, assigned, err := activeTranslator(ctx, repo, job.ID)
	if err != nil {
		return Outcome{}, err
	}
	before := snapshotOf(job, assignment.TranslatorID)

	job.Status = domain.StatusNotCarriedOutCustomer
	job.EndAt = &now
	job.UpdatedAt = now
	if err := repo.SaveJob(ctx, job); err != nil {
		return Outcome{}, fmt.Errorf("failed to save job: %w", err)
	}
	if assigned {
		if err := repo.CloseAssignment(ctx, assignment.ID, now, assignment.TranslatorID); err != nil {
			return Outcome{}, fmt.Errorf("failed to close assignment: %w", err)
		}
	}

	m.audit("customer_not_call", job.ID, actor.ID, before, snapshotOf(job, assignment.TranslatorID))
	return Outcome{Job: job}, nil
}

// Start marks an assigned job as in progress.
func (m *Machine) Start(ctx context.Context, repo Repository, jobID int64, now time.Time) (Outcome, error) {
	job, err := repo.LockJob(ctx, jobID)
	if err != nil {
		return Outcome{}, err
	}
	if job.Status != domain.StatusAssigned {
		return Outcome{}, domain.NewPreconditionError(job.Status, "Only assigned bookings can be started")
	}
	before := snapshotOf(job, 0)

	job.Status = domain.StatusStarted
	job.UpdatedAt = now
	if err := repo.SaveJob(ctx, job); err != nil {
		return Outcome{}, fmt.Errorf("failed to save job: %w", err)
	}

	m.audit("start", job.ID, 0, before, snapshotOf(job, 0))
	return Outcome{Job: job}, nil
}

// Timeout expires a pending job nobody accepted in time.
func (m *Machine) Timeout(ctx context.Context, repo Repository, jobID int64, now time.Time) (Outcome, error) {
	job, err := repo.LockJob(ctx, jobID)
	if err != nil {
		return Outcome{}, err
	}
	if job.Status != domain.StatusPending {
		return Outcome{}, domain.NewPreconditionError(job.Status, "Only pending bookings can time out")
	}
	if !now.After(job.WillExpireAt) {
		return Outcome{}, domain.NewPreconditionError(job.Status, "Booking has not expired yet")
	}
	before := snapshotOf(job, 0)

	job.Status = domain.StatusTimedOut
	job.ExpiredAt = &now
	job.UpdatedAt = now
	if err := repo.SaveJob(ctx, job); err != nil {
		return Outcome{}, fmt.Errorf("failed to save job: %w", err)
	}

	customer, language, err := m.customerAndLanguage(ctx, repo, job)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Job: job}
	out.Effects.add("push:job_expired", func(ctx context.Context, n Notifier) notify.Report {
		return n.Push(ctx, []domain.User{customer}, domain.NotificationJobExpired, "default", job, customer, language)
	})

	m.audit("timeout", job.ID, 0, before, snapshotOf(job, 0))
	return out, nil
}

// ReopenComment is stored on a job created by reopening a timed out one.
func ReopenComment(originalID int64) string {
	return fmt.Sprintf("This booking is a reopening of booking #%d", originalID)
}

// Reopen puts a job back on the market. A timed out job is copied into a new
// pending job and left untouched; any other reopenable job is reset in
// place. The returned outcome carries the reopened job.
func (m *Machine) Reopen(ctx context.Context, repo Repository, jobID int64, actor domain.User, now time.Time) (Outcome, error) {
	original, err := repo.LockJob(ctx, jobID)
	if err != nil {
		return Outcome{}, err
	}

	assignment, _, assigned, err := activeTranslator(ctx, repo, original.ID)
	if err != nil {
		return Outcome{}, err
	}
	before := snapshotOf(original, assignment.TranslatorID)

	var reopened domain.Job
	switch original.Status {
	case domain.StatusTimedOut:
		reopened = original
		reopened.ID = 0
		reopened.Status = domain.StatusPending
		reopened.CreatedAt = now
		reopened.UpdatedAt = now
		reopened.WillExpireAt = m.cfg.Expiry.WillExpireAt(reopened.Due, now)
		reopened.AdminComments = ReopenComment(original.ID)
		reopened.SessionTime = ""
		reopened.EndAt, reopened.WithdrawAt, reopened.ExpiredAt = nil, nil, nil

		id, err := repo.InsertJob(ctx, reopened)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to insert reopened job: %w", err)
		}
		reopened.ID = id

	case domain.StatusAssigned, domain.StatusWithdrawBefore24, domain.StatusWithdrawAfter24, domain.StatusNotCarriedOutCustomer:
		reopened = original
		reopened.Status = domain.StatusPending
		reopened.CreatedAt = now
		reopened.UpdatedAt = now
		reopened.WillExpireAt = m.cfg.Expiry.WillExpireAt(reopened.Due, now)
		reopened.SessionTime = ""
		reopened.EndAt, reopened.WithdrawAt = nil, nil

		if err := repo.SaveJob(ctx, reopened); err != nil {
			return Outcome{}, fmt.Errorf("failed to save reopened job: %w", err)
		}

	default:
		return Outcome{}, domain.NewPreconditionError(original.Status, "This booking can not be reopened")
	}

	if assigned {
		if err := repo.CancelAssignment(ctx, assignment.ID, now); err != nil {
			return Outcome{}, fmt.Errorf("failed to cancel assignment: %w", err)
		}
	}

	_, err = repo.CreateAssignment(ctx, domain.Assignment{
		JobID:        reopened.ID,
		TranslatorID: actor.ID,
		CreatedAt:    now,
		CancelAt:     &now,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to record reopen: %w", err)
	}

	out := Outcome{Job: reopened}
	broadcast, err := m.BroadcastEffects(ctx, repo, reopened, true, false, 0)
	if err != nil {
		return Outcome{}, err
	}
	out.Effects.merge(broadcast)

	m.audit("reopen", original.ID, actor.ID, before, snapshotOf(reopened, 0))
	return out, nil
}

// ContactUpdate carries the contact details a customer adds after creating
// a booking.
type ContactUpdate struct {
	UserEmail    string
	Reference    string
	Address      string
	Instructions string
	Town         string
}

// UpdateContact stores the booking's contact details and confirms the
// booking to the contact address.
func (m *Machine) UpdateContact(ctx context.Context, repo Repository, jobID int64, in ContactUpdate, now time.Time) (Outcome, error) {
	job, err := repo.LockJob(ctx, jobID)
	if err != nil {
		return Outcome{}, err
	}

	job.UserEmail = in.UserEmail
	job.Reference = in.Reference
	if in.Address != "" || in.Instructions != "" || in.Town != "" {
		job.Address = in.Address
		job.Instructions = in.Instructions
		job.Town = in.Town
	}
	job.UpdatedAt = now
	if err := repo.SaveJob(ctx, job); err != nil {
		return Outcome{}, fmt.Errorf("failed to save job: %w", err)
	}

	customer, err := repo.FindUser(ctx, job.CustomerID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load customer: %w", err)
	}
	shown := job
	if shown.Address == "" {
		shown.Address = customer.Address
	}
	if shown.Instructions == "" {
		shown.Instructions = customer.Instructions
	}
	if shown.Town == "" {
		shown.Town = customer.City
	}

	out := Outcome{Job: job}
	msg := m.customerEmail(shown, customer, subject("Booking confirmation #%d", job), TemplateJobCreated,
		"address", shown.Address, "town", shown.Town, "instructions", shown.Instructions)
	out.Effects.add("email:job_created", func(ctx context.Context, n Notifier) notify.Report {
		return n.Email(ctx, msg)
	})
	return out, nil
}
