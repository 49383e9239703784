// Package service is the booking orchestrator. It validates intents, runs
// state machine transitions inside a transaction and dispatches their
// effects once the transaction has committed.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/events"
	"github.com/cuongbtq/interpreter-booking/internal/booking/lifecycle"
)

// Config tunes the orchestrator.
type Config struct {
	// ImmediateLead is how far ahead an immediate booking is placed.
	ImmediateLead time.Duration
	PageSize      int
	// Location is used to parse the due date and time of new bookings.
	Location *time.Location
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{ImmediateLead: 5 * time.Minute, PageSize: domain.DefaultPageSize, Location: time.UTC}
}

// BookingService exposes every booking operation.
type BookingService struct {
	cfg       Config
	store     lifecycle.Store
	machine   *lifecycle.Machine
	notifier  lifecycle.Notifier
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a BookingService.
type Option func(*BookingService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

// New creates a BookingService.
func New(cfg Config, store lifecycle.Store, machine *lifecycle.Machine, notifier lifecycle.Notifier, publisher events.Publisher, logger *slog.Logger, opts ...Option) *BookingService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = domain.DefaultPageSize
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &BookingService{
		cfg:       cfg,
		store:     store,
		machine:   machine,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type transitionFunc func(ctx context.Context, repo lifecycle.Repository, now time.Time) (lifecycle.Outcome, error)

// transition runs fn in a transaction and, once committed, its effects.
// Business errors come back as a failed result; other errors are returned.
func (s *BookingService) transition(ctx context.Context, op string, fn transitionFunc) (lifecycle.Outcome, domain.Result, error) {
	now := s.now()

	var out lifecycle.Outcome
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo lifecycle.Repository) error {
		var err error
		out, err = fn(ctx, repo, now)
		return err
	})
	if err != nil {
		res, err := domain.ResultFromError(err)
		if err != nil {
			s.logger.Error("Booking operation failed",
				slog.String("op", op),
				slog.Any("error", err),
			)
			return out, res, err
		}
		s.logger.Info("Booking operation rejected",
			slog.String("op", op),
			slog.String("reason", res.Message),
		)
		return out, res, nil
	}

	report := out.Effects.Run(ctx, s.notifier, s.publisher, s.logger)
	res := domain.Success("")
	res.ID = out.Job.ID
	res.Data = out.Job
	res.Warnings = report.Warnings()
	return out, res, nil
}

func (s *BookingService) actor(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.store.FindUser(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to load actor: %w", err)
	}
	return u, nil
}

// Accept assigns the job to the acting translator.
func (s *BookingService) Accept(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	translator, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}
	_, res, err := s.transition(ctx, "accept", func(ctx context.Context, repo lifecycle.Repository, now time.Time) (lifecycle.Outcome, error) {
		return s.machine.Accept(ctx, repo, jobID, translator, now)
	})
	if res.OK() {
		res.Message = "Booking accepted"
	}
	return res, err
}

// AcceptByID is Accept addressed by path rather than body. The success
// message describes the booking that was taken.
func (s *BookingService) AcceptByID(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	res, err := s.Accept(ctx, actorID, jobID)
	if err != nil || !res.OK() {
		return res, err
	}
	job, ok := res.Data.(domain.Job)
	if !ok {
		return res, nil
	}
	language, err := s.store.LanguageName(ctx, job.FromLanguageID)
	if err != nil {
		// The booking is already taken; keep the generic message.
		s.logger.Warn("Failed to load language for accept message",
			slog.Int64("job_id", job.ID),
			slog.Int64("language_id", job.FromLanguageID),
			slog.Any("error", err),
		)
		return res, nil
	}
	res.Message = fmt.Sprintf("You have accepted the booking for %s interpreter %dmin %s",
		language, job.Duration, job.Due.In(s.cfg.Location).Format("2006-01-02 15:04"))
	return res, nil
}

// Cancel withdraws a booking for a customer or admin, and hands it back to
// the pool for a translator.
func (s *BookingService) Cancel(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}

	if actor.IsTranslator() {
		_, res, err := s.transition(ctx, "cancel_by_translator", func(ctx context.Context, repo lifecycle.Repository, now time.Time) (lifecycle.Outcome, error) {
			return s.machine.CancelByTranslator(ctx, repo, jobID, actor, now)
		})
		return res, err
	}

	_, res, err := s.transition(ctx, "cancel_by_customer", func(ctx context.Context, repo lifecycle.Repository, now time.Time) (lifecycle.Outcome, error) {
		return s.machine.CancelByCustomer(ctx, repo, jobID, actor, now)
	})
	return res, err
}

// End closes a started session. Ending a job that is not started succeeds
// without doing anything.
func (s *BookingService) End(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}

	var pe *domain.PreconditionError
	now := s.now()
	var out lifecycle.Outcome
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo lifecycle.Repository) error {
		var err error
		out, err = s.machine.End(ctx, repo, jobID, actor, now)
		return err
	})
	if errors.As(err, &pe) {
		s.logger.Debug("End ignored", slog.Int64("job_id", jobID), slog.String("status", string(pe.Status)))
		return domain.Result{Status: domain.ResultSuccess, Message: "Session already ended", ID: jobID}, nil
	}
	if err != nil {
		return domain.ResultFromError(err)
	}

	report := out.Effects.Run(ctx, s.notifier, s.publisher, s.logger)
	res := domain.Success("Session ended")
	res.ID = out.Job.ID
	res.Data = out.Job
	res.Warnings = report.Warnings()
	return res, nil
}

// CustomerNotCall records that the customer never showed up.
func (s *BookingService) CustomerNotCall(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}
	_, res, err := s.transition(ctx, "customer_not_call", func(ctx context.Context, repo lifecycle.Repository, now time.Time) (lifecycle.Outcome, error) {
		return s.machine.CustomerNotCall(ctx, repo, jobID, actor, now)
	})
	return res, err
}

// Reopen puts a job back on the market. The result id is the id of the
// reopened job, which differs from jobID for timed out jobs.
func (s *BookingService) Reopen(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}
	_, res, err := s.transition(ctx, "reopen", func(ctx context.Context, repo lifecycle.Repository, now time.Time) (lifecycle.Outcome, error) {
		return s.machine.Reopen(ctx, repo, jobID, actor, now)
	})
	if res.OK() {
		res.Message = "Booking reopened"
	}
	return res, err
}

// AdminUpdate applies an admin's edit to a job.
func (s *BookingService) AdminUpdate(ctx context.Context, actorID, jobID int64, in lifecycle.AdminUpdate) (domain.Result, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}
	if !actor.IsAdmin() {
		return domain.Fail("Only admins can update bookings"), nil
	}

	out, res, err := s.transition(ctx, "admin_update", func(ctx context.Context, repo lifecycle.Repository, now time.Time) (lifecycle.Outcome, error) {
		return s.machine.AdminUpdate(ctx, repo, jobID, actor, in, now)
	})
	if res.OK() {
		res.Message = "Updated"
		res.Data = map[string]any{"job": out.Job, "changes": out.Changes}
	}
	return res, err
}

// StoreJobEmail records the contact details of a booking and confirms it
// to the contact address.
func (s *BookingService) StoreJobEmail(ctx context.Context, actorID, jobID int64, in lifecycle.ContactUpdate) (domain.Result, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}
	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return domain.Result{}, err
	}
	if !actor.IsAdmin() && job.CustomerID != actor.ID {
		return domain.Fail("You can only update your own bookings"), nil
	}

	_, res, err := s.transition(ctx, "store_job_email", func(ctx context.Context, repo lifecycle.Repository, now time.Time) (lifecycle.Outcome, error) {
		return s.machine.UpdateContact(ctx, repo, jobID, in, now)
	})
	return res, err
}

// ResendNotifications pushes a job to its matched translators again.
func (s *BookingService) ResendNotifications(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	return s.resend(ctx, actorID, jobID, true, false, "Push sent")
}

// ResendSMSNotifications texts a job to its matched translators again.
func (s *BookingService) ResendSMSNotifications(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	return s.resend(ctx, actorID, jobID, false, true, "SMS sent")
}

func (s *BookingService) resend(ctx context.Context, actorID, jobID int64, push, sms bool, message string) (domain.Result, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}
	if !actor.IsAdmin() {
		return domain.Fail("Only admins can resend notifications"), nil
	}

	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return domain.Result{}, err
	}
	eff, err := s.machine.BroadcastEffects(ctx, s.store, job, push, sms, 0)
	if err != nil {
		return domain.Result{}, err
	}

	report := eff.Run(ctx, s.notifier, s.publisher, s.logger)
	res := domain.Success(message)
	res.ID = job.ID
	res.Warnings = report.Warnings()
	return res, nil
}
