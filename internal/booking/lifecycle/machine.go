// Package lifecycle implements the job state machine.
//
// Each transition runs against a Repository that the caller has bound to a
// transaction. It mutates the job and its assignments and returns an
// Outcome whose Effects the caller runs once the transaction has committed.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/eligibility"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
)

// Config tunes the state machine.
type Config struct {
	Expiry domain.ExpiryPolicy
	// Customer cancellations at least this far ahead are withdrawbefore24.
	// Translators may only cancel strictly more than this far ahead.
	CancelWindow time.Duration
	// Location is the zone due times are written in for emails. Nil means
	// UTC.
	Location *time.Location
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{Expiry: domain.DefaultExpiryPolicy(), CancelWindow: 24 * time.Hour}
}

// Change is one field changed by a transition.
type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Outcome is the result of a committed transition.
type Outcome struct {
	Job     domain.Job
	Effects Effects
	Changes []Change
}

// Machine holds the transition rules.
type Machine struct {
	cfg    Config
	logger *slog.Logger
}

// NewMachine creates a state machine.
func NewMachine(cfg Config, logger *slog.Logger) *Machine {
	return &Machine{cfg: cfg, logger: logger}
}

func (m *Machine) localTime(t time.Time) string {
	loc := m.cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

// Config returns the machine's settings.
func (m *Machine) Config() Config { return m.cfg }

// snapshot is the audited view of a job.
type snapshot struct {
	status     domain.JobStatus
	due        time.Time
	languageID int64
	translator int64
}

func (s snapshot) attrs() []any {
	return []any{
		slog.String("status", string(s.status)),
		slog.Time("due", s.due),
		slog.Int64("language_id", s.languageID),
		slog.Int64("translator_id", s.translator),
	}
}

func snapshotOf(job domain.Job, translatorID int64) snapshot {
	return snapshot{status: job.Status, due: job.Due, languageID: job.FromLanguageID, translator: translatorID}
}

func (m *Machine) audit(op string, jobID, actorID int64, before, after snapshot) {
	m.logger.Info("Job transition",
		slog.String("op", op),
		slog.Int64("job_id", jobID),
		slog.Int64("actor_id", actorID),
		slog.Group("before", before.attrs()...),
		slog.Group("after", after.attrs()...),
	)
}

// activeTranslator returns the active assignment of a job and its
// translator. ok is false when the job has no active assignment.
func activeTranslator(ctx context.Context, repo Repository, jobID int64) (domain.Assignment, domain.User, bool, error) {
	a, err := repo.FindActiveAssignment(ctx, jobID)
	if errors.Is(err, domain.ErrAssignmentNotFound) {
		return domain.Assignment{}, domain.User{}, false, nil
	}
	if err != nil {
		return domain.Assignment{}, domain.User{}, false, fmt.Errorf("failed to load assignment: %w", err)
	}
	t, err := repo.FindUser(ctx, a.TranslatorID)
	if err != nil {
		return domain.Assignment{}, domain.User{}, false, fmt.Errorf("failed to load translator: %w", err)
	}
	return a, t, true, nil
}

func (m *Machine) customerAndLanguage(ctx context.Context, repo Repository, job domain.Job) (domain.User, string, error) {
	customer, err := repo.FindUser(ctx, job.CustomerID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("failed to load customer: %w", err)
	}
	language, err := repo.LanguageName(ctx, job.FromLanguageID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("failed to load language: %w", err)
	}
	return customer, language, nil
}

// MatchTranslators returns the translators eligible for job.
func (m *Machine) MatchTranslators(ctx context.Context, repo Repository, job domain.Job, customer domain.User) ([]domain.User, error) {
	pool, err := repo.ListTranslators(ctx, job.FromLanguageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list translators: %w", err)
	}
	return eligibility.Filter(job, customer, pool), nil
}

// BroadcastEffects builds the suitable_job push for a pending job. When
// withSMS is set the matched translators are texted as well. exclude drops
// one translator from the audience; zero excludes nobody.
func (m *Machine) BroadcastEffects(ctx context.Context, repo Repository, job domain.Job, withPush, withSMS bool, exclude int64) (Effects, error) {
	var eff Effects

	customer, language, err := m.customerAndLanguage(ctx, repo, job)
	if err != nil {
		return eff, err
	}
	matched, err := m.MatchTranslators(ctx, repo, job, customer)
	if err != nil {
		return eff, err
	}
	if exclude != 0 {
		matched = eligibility.Exclude(matched, exclude)
	}

	if withPush {
		eff.add("push:suitable_job", func(ctx context.Context, n Notifier) notify.Report {
			return n.Broadcast(ctx, job, customer, matched, language)
		})
	}
	if withSMS {
		eff.add("sms:new_job", func(ctx context.Context, n Notifier) notify.Report {
			return n.BroadcastSMS(ctx, job, customer, matched)
		})
	}

	return eff, nil
}
