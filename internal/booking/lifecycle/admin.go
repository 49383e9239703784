package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
)

// AdminUpdate is an admin's edit of a job. Nil fields are left unchanged.
type AdminUpdate struct {
	Due             *time.Time
	TranslatorID    *int64
	TranslatorEmail string
	FromLanguageID  *int64
	Status          *domain.JobStatus
	AdminComments   *string
	SessionTime     *string
	Reference       *string
}

func (u AdminUpdate) comment() string {
	if u.AdminComments == nil {
		return ""
	}
	return *u.AdminComments
}

func (u AdminUpdate) sessionTime() string {
	if u.SessionTime == nil {
		return ""
	}
	return *u.SessionTime
}

// adminState is the working set of one AdminUpdate call.
type adminState struct {
	m      *Machine
	repo   Repository
	job    domain.Job
	in     AdminUpdate
	target domain.JobStatus
	actor  domain.User
	now    time.Time

	customer domain.User
	language string

	assignment    domain.Assignment
	translator    domain.User
	hasTranslator bool

	previous          domain.User
	hadPrevious       bool
	translatorChanged bool

	effects Effects
}

// adminRule guards and applies one admin status change.
type adminRule struct {
	guard func(st *adminState) error
	apply func(ctx context.Context, st *adminState) error
}

// anyStatus matches every target status not listed explicitly.
const anyStatus domain.JobStatus = "*"

var adminTransitions = map[domain.JobStatus]map[domain.JobStatus]adminRule{
	domain.StatusTimedOut: {
		domain.StatusPending:  {apply: timedoutToPending},
		domain.StatusAssigned: {guard: requireTranslatorChange, apply: timedoutToAssigned},
	},
	domain.StatusCompleted: {
		domain.StatusTimedOut: {guard: requireComment, apply: setStatus},
		anyStatus:             {apply: setStatus},
	},
	domain.StatusStarted: {
		domain.StatusCompleted: {guard: requireSessionTime, apply: startedToCompleted},
	},
	domain.StatusPending: {
		domain.StatusAssigned: {guard: requireTranslatorChange, apply: pendingToAssigned},
	},
	domain.StatusWithdrawAfter24: {
		domain.StatusTimedOut: {guard: requireComment, apply: setStatus},
	},
	domain.StatusAssigned: {
		domain.StatusWithdrawBefore24: {apply: assignedToWithdrawn},
		domain.StatusWithdrawAfter24:  {apply: assignedToWithdrawn},
		domain.StatusTimedOut:         {guard: requireComment, apply: assignedToTimedout},
	},
}

func lookupAdminRule(from, to domain.JobStatus) (adminRule, bool) {
	targets, ok := adminTransitions[from]
	if !ok {
		return adminRule{}, false
	}
	if rule, ok := targets[to]; ok {
		return rule, true
	}
	rule, ok := targets[anyStatus]
	return rule, ok
}

func requireTranslatorChange(st *adminState) error {
	if !st.translatorChanged {
		return domain.NewValidationError("translator", "A new translator is required to assign this booking")
	}
	return nil
}

func requireComment(st *adminState) error {
	if st.in.comment() == "" {
		return domain.NewValidationError("admin_comments", "An admin comment is required for this status change")
	}
	return nil
}

func requireSessionTime(st *adminState) error {
	if st.in.sessionTime() == "" {
		return domain.NewValidationError("session_time", "Session time is required to complete this booking")
	}
	return nil
}

func setStatus(_ context.Context, st *adminState) error {
	st.job.Status = st.target
	return nil
}

func timedoutToPending(ctx context.Context, st *adminState) error {
	st.job.Status = domain.StatusPending
	st.job.CreatedAt = st.now
	st.job.WillExpireAt = st.m.cfg.Expiry.WillExpireAt(st.job.Due, st.now)
	st.job.ExpiredAt = nil

	msg := st.m.customerEmail(st.job, st.customer, subject("Booking #%d has been reopened", st.job), TemplateReopened)
	st.effects.add("email:reopened", func(ctx context.Context, n Notifier) notify.Report {
		return n.Email(ctx, msg)
	})

	broadcast, err := st.m.BroadcastEffects(ctx, st.repo, st.job, true, false, 0)
	if err != nil {
		return err
	}
	st.effects.merge(broadcast)
	return nil
}

func timedoutToAssigned(_ context.Context, st *adminState) error {
	st.job.Status = domain.StatusAssigned
	msg := st.m.acceptedEmails(st.job, st.customer, st.translator)[0]
	st.effects.add("email:job_accepted", func(ctx context.Context, n Notifier) notify.Report {
		return n.Email(ctx, msg)
	})
	return nil
}

func pendingToAssigned(_ context.Context, st *adminState) error {
	st.job.Status = domain.StatusAssigned

	job, customer, translator, language := st.job, st.customer, st.translator, st.language
	emails := st.m.acceptedEmails(job, customer, translator)
	st.effects.add("email:job_accepted", func(ctx context.Context, n Notifier) notify.Report {
		return n.Email(ctx, emails...)
	})

	variant := "phone"
	if job.IsPhysicalOnly() {
		variant = "physical"
	}
	st.effects.add("push:session_start_remind", func(ctx context.Context, n Notifier) notify.Report {
		return n.Push(ctx, []domain.User{customer, translator}, domain.NotificationSessionStartRemind, variant, job, customer, language)
	})
	return nil
}

func startedToCompleted(ctx context.Context, st *adminState) error {
	st.job.Status = domain.StatusCompleted
	st.job.SessionTime = st.in.sessionTime()
	st.job.EndAt = &st.now

	if st.hasTranslator {
		if err := st.repo.CloseAssignment(ctx, st.assignment.ID, st.now, st.actor.ID); err != nil {
			return fmt.Errorf("failed to close assignment: %w", err)
		}
	}

	emails := st.m.sessionEndedEmails(st.job, st.customer, st.translator)
	if !st.hasTranslator {
		emails = emails[:1]
	}
	st.effects.add("email:session_ended", func(ctx context.Context, n Notifier) notify.Report {
		return n.Email(ctx, emails...)
	})
	return nil
}

func assignedToWithdrawn(ctx context.Context, st *adminState) error {
	st.job.Status = st.target
	st.job.WithdrawAt = &st.now

	msgs := []notify.EmailMessage{
		st.m.customerEmail(st.job, st.customer, subject("Booking #%d has been cancelled", st.job), TemplateCancelledCustomer),
	}
	if st.hasTranslator {
		if err := st.repo.CancelAssignment(ctx, st.assignment.ID, st.now); err != nil {
			return fmt.Errorf("failed to release assignment: %w", err)
		}
		msgs = append(msgs, st.m.translatorEmail(st.job, st.translator, subject("Booking #%d has been cancelled", st.job), TemplateCancelledTranslator))
	}

	st.effects.add("email:cancelled", func(ctx context.Context, n Notifier) notify.Report {
		return n.Email(ctx, msgs...)
	})
	return nil
}

func assignedToTimedout(ctx context.Context, st *adminState) error {
	st.job.Status = domain.StatusTimedOut
	if st.hasTranslator {
		if err := st.repo.CancelAssignment(ctx, st.assignment.ID, st.now); err != nil {
			return fmt.Errorf("failed to release assignment: %w", err)
		}
	}
	return nil
}

// AdminUpdate applies an admin edit: translator, due time, language and
// status, in that order. A failed guard returns a ValidationError and the
// caller must roll back everything. When the resulting due time is not in
// the future the edit is stored but nobody is notified.
func (m *Machine) AdminUpdate(ctx context.Context, repo Repository, jobID int64, actor domain.User, in AdminUpdate, now time.Time) (Outcome, error) {
	job, err := repo.LockJob(ctx, jobID)
	if err != nil {
		return Outcome{}, err
	}

	st := &adminState{m: m, repo: repo, job: job, in: in, actor: actor, now: now}

	st.assignment, st.translator, st.hasTranslator, err = activeTranslator(ctx, repo, job.ID)
	if err != nil {
		return Outcome{}, err
	}
	before := snapshotOf(job, st.assignment.TranslatorID)

	st.customer, st.language, err = m.customerAndLanguage(ctx, repo, job)
	if err != nil {
		return Outcome{}, err
	}

	var changes []Change

	change, err := st.changeTranslator(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if change != nil {
		changes = append(changes, *change)
	}

	oldDue := st.job.Due
	dateChanged := in.Due != nil && !in.Due.Equal(st.job.Due)
	if dateChanged {
		st.job.Due = *in.Due
		changes = append(changes, Change{Field: "due", Old: oldDue.Format(time.DateTime), New: in.Due.Format(time.DateTime)})
	}

	languageChanged := in.FromLanguageID != nil && *in.FromLanguageID != st.job.FromLanguageID
	if languageChanged {
		changes = append(changes, Change{
			Field: "from_language_id",
			Old:   strconv.FormatInt(st.job.FromLanguageID, 10),
			New:   strconv.FormatInt(*in.FromLanguageID, 10),
		})
		st.job.FromLanguageID = *in.FromLanguageID
		if st.language, err = repo.LanguageName(ctx, st.job.FromLanguageID); err != nil {
			return Outcome{}, fmt.Errorf("failed to load language: %w", err)
		}
	}

	if in.Status != nil && *in.Status != st.job.Status {
		st.target = *in.Status
		rule, ok := lookupAdminRule(st.job.Status, st.target)
		if !ok {
			m.logger.Info("Admin status change not allowed, status unchanged",
				slog.Int64("job_id", job.ID),
				slog.String("from", string(st.job.Status)),
				slog.String("to", string(st.target)),
			)
		} else {
			if rule.guard != nil {
				if err := rule.guard(st); err != nil {
					return Outcome{}, err
				}
			}
			from := st.job.Status
			if err := rule.apply(ctx, st); err != nil {
				return Outcome{}, err
			}
			changes = append(changes, Change{Field: "status", Old: string(from), New: string(st.job.Status)})
		}
	}

	if in.AdminComments != nil {
		st.job.AdminComments = *in.AdminComments
	}
	if in.Reference != nil {
		st.job.Reference = *in.Reference
	}
	st.job.UpdatedAt = now

	if err := repo.SaveJob(ctx, st.job); err != nil {
		return Outcome{}, fmt.Errorf("failed to save job: %w", err)
	}

	st.changeNotifications(dateChanged, languageChanged, oldDue)

	if !st.job.Due.After(now) {
		m.logger.Info("Job due time has passed, notifications dropped",
			slog.Int64("job_id", job.ID),
			slog.Int("dropped", len(st.effects.Notifications)),
		)
		st.effects.Notifications = nil
	}

	m.audit("admin_update", job.ID, actor.ID, before, snapshotOf(st.job, st.activeTranslatorID()))
	if len(changes) > 0 {
		attrs := make([]any, 0, len(changes))
		for _, c := range changes {
			attrs = append(attrs, slog.Group(c.Field, slog.String("old", c.Old), slog.String("new", c.New)))
		}
		m.logger.Info("Admin changed job", append([]any{slog.Int64("job_id", job.ID), slog.Int64("admin_id", actor.ID)}, attrs...)...)
	}

	return Outcome{Job: st.job, Effects: st.effects, Changes: changes}, nil
}

func (st *adminState) activeTranslatorID() int64 {
	if !st.hasTranslator || st.job.Status.IsTerminal() || st.job.Status == domain.StatusTimedOut {
		return 0
	}
	return st.translator.ID
}

// changeTranslator swaps the active assignment for the translator named by
// id or email. It returns nil when nothing changed.
func (st *adminState) changeTranslator(ctx context.Context) (*Change, error) {
	var (
		next domain.User
		err  error
	)
	switch {
	case st.in.TranslatorID != nil && *st.in.TranslatorID != 0:
		next, err = st.repo.FindUser(ctx, *st.in.TranslatorID)
	case st.in.TranslatorEmail != "":
		next, err = st.repo.FindUserByEmail(ctx, st.in.TranslatorEmail)
	default:
		return nil, nil
	}
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewValidationError("translator", "Translator not found")
		}
		return nil, fmt.Errorf("failed to load translator: %w", err)
	}
	if !next.IsTranslator() {
		return nil, domain.NewValidationError("translator", "User is not a translator")
	}
	if st.hasTranslator && st.translator.ID == next.ID {
		return nil, nil
	}

	// Check against the due time the update leaves the job with.
	window := st.job
	if st.in.Due != nil {
		window.Due = *st.in.Due
	}
	start, end := window.Window()
	busy, err := st.repo.HasOverlappingAssignment(ctx, next.ID, start, end, st.job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check translator calendar: %w", err)
	}
	if busy {
		return nil, domain.NewValidationError("translator", "Translator already has a booking at that time")
	}

	old := ""
	if st.hasTranslator {
		if err := st.repo.CancelAssignment(ctx, st.assignment.ID, st.now); err != nil {
			return nil, fmt.Errorf("failed to release assignment: %w", err)
		}
		st.previous, st.hadPrevious = st.translator, true
		old = strconv.FormatInt(st.translator.ID, 10)
	}

	a := domain.Assignment{JobID: st.job.ID, TranslatorID: next.ID, CreatedAt: st.now}
	if a.ID, err = st.repo.CreateAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	st.assignment = a
	st.translator = next
	st.hasTranslator = true
	st.translatorChanged = true

	return &Change{Field: "translator", Old: old, New: strconv.FormatInt(next.ID, 10)}, nil
}

func (st *adminState) changeNotifications(dateChanged, languageChanged bool, oldDue time.Time) {
	job, customer := st.job, st.customer
	var msgs []notify.EmailMessage

	if dateChanged {
		old := st.m.localTime(oldDue)
		msgs = append(msgs, st.m.customerEmail(job, customer, subject("Booking #%d has been rescheduled", job), TemplateDateChanged, "old_time", old))
		if st.hasTranslator {
			msgs = append(msgs, st.m.translatorEmail(job, st.translator, subject("Booking #%d has been rescheduled", job), TemplateDateChanged, "old_time", old))
		}
	}

	if st.translatorChanged {
		subj := subject("New interpreter for booking #%d", job)
		msgs = append(msgs, st.m.customerEmail(job, customer, subj, TemplateTranslatorChanged, "translator", st.translator.Name))
		if st.hadPrevious {
			msgs = append(msgs, st.m.translatorEmail(job, st.previous, subj, TemplateTranslatorRemoved))
		}
		msgs = append(msgs, st.m.translatorEmail(job, st.translator, subj, TemplateTranslatorAssigned))
	}

	if languageChanged {
		subj := subject("Language changed for booking #%d", job)
		msgs = append(msgs, st.m.customerEmail(job, customer, subj, TemplateLanguageChanged, "language", st.language))
		if st.hasTranslator {
			msgs = append(msgs, st.m.translatorEmail(job, st.translator, subj, TemplateLanguageChanged, "language", st.language))
		}
	}

	if len(msgs) == 0 {
		return
	}
	st.effects.add("email:job_changed", func(ctx context.Context, n Notifier) notify.Report {
		return n.Email(ctx, msgs...)
	})
}
