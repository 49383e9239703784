package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/eligibility"
)

var (
	activeStatuses = []domain.JobStatus{domain.StatusPending, domain.StatusAssigned, domain.StatusStarted}

	customerHistoryStatuses = []domain.JobStatus{
		domain.StatusCompleted,
		domain.StatusWithdrawBefore24,
		domain.StatusWithdrawAfter24,
		domain.StatusTimedOut,
		domain.StatusNotCarriedOutCustomer,
	}

	translatorHistoryStatuses = []domain.JobStatus{
		domain.StatusCompleted,
		domain.StatusNotCarriedOutCustomer,
	}
)

// ListJobs searches jobs. Admins may use every filter; other users only see
// the job type that matches their consumer type.
func (s *BookingService) ListJobs(ctx context.Context, actorID int64, filter domain.JobFilter) (domain.Result, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}

	if filter.PageSize <= 0 {
		filter.PageSize = s.cfg.PageSize
	}
	if !actor.IsAdmin() {
		filter = restrictFilter(filter, actor)
	}

	page, err := s.store.QueryJobs(ctx, filter)
	if err != nil {
		return domain.Result{}, fmt.Errorf("failed to query jobs: %w", err)
	}

	res := domain.Success("")
	res.Data = page
	return res, nil
}

// restrictFilter limits a non-admin search to the job type of the user's
// consumer type and drops the admin-only criteria.
func restrictFilter(f domain.JobFilter, actor domain.User) domain.JobFilter {
	jobType := domain.JobTypeUnpaid
	if strings.EqualFold(actor.ConsumerType, "rws") || actor.ConsumerType == "rwsconsumer" {
		jobType = domain.JobTypeRWS
	}
	f.JobTypes = []domain.JobType{jobType}
	f.LowFeedback = false
	f.Flagged, f.IgnoreFlagged = nil, false
	f.ConsumerType = ""
	f.All = false
	return f
}

// GetPotentialJobs lists the pending jobs the acting translator may accept.
func (s *BookingService) GetPotentialJobs(ctx context.Context, actorID int64) (domain.Result, error) {
	translator, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}
	if !translator.IsTranslator() {
		return domain.Fail("Only translators have potential jobs"), nil
	}

	pending, err := s.store.PendingJobs(ctx, translator.LanguageIDs)
	if err != nil {
		return domain.Result{}, fmt.Errorf("failed to load pending jobs: %w", err)
	}

	ids := make([]int64, 0, len(pending))
	for _, job := range pending {
		ids = append(ids, job.CustomerID)
	}
	customers, err := s.store.UsersByID(ctx, ids)
	if err != nil {
		return domain.Result{}, fmt.Errorf("failed to load customers: %w", err)
	}

	res := domain.Success("")
	res.Data = eligibility.PotentialJobs(translator, pending, customers)
	return res, nil
}

// JobView is a job with its current translator.
type JobView struct {
	domain.Job
	TranslatorID *int64 `json:"translator_id,omitempty"`
}

// GetJob returns a single job. Customers only see their own bookings.
func (s *BookingService) GetJob(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}
	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return domain.Result{}, err
	}
	if actor.IsCustomer() && job.CustomerID != actor.ID {
		return domain.Result{}, domain.JobNotFound(jobID)
	}

	view := JobView{Job: job}
	a, err := s.store.FindActiveAssignment(ctx, jobID)
	switch {
	case err == nil:
		view.TranslatorID = &a.TranslatorID
	case !errors.Is(err, domain.ErrAssignmentNotFound):
		return domain.Result{}, fmt.Errorf("failed to load assignment: %w", err)
	}

	res := domain.Success("")
	res.ID = job.ID
	res.Data = view
	return res, nil
}

// UserJobs lists the acting user's current jobs split into emergency and
// normal bookings.
func (s *BookingService) UserJobs(ctx context.Context, actorID int64) (domain.Result, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}

	var page domain.JobPage
	switch {
	case actor.IsCustomer():
		page, err = s.store.CustomerJobs(ctx, actor.ID, activeStatuses, 0, 0)
	case actor.IsTranslator():
		page, err = s.store.TranslatorJobs(ctx, actor.ID, activeStatuses, 0, 0)
	default:
		return domain.Fail("Only customers and translators have bookings"), nil
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("failed to load user jobs: %w", err)
	}

	emergency, normal := make([]domain.Job, 0), make([]domain.Job, 0)
	for _, job := range page.Jobs {
		if job.Immediate {
			emergency = append(emergency, job)
		} else {
			normal = append(normal, job)
		}
	}

	res := domain.Success("")
	res.Data = map[string]any{
		"emergency_jobs": emergency,
		"normal_jobs":    normal,
		"user_type":      actor.UserType,
	}
	return res, nil
}

// UserJobsHistory pages through the acting user's finished jobs.
func (s *BookingService) UserJobsHistory(ctx context.Context, actorID int64, page int) (domain.Result, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}
	if page < 1 {
		page = 1
	}

	var result domain.JobPage
	switch {
	case actor.IsCustomer():
		result, err = s.store.CustomerJobs(ctx, actor.ID, customerHistoryStatuses, page, s.cfg.PageSize)
	case actor.IsTranslator():
		result, err = s.store.TranslatorJobs(ctx, actor.ID, translatorHistoryStatuses, page, s.cfg.PageSize)
	default:
		return domain.Fail("Only customers and translators have bookings"), nil
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("failed to load job history: %w", err)
	}

	res := domain.Success("")
	res.Data = result
	return res, nil
}
