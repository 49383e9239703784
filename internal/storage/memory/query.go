package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

func (r *repo) QueryJobs(_ context.Context, f domain.JobFilter) (domain.JobPage, error) {
	var jobs []domain.Job
	for _, job := range r.st.jobs {
		if r.matches(job, f) {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	page := domain.JobPage{Total: int64(len(jobs)), Page: f.Page, PageSize: f.Limit()}
	switch {
	case f.CountOnly:
	case f.All:
		page.Jobs = jobs
	default:
		page.Jobs = window(jobs, f.Offset(), f.Limit())
	}
	return page, nil
}

func (r *repo) matches(job domain.Job, f domain.JobFilter) bool {
	if len(f.IDs) > 0 && !containsID(f.IDs, job.ID) {
		return false
	}
	if len(f.LanguageIDs) > 0 && !containsID(f.LanguageIDs, job.FromLanguageID) {
		return false
	}
	if !hasStatus(f.Statuses, job.Status) {
		return false
	}
	if len(f.JobTypes) > 0 && !containsJobType(f.JobTypes, job.JobType) {
		return false
	}
	if f.ExpiredAt != nil && (job.ExpiredAt == nil || job.ExpiredAt.Before(*f.ExpiredAt)) {
		return false
	}
	if f.WillExpireAt != nil && job.WillExpireAt.Before(*f.WillExpireAt) {
		return false
	}

	customer := r.st.users[job.CustomerID]
	if len(f.CustomerEmails) > 0 && !containsFold(f.CustomerEmails, customer.Email) {
		return false
	}
	if len(f.TranslatorEmails) > 0 && !r.assignedToAny(job.ID, f.TranslatorEmails) {
		return false
	}
	if f.ConsumerType != "" && customer.ConsumerType != f.ConsumerType {
		return false
	}

	column := job.CreatedAt
	if f.TimeType == domain.TimeTypeDue {
		column = job.Due
	}
	if f.TimeType != "" {
		if f.From != nil && column.Before(*f.From) {
			return false
		}
		if f.To != nil && column.After(domain.EndOfDay(*f.To)) {
			return false
		}
	}

	if f.Physical != nil && !f.IgnorePhysical && job.CustomerPhysicalType != *f.Physical {
		return false
	}
	if f.Phone != nil && !f.IgnorePhysicalPhone && job.CustomerPhoneType != *f.Phone {
		return false
	}
	if f.Flagged != nil && !f.IgnoreFlagged && job.Flagged != *f.Flagged {
		return false
	}
	switch f.BookingType {
	case "physical":
		if !job.CustomerPhysicalType {
			return false
		}
	case "phone":
		if !job.CustomerPhoneType {
			return false
		}
	}
	if f.LowFeedback {
		rating, ok := r.st.feedback[job.ID]
		if !ok || rating > 3 {
			return false
		}
	}
	return true
}

func (r *repo) assignedToAny(jobID int64, emails []string) bool {
	for _, a := range r.st.assignments {
		if a.JobID != jobID || !a.IsActive() {
			continue
		}
		if containsFold(emails, r.st.users[a.TranslatorID].Email) {
			return true
		}
	}
	return false
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsJobType(types []domain.JobType, t domain.JobType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}
