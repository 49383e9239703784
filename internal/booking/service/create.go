package service

import (
	"context"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/lifecycle"
)

// Values of CreateInput.JobFor.
const (
	JobForMale            = "male"
	JobForFemale          = "female"
	JobForNormal          = "normal"
	JobForCertified       = "certified"
	JobForCertifiedLaw    = "certified_in_law"
	JobForCertifiedHealth = "certified_in_helth"
)

const (
	dueDateLayout = "01/02/2006"
	dueTimeLayout = "15:04"

	msgMissingField       = "You must fill in all fields"
	msgTranslatorNoCreate = "Translator can not create booking"
	msgBookingInPast      = "Can't create booking in past"
)

// CreateInput is a customer's booking request.
type CreateInput struct {
	FromLanguageID       int64
	Immediate            bool
	DueDate              string
	DueTime              string
	CustomerPhoneType    bool
	CustomerPhysicalType bool
	Duration             int
	JobFor               []string
	Town                 string
	Address              string
	Instructions         string
	Reference            string
	UserEmail            string
	ByAdmin              bool
	SpecificTranslatorID *int64
}

// Create validates and stores a new booking.
func (s *BookingService) Create(ctx context.Context, actorID int64, in CreateInput) (domain.Result, error) {
	customer, err := s.actor(ctx, actorID)
	if err != nil {
		return domain.Result{}, err
	}
	if !customer.IsCustomer() {
		return domain.Fail(msgTranslatorNoCreate), nil
	}

	job, err := s.buildJob(customer, in, s.now())
	if err != nil {
		return domain.ResultFromError(err)
	}

	out, res, err := s.transition(ctx, "create", func(ctx context.Context, repo lifecycle.Repository, now time.Time) (lifecycle.Outcome, error) {
		return s.machine.Create(ctx, repo, job, customer, now)
	})
	if res.OK() {
		res.Message = "Booking created"
		res.Data = map[string]any{"id": out.Job.ID, "immediate": out.Job.Immediate, "due": out.Job.Due, "job_for": in.JobFor}
	}
	return res, err
}

func (s *BookingService) buildJob(customer domain.User, in CreateInput, now time.Time) (domain.Job, error) {
	if in.FromLanguageID == 0 {
		return domain.Job{}, domain.NewValidationError("from_language_id", msgMissingField)
	}

	job := domain.Job{
		FromLanguageID:       in.FromLanguageID,
		Immediate:            in.Immediate,
		Duration:             in.Duration,
		CustomerPhoneType:    in.CustomerPhoneType,
		CustomerPhysicalType: in.CustomerPhysicalType,
		Town:                 in.Town,
		Address:              in.Address,
		Instructions:         in.Instructions,
		Reference:            in.Reference,
		UserEmail:            in.UserEmail,
		ByAdmin:              in.ByAdmin,
		SpecificTranslatorID: in.SpecificTranslatorID,
		JobType:              domain.JobTypeForConsumer(customer.ConsumerType),
	}

	if in.Immediate {
		if in.Duration <= 0 {
			return domain.Job{}, domain.NewValidationError("duration", msgMissingField)
		}
		job.Due = now.Add(s.cfg.ImmediateLead)
		job.CustomerPhoneType = true
	} else {
		switch {
		case in.DueDate == "":
			return domain.Job{}, domain.NewValidationError("due_date", msgMissingField)
		case in.DueTime == "":
			return domain.Job{}, domain.NewValidationError("due_time", msgMissingField)
		case !in.CustomerPhoneType && !in.CustomerPhysicalType:
			return domain.Job{}, domain.NewValidationError("customer_phone_type", msgMissingField)
		case in.Duration <= 0:
			return domain.Job{}, domain.NewValidationError("duration", msgMissingField)
		}

		due, err := time.ParseInLocation(dueDateLayout+" "+dueTimeLayout, in.DueDate+" "+in.DueTime, s.cfg.Location)
		if err != nil {
			return domain.Job{}, domain.NewValidationError("due_date", "Invalid due date or time")
		}
		if due.Before(now) {
			return domain.Job{}, domain.NewValidationError("due_date", msgBookingInPast)
		}
		job.Due = due
	}

	job.Gender, job.Certified = mapJobFor(in.JobFor)
	return job, nil
}

// mapJobFor derives gender and certification from the job_for options. A
// normal option combined with a certified one widens the requirement.
func mapJobFor(jobFor []string) (gender, certified string) {
	has := func(v string) bool {
		for _, s := range jobFor {
			if s == v {
				return true
			}
		}
		return false
	}

	switch {
	case has(JobForMale):
		gender = JobForMale
	case has(JobForFemale):
		gender = JobForFemale
	}

	switch {
	case has(JobForNormal):
		certified = domain.CertifiedNormal
	case has(JobForCertified):
		certified = domain.CertifiedYes
	case has(JobForCertifiedLaw):
		certified = domain.CertifiedLaw
	case has(JobForCertifiedHealth):
		certified = domain.CertifiedHealth
	}

	if has(JobForNormal) {
		switch {
		case has(JobForCertified):
			certified = domain.CertifiedBoth
		case has(JobForCertifiedLaw):
			certified = domain.CertifiedNLaw
		case has(JobForCertifiedHealth):
			certified = domain.CertifiedNHealth
		}
	}

	return gender, certified
}
