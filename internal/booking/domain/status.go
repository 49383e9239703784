package domain

import "fmt"

// JobStatus is the lifecycle state of a booking.
type JobStatus string

const (
	StatusPending               JobStatus = "pending"
	StatusAssigned              JobStatus = "assigned"
	StatusStarted               JobStatus = "started"
	StatusCompleted             JobStatus = "completed"
	StatusWithdrawBefore24      JobStatus = "withdrawbefore24"
	StatusWithdrawAfter24       JobStatus = "withdrawafter24"
	StatusTimedOut              JobStatus = "timedout"
	StatusNotCarriedOutCustomer JobStatus = "not_carried_out_customer"
)

var allStatuses = []JobStatus{
	StatusPending,
	StatusAssigned,
	StatusStarted,
	StatusCompleted,
	StatusWithdrawBefore24,
	StatusWithdrawAfter24,
	StatusTimedOut,
	StatusNotCarriedOutCustomer,
}

// ParseJobStatus converts a raw status string into a JobStatus.
func ParseJobStatus(s string) (JobStatus, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsTerminal reports whether no further transition may leave this state.
// timedout is not terminal because an admin may reopen it.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusWithdrawBefore24, StatusWithdrawAfter24, StatusNotCarriedOutCustomer:
		return true
	}
	return false
}

func (s JobStatus) String() string { return string(s) }

// JobType is the commercial category of a booking.
type JobType string

const (
	JobTypePaid   JobType = "paid"
	JobTypeRWS    JobType = "rws"
	JobTypeUnpaid JobType = "unpaid"
)

// TranslatorCategory returns the translator_type that may serve this job type.
func (t JobType) TranslatorCategory() string {
	switch t {
	case JobTypePaid:
		return TranslatorProfessional
	case JobTypeRWS:
		return TranslatorRWS
	case JobTypeUnpaid:
		return TranslatorVolunteer
	}
	return ""
}

// JobTypeForTranslator is the inverse of TranslatorCategory. Unknown
// translator types fall back to unpaid jobs.
func JobTypeForTranslator(translatorType string) JobType {
	switch translatorType {
	case TranslatorProfessional:
		return JobTypePaid
	case TranslatorRWS:
		return JobTypeRWS
	}
	return JobTypeUnpaid
}

// JobTypeForConsumer maps a customer's consumer_type to the job type of the
// bookings they create.
func JobTypeForConsumer(consumerType string) JobType {
	switch consumerType {
	case "rwsconsumer":
		return JobTypeRWS
	case "ngo":
		return JobTypeUnpaid
	case "paid":
		return JobTypePaid
	}
	return ""
}

// UserType is the role of an account.
type UserType string

const (
	UserCustomer   UserType = "customer"
	UserTranslator UserType = "translator"
	UserAdmin      UserType = "admin"
	UserSuperAdmin UserType = "superadmin"
)

const (
	TranslatorProfessional = "professional"
	TranslatorRWS          = "rwstranslator"
	TranslatorVolunteer    = "volunteer"
)

// Translator levels as stored on the translator profile.
const (
	LevelCertified       = "Certified"
	LevelCertifiedLaw    = "Certified with specialisation in law"
	LevelCertifiedHealth = "Certified with specialisation in health care"
	LevelLayman          = "Layman"
	LevelReadCourses     = "Read Translation courses"
)

// Values of Job.Certified.
const (
	CertifiedNormal  = "normal"
	CertifiedYes     = "yes"
	CertifiedBoth    = "both"
	CertifiedLaw     = "law"
	CertifiedNLaw    = "n_law"
	CertifiedHealth  = "health"
	CertifiedNHealth = "n_health"
)
