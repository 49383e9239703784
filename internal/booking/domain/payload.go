package domain

import "time"

// NotificationType keys the message template of a push notification.
type NotificationType string

const (
	NotificationSuitableJob        NotificationType = "suitable_job"
	NotificationJobAccepted        NotificationType = "job_accepted"
	NotificationJobCancelled       NotificationType = "job_cancelled"
	NotificationJobExpired         NotificationType = "job_expired"
	NotificationSessionStartRemind NotificationType = "session_start_remind"
)

// NotificationPayload is the job snapshot delivered with a push. It is built
// once and passed by value.
type NotificationPayload struct {
	NotificationType     NotificationType  `json:"notification_type"`
	JobID                int64             `json:"job_id"`
	FromLanguageID       int64             `json:"from_language_id"`
	Language             string            `json:"language,omitempty"`
	Immediate            bool              `json:"immediate"`
	Duration             int               `json:"duration"`
	Status               JobStatus         `json:"status"`
	Gender               string            `json:"gender,omitempty"`
	Certified            string            `json:"certified,omitempty"`
	Due                  time.Time         `json:"due"`
	DueDate              string            `json:"due_date"`
	DueTime              string            `json:"due_time"`
	JobType              JobType           `json:"job_type"`
	CustomerPhoneType    bool              `json:"customer_phone_type"`
	CustomerPhysicalType bool              `json:"customer_physical_type"`
	CustomerTown         string            `json:"customer_town,omitempty"`
	CustomerType         string            `json:"customer_type,omitempty"`
	JobFor               []string          `json:"job_for,omitempty"`
	Message              map[string]string `json:"message"`
}

// NewPayload snapshots the job for a notification of the given type.
func NewPayload(t NotificationType, job Job, customer User, language string, message map[string]string) NotificationPayload {
	msg := make(map[string]string, len(message))
	for k, v := range message {
		msg[k] = v
	}
	town := job.Town
	if town == "" {
		town = customer.City
	}
	return NotificationPayload{
		NotificationType:     t,
		JobID:                job.ID,
		FromLanguageID:       job.FromLanguageID,
		Language:             language,
		Immediate:            job.Immediate,
		Duration:             job.Duration,
		Status:               job.Status,
		Gender:               job.Gender,
		Certified:            job.Certified,
		Due:                  job.Due,
		DueDate:              job.Due.Format(time.DateOnly),
		DueTime:              job.Due.Format(time.TimeOnly),
		JobType:              job.JobType,
		CustomerPhoneType:    job.CustomerPhoneType,
		CustomerPhysicalType: job.CustomerPhysicalType,
		CustomerTown:         town,
		CustomerType:         customer.CustomerType,
		JobFor:               job.JobFor(),
		Message:              msg,
	}
}
