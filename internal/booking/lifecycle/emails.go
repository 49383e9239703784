package lifecycle

import (
	"fmt"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
)

// Email template keys.
const (
	TemplateJobCreated            = "emails.job-created"
	TemplateJobAccepted           = "emails.job-accepted"
	TemplateJobAcceptedTranslator = "emails.job-accepted-translator"
	TemplateSessionEnded          = "emails.session-ended"
	TemplateReopened              = "emails.job-change-status-to-customer"
	TemplateTranslatorChanged     = "emails.job-changed-translator-customer"
	TemplateTranslatorRemoved     = "emails.job-changed-translator-old-translator"
	TemplateTranslatorAssigned    = "emails.job-changed-translator-new-translator"
	TemplateDateChanged           = "emails.job-changed-date"
	TemplateLanguageChanged       = "emails.job-changed-lang"
	TemplateCancelledCustomer     = "emails.status-changed-from-pending-or-assigned-customer"
	TemplateCancelledTranslator   = "emails.job-cancel-translator"
)

// Session-ended emails are framed as an invoice for the customer and as a
// payout for the translator.
const (
	forInvoice = "faktura"
	forPayout  = "lön"
)

func (m *Machine) jobVars(job domain.Job, extra ...string) map[string]string {
	vars := map[string]string{
		"job_id":   fmt.Sprint(job.ID),
		"due":      m.localTime(job.Due),
		"duration": fmt.Sprint(job.Duration),
	}
	for i := 0; i+1 < len(extra); i += 2 {
		vars[extra[i]] = extra[i+1]
	}
	return vars
}

func (m *Machine) customerEmail(job domain.Job, customer domain.User, subject, template string, extra ...string) notify.EmailMessage {
	return notify.EmailMessage{
		To:       job.ContactEmail(customer),
		Name:     customer.Name,
		Subject:  subject,
		Template: template,
		Vars:     m.jobVars(job, extra...),
	}
}

func (m *Machine) translatorEmail(job domain.Job, translator domain.User, subject, template string, extra ...string) notify.EmailMessage {
	return notify.EmailMessage{
		To:       translator.Email,
		Name:     translator.Name,
		Subject:  subject,
		Template: template,
		Vars:     m.jobVars(job, extra...),
	}
}

func subject(format string, job domain.Job) string {
	return fmt.Sprintf(format, job.ID)
}

func (m *Machine) acceptedEmails(job domain.Job, customer, translator domain.User) []notify.EmailMessage {
	return []notify.EmailMessage{
		m.customerEmail(job, customer, subject("Confirmation - an interpreter has accepted your booking (booking #%d)", job), TemplateJobAccepted,
			"translator", translator.Name),
		m.translatorEmail(job, translator, subject("Confirmation - you have accepted booking #%d", job), TemplateJobAcceptedTranslator),
	}
}

func (m *Machine) sessionEndedEmails(job domain.Job, customer, translator domain.User) []notify.EmailMessage {
	label := domain.SessionTimeLabel(job.SessionTime)
	subj := subject("Information about finished interpretation for booking #%d", job)
	return []notify.EmailMessage{
		m.customerEmail(job, customer, subj, TemplateSessionEnded,
			"session_time", label, "for_text", forInvoice),
		m.translatorEmail(job, translator, subj, TemplateSessionEnded,
			"session_time", label, "for_text", forPayout),
	}
}
