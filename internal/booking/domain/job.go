package domain

import (
	"strings"
	"time"
)

// Job is a single interpreter booking.
type Job struct {
	ID                   int64      `json:"id" db:"id"`
	CustomerID           int64      `json:"user_id" db:"user_id"`
	FromLanguageID       int64      `json:"from_language_id" db:"from_language_id"`
	Status               JobStatus  `json:"status" db:"status"`
	Immediate            bool       `json:"immediate" db:"immediate"`
	Due                  time.Time  `json:"due" db:"due"`
	Duration             int        `json:"duration" db:"duration"`
	Gender               string     `json:"gender,omitempty" db:"gender"`
	Certified            string     `json:"certified,omitempty" db:"certified"`
	CustomerPhoneType    bool       `json:"customer_phone_type" db:"customer_phone_type"`
	CustomerPhysicalType bool       `json:"customer_physical_type" db:"customer_physical_type"`
	JobType              JobType    `json:"job_type" db:"job_type"`
	Town                 string     `json:"town,omitempty" db:"town"`
	Address              string     `json:"address,omitempty" db:"address"`
	Instructions         string     `json:"instructions,omitempty" db:"instructions"`
	UserEmail            string     `json:"user_email,omitempty" db:"user_email"`
	Reference            string     `json:"reference,omitempty" db:"reference"`
	AdminComments        string     `json:"admin_comments,omitempty" db:"admin_comments"`
	SessionTime          string     `json:"session_time,omitempty" db:"session_time"`
	ByAdmin              bool       `json:"by_admin" db:"by_admin"`
	Flagged              bool       `json:"flagged" db:"flagged"`
	SpecificTranslatorID *int64     `json:"specific_translator_id,omitempty" db:"specific_translator_id"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
	WillExpireAt         time.Time  `json:"will_expire_at" db:"will_expire_at"`
	EndAt                *time.Time `json:"end_at,omitempty" db:"end_at"`
	WithdrawAt           *time.Time `json:"withdraw_at,omitempty" db:"withdraw_at"`
	ExpiredAt            *time.Time `json:"expired_at,omitempty" db:"expired_at"`
}

// IsPhysicalOnly reports whether the booking must be carried out on site.
func (j Job) IsPhysicalOnly() bool {
	return j.CustomerPhysicalType && !j.CustomerPhoneType
}

// Window returns the half-open interval the session occupies.
func (j Job) Window() (time.Time, time.Time) {
	return j.Due, j.Due.Add(time.Duration(j.Duration) * time.Minute)
}

// Overlaps reports whether two jobs occupy intersecting time windows.
func (j Job) Overlaps(other Job) bool {
	s1, e1 := j.Window()
	s2, e2 := other.Window()
	if e1.Equal(s1) {
		e1 = s1.Add(time.Minute)
	}
	if e2.Equal(s2) {
		e2 = s2.Add(time.Minute)
	}
	return s1.Before(e2) && s2.Before(e1)
}

// ContactEmail is the address booking emails go to. A per-booking address
// overrides the customer's account email.
func (j Job) ContactEmail(customer User) string {
	if j.UserEmail != "" {
		return j.UserEmail
	}
	return customer.Email
}

// JobFor renders the requirement labels shown to translators.
func (j Job) JobFor() []string {
	var out []string
	switch j.Gender {
	case "male":
		out = append(out, "Man")
	case "female":
		out = append(out, "Kvinna")
	}
	switch j.Certified {
	case "":
	case CertifiedBoth:
		out = append(out, "Godkänd tolk", "Auktoriserad")
	case CertifiedYes:
		out = append(out, "Auktoriserad")
	case CertifiedHealth, CertifiedNHealth:
		out = append(out, "Sjukvårdstolk")
	case CertifiedLaw, CertifiedNLaw:
		out = append(out, "Rättstolk")
	default:
		out = append(out, j.Certified)
	}
	return out
}

// Assignment binds one translator to one job.
type Assignment struct {
	ID           int64      `json:"id" db:"id"`
	JobID        int64      `json:"job_id" db:"job_id"`
	TranslatorID int64      `json:"translator_id" db:"translator_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CancelAt     *time.Time `json:"cancel_at,omitempty" db:"cancel_at"`
	CompletedBy  *int64     `json:"completed_by,omitempty" db:"completed_by"`
}

// IsActive reports whether the assignment still binds its translator.
func (a Assignment) IsActive() bool {
	return a.CompletedAt == nil && a.CancelAt == nil
}

// User is a customer, translator or admin account with its profile.
type User struct {
	ID                 int64    `json:"id" db:"id"`
	Name               string   `json:"name" db:"name"`
	Email              string   `json:"email" db:"email"`
	Mobile             string   `json:"mobile,omitempty" db:"mobile"`
	UserType           UserType `json:"user_type" db:"user_type"`
	Disabled           bool     `json:"disabled" db:"disabled"`
	TranslatorType     string   `json:"translator_type,omitempty" db:"translator_type"`
	TranslatorLevel    string   `json:"translator_level,omitempty" db:"translator_level"`
	Gender             string   `json:"gender,omitempty" db:"gender"`
	City               string   `json:"city,omitempty" db:"city"`
	Address            string   `json:"address,omitempty" db:"address"`
	Instructions       string   `json:"instructions,omitempty" db:"instructions"`
	ConsumerType       string   `json:"consumer_type,omitempty" db:"consumer_type"`
	CustomerType       string   `json:"customer_type,omitempty" db:"customer_type"`
	NotGetNotification bool     `json:"not_get_notification" db:"not_get_notification"`
	NotGetNighttime    bool     `json:"not_get_nighttime" db:"not_get_nighttime"`
	NotGetEmergency    bool     `json:"not_get_emergency" db:"not_get_emergency"`
	LanguageIDs        []int64  `json:"language_ids,omitempty" db:"-"`
	Blacklist          []int64  `json:"blacklist,omitempty" db:"-"`
}

func (u User) IsCustomer() bool   { return u.UserType == UserCustomer }
func (u User) IsTranslator() bool { return u.UserType == UserTranslator }
func (u User) IsAdmin() bool      { return u.UserType == UserAdmin || u.UserType == UserSuperAdmin }

// SpeaksLanguage reports whether the user lists the language among their proficiencies.
func (u User) SpeaksLanguage(id int64) bool {
	for _, l := range u.LanguageIDs {
		if l == id {
			return true
		}
	}
	return false
}

// HasBlacklisted reports whether a customer excluded the translator.
func (u User) HasBlacklisted(translatorID int64) bool {
	for _, id := range u.Blacklist {
		if id == translatorID {
			return true
		}
	}
	return false
}

// SameTown compares two town names ignoring case and surrounding space.
func SameTown(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
