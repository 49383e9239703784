package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// YesNo accepts the "yes"/"no" strings mobile clients send as well as JSON
// booleans.
type YesNo bool

func (y *YesNo) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*y = YesNo(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected yes/no: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		*y = true
	case "no", "false", "0", "":
		*y = false
	default:
		return fmt.Errorf("expected yes/no, got %q", s)
	}
	return nil
}

type CreateJobRequest struct {
	FromLanguageID       int64    `json:"from_language_id"`
	Immediate            YesNo    `json:"immediate"`
	DueDate              string   `json:"due_date"`
	DueTime              string   `json:"due_time"`
	CustomerPhoneType    YesNo    `json:"customer_phone_type"`
	CustomerPhysicalType YesNo    `json:"customer_physical_type"`
	Duration             int      `json:"duration" validate:"gte=0"`
	JobFor               []string `json:"job_for" validate:"dive,oneof=male female normal certified certified_in_law certified_in_helth"`
	Town                 string   `json:"town" validate:"max=255"`
	Address              string   `json:"address" validate:"max=255"`
	Instructions         string   `json:"instructions"`
	Reference            string   `json:"reference" validate:"max=255"`
	UserEmail            string   `json:"user_email" validate:"omitempty,email"`
	SpecificTranslatorID *int64   `json:"specific_translator_id" validate:"omitempty,gt=0"`
}

type AcceptJobRequest struct {
	JobID int64 `json:"job_id" validate:"required,gt=0"`
}

type AdminUpdateRequest struct {
	Due             *time.Time `json:"due"`
	TranslatorID    *int64     `json:"translator_id" validate:"omitempty,gte=0"`
	TranslatorEmail string     `json:"translator_email" validate:"omitempty,email"`
	FromLanguageID  *int64     `json:"from_language_id" validate:"omitempty,gt=0"`
	Status          *string    `json:"status" validate:"omitempty,oneof=pending assigned started completed withdrawbefore24 withdrawafter24 timedout not_carried_out_customer"`
	AdminComments   *string    `json:"admin_comments"`
	SessionTime     *string    `json:"session_time"`
	Reference       *string    `json:"reference"`
}

type JobEmailRequest struct {
	UserEmail    string `json:"user_email" validate:"omitempty,email"`
	Reference    string `json:"reference" validate:"max=255"`
	Address      string `json:"address" validate:"max=255"`
	Instructions string `json:"instructions"`
	Town         string `json:"town" validate:"max=255"`
}

// ListJobsRequest is the query string of GET /jobs. Repeated keys select
// several values, e.g. ?status=pending&status=assigned.
type ListJobsRequest struct {
	IDs              []int64  `form:"id"`
	LanguageIDs      []int64  `form:"lang"`
	Statuses         []string `form:"status"`
	JobTypes         []string `form:"job_type"`
	CustomerEmails   []string `form:"customer_email"`
	TranslatorEmails []string `form:"translator_email"`
	ExpiredAt        string   `form:"expired_at"`
	WillExpireAt     string   `form:"will_expire_at"`
	TimeType         string   `form:"filter_timetype"`
	From             string   `form:"from"`
	To               string   `form:"to"`

	Physical            string `form:"physical"`
	Phone               string `form:"phone"`
	Flagged             string `form:"flagged"`
	IgnorePhysical      bool   `form:"ignore_physical"`
	IgnorePhysicalPhone bool   `form:"ignore_physical_phone"`
	IgnoreFlagged       bool   `form:"ignore_flagged"`

	LowFeedback  bool   `form:"feedback"`
	ConsumerType string `form:"consumer_type"`
	BookingType  string `form:"booking_type"`
	CountOnly    bool   `form:"count"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
}

type HistoryRequest struct {
	Page int `form:"page"`
}
