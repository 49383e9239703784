package domain

import "time"

// DefaultPageSize is the listing page size.
const DefaultPageSize = 15

// Time ranges in a JobFilter apply to one of these columns.
const (
	TimeTypeCreated = "created"
	TimeTypeDue     = "due"
)

// JobFilter selects jobs for listing. Zero values mean "no constraint".
type JobFilter struct {
	IDs              []int64
	LanguageIDs      []int64
	Statuses         []JobStatus
	JobTypes         []JobType
	ExpiredAt        *time.Time
	WillExpireAt     *time.Time
	CustomerEmails   []string
	TranslatorEmails []string
	TimeType         string
	From             *time.Time
	To               *time.Time

	Physical            *bool
	Phone               *bool
	Flagged             *bool
	IgnorePhysical      bool
	IgnorePhysicalPhone bool
	IgnoreFlagged       bool

	// LowFeedback keeps jobs rated 3 or below whose feedback is not ignored.
	LowFeedback  bool
	ConsumerType string
	// BookingType is "physical" or "phone".
	BookingType string

	CountOnly bool
	Page      int
	PageSize  int
	// All disables pagination.
	All bool
}

// Offset returns the row offset of the requested page.
func (f JobFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the effective page size.
func (f JobFilter) Limit() int {
	if f.PageSize <= 0 {
		return DefaultPageSize
	}
	return f.PageSize
}

// EndOfDay extends a date to 23:59:00 of the same day, matching the inclusive
// "to" bound of listing filters.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 0, 0, t.Location())
}

// JobPage is one page of listed jobs.
type JobPage struct {
	Jobs     []Job `json:"jobs"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}
