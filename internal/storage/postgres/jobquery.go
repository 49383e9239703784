package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// JobQuery builds the filtered admin and customer job listing.
type JobQuery struct {
	db *gorm.DB
}

// NewJobQuery wraps an open gorm handle.
func NewJobQuery(db *gorm.DB) *JobQuery {
	return &JobQuery{db: db}
}

// OpenJobQuery shares an existing connection pool with gorm.
func OpenJobQuery(conn *sql.DB) (*JobQuery, error) {
	db, err := gorm.Open(gormpg.New(gormpg.Config{Conn: conn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return NewJobQuery(db), nil
}

// Query counts the matching jobs and loads the requested page, newest first.
func (q *JobQuery) Query(ctx context.Context, f domain.JobFilter) (domain.JobPage, error) {
	page := domain.JobPage{Page: f.Page, PageSize: f.Limit()}

	base := q.db.WithContext(ctx).Model(&jobModel{}).Scopes(filterScope(f))
	if err := base.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return domain.JobPage{}, fmt.Errorf("failed to count jobs: %w", err)
	}
	if f.CountOnly {
		return page, nil
	}

	list := base.Session(&gorm.Session{}).Order("jobs.created_at DESC").Order("jobs.id DESC")
	if !f.All {
		list = list.Offset(f.Offset()).Limit(f.Limit())
	}

	var rows []jobModel
	if err := list.Find(&rows).Error; err != nil {
		return domain.JobPage{}, fmt.Errorf("failed to list jobs: %w", err)
	}
	page.Jobs = make([]domain.Job, 0, len(rows))
	for _, row := range rows {
		page.Jobs = append(page.Jobs, row.toDomain())
	}
	return page, nil
}

func filterScope(f domain.JobFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(f.IDs) > 0 {
			db = db.Where("jobs.id IN ?", f.IDs)
		}
		if len(f.LanguageIDs) > 0 {
			db = db.Where("jobs.from_language_id IN ?", f.LanguageIDs)
		}
		if len(f.Statuses) > 0 {
			db = db.Where("jobs.status IN ?", statusStrings(f.Statuses))
		}
		if len(f.JobTypes) > 0 {
			types := make([]string, 0, len(f.JobTypes))
			for _, t := range f.JobTypes {
				types = append(types, string(t))
			}
			db = db.Where("jobs.job_type IN ?", types)
		}
		if f.ExpiredAt != nil {
			db = db.Where("jobs.expired_at >= ?", *f.ExpiredAt)
		}
		if f.WillExpireAt != nil {
			db = db.Where("jobs.will_expire_at >= ?", *f.WillExpireAt)
		}
		if len(f.CustomerEmails) > 0 {
			db = db.Where("jobs.user_id IN (SELECT id FROM users WHERE lower(email) IN ?)", lowered(f.CustomerEmails))
		}
		if len(f.TranslatorEmails) > 0 {
			db = db.Where(`EXISTS (
				SELECT 1 FROM assignments a JOIN users u ON u.id = a.translator_id
				WHERE a.job_id = jobs.id AND a.completed_at IS NULL AND a.cancel_at IS NULL
				AND lower(u.email) IN ?)`, lowered(f.TranslatorEmails))
		}
		if f.ConsumerType != "" {
			db = db.Where("jobs.user_id IN (SELECT id FROM users WHERE consumer_type = ?)", f.ConsumerType)
		}

		if f.TimeType != "" {
			column := "jobs.created_at"
			if f.TimeType == domain.TimeTypeDue {
				column = "jobs.due"
			}
			if f.From != nil {
				db = db.Where(column+" >= ?", *f.From)
			}
			if f.To != nil {
				db = db.Where(column+" <= ?", domain.EndOfDay(*f.To))
			}
		}

		if f.Physical != nil && !f.IgnorePhysical {
			db = db.Where("jobs.customer_physical_type = ?", *f.Physical)
		}
		if f.Phone != nil && !f.IgnorePhysicalPhone {
			db = db.Where("jobs.customer_phone_type = ?", *f.Phone)
		}
		if f.Flagged != nil && !f.IgnoreFlagged {
			db = db.Where("jobs.flagged = ?", *f.Flagged)
		}
		switch f.BookingType {
		case "physical":
			db = db.Where("jobs.customer_physical_type = ?", true)
		case "phone":
			db = db.Where("jobs.customer_phone_type = ?", true)
		}
		if f.LowFeedback {
			db = db.Where(`EXISTS (
				SELECT 1 FROM job_feedback fb
				WHERE fb.job_id = jobs.id AND fb.rating <= 3 AND fb.ignored = ?)`, false)
		}
		return db
	}
}

func lowered(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
