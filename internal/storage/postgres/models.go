package postgres

import (
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// The gorm models mirror the tables of the migrations package. They only
// serve the admin listing and its tests.

type jobModel struct {
	ID                   int64      `gorm:"column:id;primaryKey"`
	CustomerID           int64      `gorm:"column:user_id;index"`
	FromLanguageID       int64      `gorm:"column:from_language_id"`
	Status               string     `gorm:"column:status"`
	Immediate            bool       `gorm:"column:immediate"`
	Due                  time.Time  `gorm:"column:due"`
	Duration             int        `gorm:"column:duration"`
	Gender               string     `gorm:"column:gender"`
	Certified            string     `gorm:"column:certified"`
	CustomerPhoneType    bool       `gorm:"column:customer_phone_type"`
	CustomerPhysicalType bool       `gorm:"column:customer_physical_type"`
	JobType              string     `gorm:"column:job_type"`
	Town                 string     `gorm:"column:town"`
	Address              string     `gorm:"column:address"`
	Instructions         string     `gorm:"column:instructions"`
	UserEmail            string     `gorm:"column:user_email"`
	Reference            string     `gorm:"column:reference"`
	AdminComments        string     `gorm:"column:admin_comments"`
	SessionTime          string     `gorm:"column:session_time"`
	ByAdmin              bool       `gorm:"column:by_admin"`
	Flagged              bool       `gorm:"column:flagged"`
	SpecificTranslatorID *int64     `gorm:"column:specific_translator_id"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
	WillExpireAt         time.Time  `gorm:"column:will_expire_at"`
	EndAt                *time.Time `gorm:"column:end_at"`
	WithdrawAt           *time.Time `gorm:"column:withdraw_at"`
	ExpiredAt            *time.Time `gorm:"column:expired_at"`
}

func (jobModel) TableName() string { return "jobs" }

func jobModelFrom(j domain.Job) jobModel {
	return jobModel{
		ID:                   j.ID,
		CustomerID:           j.CustomerID,
		FromLanguageID:       j.FromLanguageID,
		Status:               string(j.Status),
		Immediate:            j.Immediate,
		Due:                  j.Due,
		Duration:             j.Duration,
		Gender:               j.Gender,
		Certified:            j.Certified,
		CustomerPhoneType:    j.CustomerPhoneType,
		CustomerPhysicalType: j.CustomerPhysicalType,
		JobType:              string(j.JobType),
		Town:                 j.Town,
		Address:              j.Address,
		Instructions:         j.Instructions,
		UserEmail:            j.UserEmail,
		Reference:            j.Reference,
		AdminComments:        j.AdminComments,
		SessionTime:          j.SessionTime,
		ByAdmin:              j.ByAdmin,
		Flagged:              j.Flagged,
		SpecificTranslatorID: j.SpecificTranslatorID,
		CreatedAt:            j.CreatedAt,
		UpdatedAt:            j.UpdatedAt,
		WillExpireAt:         j.WillExpireAt,
		EndAt:                j.EndAt,
		WithdrawAt:           j.WithdrawAt,
		ExpiredAt:            j.ExpiredAt,
	}
}

func (m jobModel) toDomain() domain.Job {
	return domain.Job{
		ID:                   m.ID,
		CustomerID:           m.CustomerID,
		FromLanguageID:       m.FromLanguageID,
		Status:               domain.JobStatus(m.Status),
		Immediate:            m.Immediate,
		Due:                  m.Due,
		Duration:             m.Duration,
		Gender:               m.Gender,
		Certified:            m.Certified,
		CustomerPhoneType:    m.CustomerPhoneType,
		CustomerPhysicalType: m.CustomerPhysicalType,
		JobType:              domain.JobType(m.JobType),
		Town:                 m.Town,
		Address:              m.Address,
		Instructions:         m.Instructions,
		UserEmail:            m.UserEmail,
		Reference:            m.Reference,
		AdminComments:        m.AdminComments,
		SessionTime:          m.SessionTime,
		ByAdmin:              m.ByAdmin,
		Flagged:              m.Flagged,
		SpecificTranslatorID: m.SpecificTranslatorID,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
		WillExpireAt:         m.WillExpireAt,
		EndAt:                m.EndAt,
		WithdrawAt:           m.WithdrawAt,
		ExpiredAt:            m.ExpiredAt,
	}
}

type userModel struct {
	ID           int64  `gorm:"column:id;primaryKey"`
	Name         string `gorm:"column:name"`
	Email        string `gorm:"column:email"`
	UserType     string `gorm:"column:user_type"`
	ConsumerType string `gorm:"column:consumer_type"`
}

func (userModel) TableName() string { return "users" }

type assignmentModel struct {
	ID           int64      `gorm:"column:id;primaryKey"`
	JobID        int64      `gorm:"column:job_id;index"`
	TranslatorID int64      `gorm:"column:translator_id"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	CancelAt     *time.Time `gorm:"column:cancel_at"`
}

func (assignmentModel) TableName() string { return "assignments" }

type feedbackModel struct {
	JobID   int64 `gorm:"column:job_id;primaryKey;autoIncrement:false"`
	Rating  int   `gorm:"column:rating"`
	Ignored bool  `gorm:"column:ignored"`
}

func (feedbackModel) TableName() string { return "job_feedback" }
