package lifecycle

import (
	"context"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// Repository is the persistence contract of the booking core. Inside
// Store.WithinTx every call runs on the same transaction.
type Repository interface {
	FindJob(ctx context.Context, id int64) (domain.Job, error)
	// LockJob loads the job and holds a row lock on it until the
	// transaction ends.
	LockJob(ctx context.Context, id int64) (domain.Job, error)
	SaveJob(ctx context.Context, job domain.Job) error
	InsertJob(ctx context.Context, job domain.Job) (int64, error)
	// ClaimJob moves a pending job to assigned. It returns
	// domain.ErrJobAlreadyTaken when the job is no longer pending.
	ClaimJob(ctx context.Context, id int64, at time.Time) error

	FindActiveAssignment(ctx context.Context, jobID int64) (domain.Assignment, error)
	// CreateAssignment returns domain.ErrActiveAssignmentExists when the job
	// already has an active assignment and a is active too.
	CreateAssignment(ctx context.Context, a domain.Assignment) (int64, error)
	CloseAssignment(ctx context.Context, id int64, completedAt time.Time, completedBy int64) error
	CancelAssignment(ctx context.Context, id int64, cancelAt time.Time) error
	// HasOverlappingAssignment reports whether the translator holds an
	// active assignment on another job whose window intersects [start, end).
	HasOverlappingAssignment(ctx context.Context, translatorID int64, start, end time.Time, excludeJobID int64) (bool, error)

	FindUser(ctx context.Context, id int64) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	// LockUser serializes concurrent operations of one user.
	LockUser(ctx context.Context, id int64) error
	// ListTranslators returns the enabled translators speaking the language.
	ListTranslators(ctx context.Context, languageID int64) ([]domain.User, error)
	UsersByID(ctx context.Context, ids []int64) (map[int64]domain.User, error)
	LanguageName(ctx context.Context, id int64) (string, error)

	QueryJobs(ctx context.Context, filter domain.JobFilter) (domain.JobPage, error)
	PendingJobs(ctx context.Context, languageIDs []int64) ([]domain.Job, error)
	// ListExpirable returns pending jobs whose will_expire_at is before now.
	ListExpirable(ctx context.Context, now time.Time) ([]int64, error)
	// ListStartable returns assigned jobs whose due time has been reached.
	ListStartable(ctx context.Context, now time.Time) ([]int64, error)
	CustomerJobs(ctx context.Context, customerID int64, statuses []domain.JobStatus, page, pageSize int) (domain.JobPage, error)
	TranslatorJobs(ctx context.Context, translatorID int64, statuses []domain.JobStatus, page, pageSize int) (domain.JobPage, error)
}

// Store is a Repository that can run a function inside a transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}
