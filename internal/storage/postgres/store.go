// Package postgres implements the booking store on PostgreSQL. Transitions
// run in a database transaction and take row locks on the job and the
// accepting translator; the admin listing is built with gorm.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/lifecycle"
	"github.com/cuongbtq/interpreter-booking/shared/postgresql"
)

const (
	uniqueViolation       = "23505"
	activeAssignmentIndex = "uq_assignments_active_job"
)

// Store is the PostgreSQL booking store. Calls made on the Store itself run
// in autocommit mode; WithinTx hands fn a repository bound to a transaction.
type Store struct {
	*repo
	client *postgresql.Client
	logger *slog.Logger
}

var _ lifecycle.Store = (*Store)(nil)

// New creates a Store. query serves QueryJobs.
func New(client *postgresql.Client, query *JobQuery, logger *slog.Logger) *Store {
	return &Store{
		repo:   &repo{db: client.GetDB(), query: query},
		client: client,
		logger: logger,
	}
}

// WithinTx runs fn in a transaction that commits when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repo lifecycle.Repository) error) error {
	return s.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, &repo{db: tx, query: s.query})
	})
}

type repo struct {
	db    sqlx.ExtContext
	query *JobQuery
}

const jobColumns = `
	id, user_id, from_language_id, status, immediate, due, duration, gender, certified,
	customer_phone_type, customer_physical_type, job_type, town, address, instructions,
	user_email, reference, admin_comments, session_time, by_admin, flagged,
	specific_translator_id, created_at, updated_at, will_expire_at, end_at, withdraw_at, expired_at`

func (r *repo) getJob(ctx context.Context, id int64, suffix string) (domain.Job, error) {
	var job domain.Job
	err := sqlx.GetContext(ctx, r.db, &job, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`+suffix, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, domain.JobNotFound(id)
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (r *repo) FindJob(ctx context.Context, id int64) (domain.Job, error) {
	return r.getJob(ctx, id, "")
}

// LockJob reads the job and holds its row lock until the transaction ends.
func (r *repo) LockJob(ctx context.Context, id int64) (domain.Job, error) {
	return r.getJob(ctx, id, " FOR UPDATE")
}

func (r *repo) SaveJob(ctx context.Context, job domain.Job) error {
	query := `
		UPDATE jobs SET
			from_language_id = :from_language_id,
			status = :status,
			immediate = :immediate,
			due = :due,
			duration = :duration,
			gender = :gender,
			certified = :certified,
			customer_phone_type = :customer_phone_type,
			customer_physical_type = :customer_physical_type,
			job_type = :job_type,
			town = :town,
			address = :address,
			instructions = :instructions,
			user_email = :user_email,
			reference = :reference,
			admin_comments = :admin_comments,
			session_time = :session_time,
			by_admin = :by_admin,
			flagged = :flagged,
			specific_translator_id = :specific_translator_id,
			created_at = :created_at,
			updated_at = :updated_at,
			will_expire_at = :will_expire_at,
			end_at = :end_at,
			withdraw_at = :withdraw_at,
			expired_at = :expired_at
		WHERE id = :id`

	res, err := sqlx.NamedExecContext(ctx, r.db, query, job)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.JobNotFound(job.ID)
	}
	return nil
}

func (r *repo) InsertJob(ctx context.Context, job domain.Job) (int64, error) {
	query := `
		INSERT INTO jobs (
			user_id, from_language_id, status, immediate, due, duration, gender, certified,
			customer_phone_type, customer_physical_type, job_type, town, address, instructions,
			user_email, reference, admin_comments, session_time, by_admin, flagged,
			specific_translator_id, created_at, updated_at, will_expire_at, end_at, withdraw_at, expired_at
		) VALUES (
			:user_id, :from_language_id, :status, :immediate, :due, :duration, :gender, :certified,
			:customer_phone_type, :customer_physical_type, :job_type, :town, :address, :instructions,
			:user_email, :reference, :admin_comments, :session_time, :by_admin, :flagged,
			:specific_translator_id, :created_at, :updated_at, :will_expire_at, :end_at, :withdraw_at, :expired_at
		)
		RETURNING id`

	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	bound, args, err := r.db.BindNamed(query, job)
	if err != nil {
		return 0, fmt.Errorf("failed to bind job insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRowxContext(ctx, bound, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert job: %w", err)
	}
	return id, nil
}

// ClaimJob moves a pending job to assigned. The status guard in the WHERE
// clause makes the claim atomic: exactly one concurrent caller wins.
func (r *repo) ClaimJob(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`

	res, err := r.db.ExecContext(ctx, query, domain.StatusAssigned, at, id, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to claim job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if n == 0 {
		return domain.ErrJobAlreadyTaken
	}
	return nil
}

const assignmentColumns = `id, job_id, translator_id, created_at, completed_at, cancel_at, completed_by`

func (r *repo) FindActiveAssignment(ctx context.Context, jobID int64) (domain.Assignment, error) {
	var a domain.Assignment
	err := sqlx.GetContext(ctx, r.db, &a, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE job_id = $1 AND completed_at IS NULL AND cancel_at IS NULL`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

func (r *repo) CreateAssignment(ctx context.Context, a domain.Assignment) (int64, error) {
	query := `
		INSERT INTO assignments (job_id, translator_id, created_at, completed_at, cancel_at, completed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := r.db.QueryRowxContext(ctx, query, a.JobID, a.TranslatorID, a.CreatedAt, a.CompletedAt, a.CancelAt, a.CompletedBy).Scan(&id)
	if isActiveAssignmentViolation(err) {
		return 0, domain.ErrActiveAssignmentExists
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create assignment: %w", err)
	}
	return id, nil
}

func isActiveAssignmentViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == activeAssignmentIndex
}

func (r *repo) CloseAssignment(ctx context.Context, id int64, completedAt time.Time, completedBy int64) error {
	return r.updateAssignment(ctx, `UPDATE assignments SET completed_at = $2, completed_by = $3 WHERE id = $1`, id, completedAt, completedBy)
}

func (r *repo) CancelAssignment(ctx context.Context, id int64, cancelAt time.Time) error {
	return r.updateAssignment(ctx, `UPDATE assignments SET cancel_at = $2 WHERE id = $1`, id, cancelAt)
}

func (r *repo) updateAssignment(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrAssignmentNotFound
	}
	return nil
}

// HasOverlappingAssignment reports whether the translator holds an active
// assignment whose session intersects [start, end). Zero-length sessions
// count as one minute.
func (r *repo) HasOverlappingAssignment(ctx context.Context, translatorID int64, start, end time.Time, excludeJobID int64) (bool, error) {
	if !end.After(start) {
		end = start.Add(time.Minute)
	}
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM assignments a
			JOIN jobs j ON j.id = a.job_id
			WHERE a.translator_id = $1
			  AND a.completed_at IS NULL
			  AND a.cancel_at IS NULL
			  AND j.id <> $4
			  AND j.due < $3
			  AND j.due + make_interval(mins => GREATEST(j.duration, 1)) > $2
		)`

	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, translatorID, start, end, excludeJobID); err != nil {
		return false, fmt.Errorf("failed to check overlapping assignments: %w", err)
	}
	return exists, nil
}

func (r *repo) LanguageName(ctx context.Context, id int64) (string, error) {
	var name string
	err := sqlx.GetContext(ctx, r.db, &name, `SELECT name FROM languages WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get language: %w", err)
	}
	return name, nil
}

func (r *repo) QueryJobs(ctx context.Context, filter domain.JobFilter) (domain.JobPage, error) {
	return r.query.Query(ctx, filter)
}

func (r *repo) PendingJobs(ctx context.Context, languageIDs []int64) ([]domain.Job, error) {
	jobs := []domain.Job{}
	err := sqlx.SelectContext(ctx, r.db, &jobs, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = $1 AND from_language_id = ANY($2)
		ORDER BY due, id`, domain.StatusPending, pq.Array(languageIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	return jobs, nil
}

func (r *repo) ListExpirable(ctx context.Context, now time.Time) ([]int64, error) {
	return r.ids(ctx, `SELECT id FROM jobs WHERE status = $1 AND will_expire_at < $2 ORDER BY id`, domain.StatusPending, now)
}

func (r *repo) ListStartable(ctx context.Context, now time.Time) ([]int64, error) {
	return r.ids(ctx, `SELECT id FROM jobs WHERE status = $1 AND due <= $2 ORDER BY id`, domain.StatusAssigned, now)
}

func (r *repo) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	var ids []int64
	if err := sqlx.SelectContext(ctx, r.db, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list job ids: %w", err)
	}
	return ids, nil
}

func (r *repo) CustomerJobs(ctx context.Context, customerID int64, statuses []domain.JobStatus, page, pageSize int) (domain.JobPage, error) {
	from := `FROM jobs j WHERE j.user_id = $1 AND (cardinality($2::text[]) = 0 OR j.status = ANY($2::text[]))`
	return r.jobPage(ctx, from, page, pageSize, customerID, pq.Array(statusStrings(statuses)))
}

func (r *repo) TranslatorJobs(ctx context.Context, translatorID int64, statuses []domain.JobStatus, page, pageSize int) (domain.JobPage, error) {
	from := `
		FROM jobs j
		WHERE EXISTS (
			SELECT 1 FROM assignments a
			WHERE a.job_id = j.id AND a.translator_id = $1 AND a.cancel_at IS NULL
		)
		AND (cardinality($2::text[]) = 0 OR j.status = ANY($2::text[]))`
	return r.jobPage(ctx, from, page, pageSize, translatorID, pq.Array(statusStrings(statuses)))
}

// jobPage lists the jobs selected by from ordered by due time. A positive
// pageSize paginates; otherwise every row is returned.
func (r *repo) jobPage(ctx context.Context, from string, page, pageSize int, args ...any) (domain.JobPage, error) {
	result := domain.JobPage{Page: page, PageSize: pageSize, Jobs: []domain.Job{}}

	if err := sqlx.GetContext(ctx, r.db, &result.Total, `SELECT COUNT(*) `+from, args...); err != nil {
		return domain.JobPage{}, fmt.Errorf("failed to count jobs: %w", err)
	}

	query := `SELECT ` + prefixed("j", jobColumns) + ` ` + from + ` ORDER BY j.due, j.id`
	if pageSize > 0 {
		f := domain.JobFilter{Page: page, PageSize: pageSize}
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, f.Limit(), f.Offset())
	}
	if err := sqlx.SelectContext(ctx, r.db, &result.Jobs, query, args...); err != nil {
		return domain.JobPage{}, fmt.Errorf("failed to list jobs: %w", err)
	}
	return result, nil
}

func statusStrings(statuses []domain.JobStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
