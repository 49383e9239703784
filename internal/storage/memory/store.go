// Package memory is an in-process implementation of the booking store.
// A transaction holds the store lock for its whole duration, so concurrent
// transactions are serialized and a failed one leaves no trace.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/lifecycle"
)

type state struct {
	jobs             map[int64]domain.Job
	assignments      map[int64]domain.Assignment
	users            map[int64]domain.User
	languages        map[int64]string
	feedback         map[int64]int
	nextJobID        int64
	nextAssignmentID int64
}

func (s *state) clone() *state {
	c := *s
	c.jobs = maps.Clone(s.jobs)
	c.assignments = maps.Clone(s.assignments)
	c.users = maps.Clone(s.users)
	c.languages = maps.Clone(s.languages)
	c.feedback = maps.Clone(s.feedback)
	return &c
}

// Store keeps jobs, assignments and users in maps.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ lifecycle.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{st: &state{
		jobs:        map[int64]domain.Job{},
		assignments: map[int64]domain.Assignment{},
		users:       map[int64]domain.User{},
		languages:   map[int64]string{},
		feedback:    map[int64]int{},
	}}
}

// WithinTx runs fn with exclusive access to the store. Every change fn made
// is discarded when it returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repo lifecycle.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.st.clone()
	if err := fn(ctx, &repo{st: s.st}); err != nil {
		s.st = saved
		return err
	}
	return nil
}

func (s *Store) locked() (*repo, func()) {
	s.mu.Lock()
	return &repo{st: s.st}, s.mu.Unlock
}

// AddUser stores or replaces a user.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.LanguageIDs = append([]int64(nil), u.LanguageIDs...)
	u.Blacklist = append([]int64(nil), u.Blacklist...)
	s.st.users[u.ID] = u
}

// AddLanguage names a language id.
func (s *Store) AddLanguage(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.languages[id] = name
}

// SetFeedback records the rating a job received.
func (s *Store) SetFeedback(jobID int64, rating int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.feedback[jobID] = rating
}

// PutJob stores a job as is, assigning an id when it has none.
func (s *Store) PutJob(job domain.Job) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == 0 {
		s.st.nextJobID++
		job.ID = s.st.nextJobID
	} else if job.ID > s.st.nextJobID {
		s.st.nextJobID = job.ID
	}
	s.st.jobs[job.ID] = job
	return job.ID
}

// Assignments returns every assignment of a job, oldest first.
func (s *Store) Assignments(jobID int64) []domain.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Assignment
	for _, a := range s.st.assignments {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) FindJob(ctx context.Context, id int64) (domain.Job, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.FindJob(ctx, id)
}

func (s *Store) LockJob(ctx context.Context, id int64) (domain.Job, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.LockJob(ctx, id)
}

func (s *Store) SaveJob(ctx context.Context, job domain.Job) error {
	r, unlock := s.locked()
	defer unlock()
	return r.SaveJob(ctx, job)
}

func (s *Store) InsertJob(ctx context.Context, job domain.Job) (int64, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.InsertJob(ctx, job)
}

func (s *Store) ClaimJob(ctx context.Context, id int64, at time.Time) error {
	r, unlock := s.locked()
	defer unlock()
	return r.ClaimJob(ctx, id, at)
}

func (s *Store) FindActiveAssignment(ctx context.Context, jobID int64) (domain.Assignment, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.FindActiveAssignment(ctx, jobID)
}

func (s *Store) CreateAssignment(ctx context.Context, a domain.Assignment) (int64, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.CreateAssignment(ctx, a)
}

func (s *Store) CloseAssignment(ctx context.Context, id int64, completedAt time.Time, completedBy int64) error {
	r, unlock := s.locked()
	defer unlock()
	return r.CloseAssignment(ctx, id, completedAt, completedBy)
}

func (s *Store) CancelAssignment(ctx context.Context, id int64, cancelAt time.Time) error {
	r, unlock := s.locked()
	defer unlock()
	return r.CancelAssignment(ctx, id, cancelAt)
}

func (s *Store) HasOverlappingAssignment(ctx context.Context, translatorID int64, start, end time.Time, excludeJobID int64) (bool, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.HasOverlappingAssignment(ctx, translatorID, start, end, excludeJobID)
}

func (s *Store) FindUser(ctx context.Context, id int64) (domain.User, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.FindUser(ctx, id)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.FindUserByEmail(ctx, email)
}

func (s *Store) LockUser(ctx context.Context, id int64) error {
	r, unlock := s.locked()
	defer unlock()
	return r.LockUser(ctx, id)
}

func (s *Store) ListTranslators(ctx context.Context, languageID int64) ([]domain.User, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ListTranslators(ctx, languageID)
}

func (s *Store) UsersByID(ctx context.Context, ids []int64) (map[int64]domain.User, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.UsersByID(ctx, ids)
}

func (s *Store) LanguageName(ctx context.Context, id int64) (string, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.LanguageName(ctx, id)
}

func (s *Store) QueryJobs(ctx context.Context, filter domain.JobFilter) (domain.JobPage, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.QueryJobs(ctx, filter)
}

func (s *Store) PendingJobs(ctx context.Context, languageIDs []int64) ([]domain.Job, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.PendingJobs(ctx, languageIDs)
}

func (s *Store) ListExpirable(ctx context.Context, now time.Time) ([]int64, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ListExpirable(ctx, now)
}

func (s *Store) ListStartable(ctx context.Context, now time.Time) ([]int64, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ListStartable(ctx, now)
}

func (s *Store) CustomerJobs(ctx context.Context, customerID int64, statuses []domain.JobStatus, page, pageSize int) (domain.JobPage, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.CustomerJobs(ctx, customerID, statuses, page, pageSize)
}

func (s *Store) TranslatorJobs(ctx context.Context, translatorID int64, statuses []domain.JobStatus, page, pageSize int) (domain.JobPage, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.TranslatorJobs(ctx, translatorID, statuses, page, pageSize)
}

// repo operates on the state without locking. The Store hands it out while
// holding the lock.
type repo struct {
	st *state
}

func (r *repo) FindJob(_ context.Context, id int64) (domain.Job, error) {
	job, ok := r.st.jobs[id]
	if !ok {
		return domain.Job{}, domain.JobNotFound(id)
	}
	return job, nil
}

func (r *repo) LockJob(ctx context.Context, id int64) (domain.Job, error) {
	return r.FindJob(ctx, id)
}

func (r *repo) SaveJob(_ context.Context, job domain.Job) error {
	if _, ok := r.st.jobs[job.ID]; !ok {
		return domain.JobNotFound(job.ID)
	}
	r.st.jobs[job.ID] = job
	return nil
}

func (r *repo) InsertJob(_ context.Context, job domain.Job) (int64, error) {
	r.st.nextJobID++
	job.ID = r.st.nextJobID
	r.st.jobs[job.ID] = job
	return job.ID, nil
}

func (r *repo) ClaimJob(_ context.Context, id int64, at time.Time) error {
	job, ok := r.st.jobs[id]
	if !ok {
		return domain.JobNotFound(id)
	}
	if job.Status != domain.StatusPending {
		return domain.ErrJobAlreadyTaken
	}
	job.Status = domain.StatusAssigned
	job.UpdatedAt = at
	r.st.jobs[id] = job
	return nil
}

func (r *repo) FindActiveAssignment(_ context.Context, jobID int64) (domain.Assignment, error) {
	for _, a := range r.st.assignments {
		if a.JobID == jobID && a.IsActive() {
			return a, nil
		}
	}
	return domain.Assignment{}, domain.ErrAssignmentNotFound
}

func (r *repo) CreateAssignment(ctx context.Context, a domain.Assignment) (int64, error) {
	if a.IsActive() {
		if _, err := r.FindActiveAssignment(ctx, a.JobID); err == nil {
			return 0, domain.ErrActiveAssignmentExists
		}
	}
	r.st.nextAssignmentID++
	a.ID = r.st.nextAssignmentID
	r.st.assignments[a.ID] = a
	return a.ID, nil
}

func (r *repo) CloseAssignment(_ context.Context, id int64, completedAt time.Time, completedBy int64) error {
	a, ok := r.st.assignments[id]
	if !ok {
		return domain.ErrAssignmentNotFound
	}
	a.CompletedAt = &completedAt
	a.CompletedBy = &completedBy
	r.st.assignments[id] = a
	return nil
}

func (r *repo) CancelAssignment(_ context.Context, id int64, cancelAt time.Time) error {
	a, ok := r.st.assignments[id]
	if !ok {
		return domain.ErrAssignmentNotFound
	}
	a.CancelAt = &cancelAt
	r.st.assignments[id] = a
	return nil
}

func (r *repo) HasOverlappingAssignment(_ context.Context, translatorID int64, start, end time.Time, excludeJobID int64) (bool, error) {
	window := domain.Job{Due: start, Duration: int(end.Sub(start) / time.Minute)}
	for _, a := range r.st.assignments {
		if a.TranslatorID != translatorID || !a.IsActive() || a.JobID == excludeJobID {
			continue
		}
		if job, ok := r.st.jobs[a.JobID]; ok && job.Overlaps(window) {
			return true, nil
		}
	}
	return false, nil
}

func (r *repo) FindUser(_ context.Context, id int64) (domain.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return domain.User{}, domain.UserNotFound(id)
	}
	return u, nil
}

func (r *repo) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range r.st.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.UserNotFound(email)
}

func (r *repo) LockUser(ctx context.Context, id int64) error {
	_, err := r.FindUser(ctx, id)
	return err
}

func (r *repo) ListTranslators(_ context.Context, languageID int64) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.st.users {
		if u.IsTranslator() && !u.Disabled && u.SpeaksLanguage(languageID) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *repo) UsersByID(_ context.Context, ids []int64) (map[int64]domain.User, error) {
	out := make(map[int64]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := r.st.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *repo) LanguageName(_ context.Context, id int64) (string, error) {
	return r.st.languages[id], nil
}

func (r *repo) PendingJobs(_ context.Context, languageIDs []int64) ([]domain.Job, error) {
	var out []domain.Job
	for _, job := range r.st.jobs {
		if job.Status != domain.StatusPending {
			continue
		}
		for _, l := range languageIDs {
			if job.FromLanguageID == l {
				out = append(out, job)
				break
			}
		}
	}
	sortByDue(out)
	return out, nil
}

func (r *repo) ListExpirable(_ context.Context, now time.Time) ([]int64, error) {
	var out []int64
	for _, job := range r.st.jobs {
		if job.Status == domain.StatusPending && now.After(job.WillExpireAt) {
			out = append(out, job.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *repo) ListStartable(_ context.Context, now time.Time) ([]int64, error) {
	var out []int64
	for _, job := range r.st.jobs {
		if job.Status == domain.StatusAssigned && !job.Due.After(now) {
			out = append(out, job.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *repo) CustomerJobs(_ context.Context, customerID int64, statuses []domain.JobStatus, page, pageSize int) (domain.JobPage, error) {
	return r.page(func(job domain.Job) bool {
		return job.CustomerID == customerID && hasStatus(statuses, job.Status)
	}, page, pageSize, pageSize > 0), nil
}

func (r *repo) TranslatorJobs(_ context.Context, translatorID int64, statuses []domain.JobStatus, page, pageSize int) (domain.JobPage, error) {
	mine := map[int64]bool{}
	for _, a := range r.st.assignments {
		if a.TranslatorID == translatorID && a.CancelAt == nil {
			mine[a.JobID] = true
		}
	}
	return r.page(func(job domain.Job) bool {
		return mine[job.ID] && hasStatus(statuses, job.Status)
	}, page, pageSize, pageSize > 0), nil
}

func (r *repo) page(match func(domain.Job) bool, page, pageSize int, paginate bool) domain.JobPage {
	var jobs []domain.Job
	for _, job := range r.st.jobs {
		if match(job) {
			jobs = append(jobs, job)
		}
	}
	sortByDue(jobs)

	result := domain.JobPage{Total: int64(len(jobs)), Page: page, PageSize: pageSize}
	if !paginate {
		result.Jobs = jobs
		return result
	}
	f := domain.JobFilter{Page: page, PageSize: pageSize}
	result.Jobs = window(jobs, f.Offset(), f.Limit())
	return result
}

func hasStatus(statuses []domain.JobStatus, s domain.JobStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func sortByDue(jobs []domain.Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Due.Equal(jobs[j].Due) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].Due.Before(jobs[j].Due)
	})
}

func window(jobs []domain.Job, offset, limit int) []domain.Job {
	if offset >= len(jobs) {
		return []domain.Job{}
	}
	end := offset + limit
	if end > len(jobs) {
		end = len(jobs)
	}
	return jobs[offset:end]
}
