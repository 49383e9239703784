package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/lifecycle"
)

var t0 = time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := s.PutJob(domain.Job{Status: domain.StatusPending, Due: t0, Duration: 60})

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, repo lifecycle.Repository) error {
		job, err := repo.LockJob(ctx, id)
		require.NoError(t, err)
		job.Status = domain.StatusCompleted
		require.NoError(t, repo.SaveJob(ctx, job))
		_, err = repo.CreateAssignment(ctx, domain.Assignment{JobID: id, TranslatorID: 7, CreatedAt: t0})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	job, err := s.FindJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, job.Status)
	assert.Empty(t, s.Assignments(id))
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	s := New()
	ctx := context.Background()

	var id int64
	err := s.WithinTx(ctx, func(ctx context.Context, repo lifecycle.Repository) error {
		var err error
		id, err = repo.InsertJob(ctx, domain.Job{Status: domain.StatusPending})
		return err
	})
	require.NoError(t, err)

	_, err = s.FindJob(ctx, id)
	assert.NoError(t, err)
}

func TestClaimJob(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := s.PutJob(domain.Job{Status: domain.StatusPending})

	require.NoError(t, s.ClaimJob(ctx, id, t0))
	assert.ErrorIs(t, s.ClaimJob(ctx, id, t0), domain.ErrJobAlreadyTaken)

	err := s.ClaimJob(ctx, 999, t0)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestCreateAssignment_OneActivePerJob(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.CreateAssignment(ctx, domain.Assignment{JobID: 1, TranslatorID: 1, CreatedAt: t0})
	require.NoError(t, err)

	_, err = s.CreateAssignment(ctx, domain.Assignment{JobID: 1, TranslatorID: 2, CreatedAt: t0})
	assert.ErrorIs(t, err, domain.ErrActiveAssignmentExists)

	cancelled := t0
	_, err = s.CreateAssignment(ctx, domain.Assignment{JobID: 1, TranslatorID: 3, CreatedAt: t0, CancelAt: &cancelled})
	assert.NoError(t, err, "inactive rows do not count")

	require.NoError(t, s.CancelAssignment(ctx, first, t0))
	_, err = s.CreateAssignment(ctx, domain.Assignment{JobID: 1, TranslatorID: 2, CreatedAt: t0})
	assert.NoError(t, err)
}

func TestHasOverlappingAssignment(t *testing.T) {
	s := New()
	ctx := context.Background()
	busy := s.PutJob(domain.Job{Status: domain.StatusAssigned, Due: t0, Duration: 60})
	_, err := s.CreateAssignment(ctx, domain.Assignment{JobID: busy, TranslatorID: 5, CreatedAt: t0})
	require.NoError(t, err)

	tests := []struct {
		name    string
		start   time.Time
		minutes int
		exclude int64
		want    bool
	}{
		{name: "same window", start: t0, minutes: 60, want: true},
		{name: "starts inside", start: t0.Add(30 * time.Minute), minutes: 60, want: true},
		{name: "back to back", start: t0.Add(time.Hour), minutes: 30, want: false},
		{name: "before", start: t0.Add(-2 * time.Hour), minutes: 60, want: false},
		{name: "excluded job", start: t0, minutes: 60, exclude: busy, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := tt.start.Add(time.Duration(tt.minutes) * time.Minute)
			got, err := s.HasOverlappingAssignment(ctx, 5, tt.start, end, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryJobs(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.AddUser(domain.User{ID: 1, Email: "anna@example.com", UserType: domain.UserCustomer, ConsumerType: "paid"})
	s.AddUser(domain.User{ID: 2, Email: "bo@example.com", UserType: domain.UserCustomer, ConsumerType: "ngo"})
	s.AddUser(domain.User{ID: 9, Email: "tolk@example.com", UserType: domain.UserTranslator})

	j1 := s.PutJob(domain.Job{CustomerID: 1, FromLanguageID: 3, Status: domain.StatusPending, JobType: domain.JobTypePaid, CreatedAt: t0, Due: t0.Add(48 * time.Hour), CustomerPhoneType: true})
	j2 := s.PutJob(domain.Job{CustomerID: 2, FromLanguageID: 4, Status: domain.StatusAssigned, JobType: domain.JobTypeUnpaid, CreatedAt: t0.Add(time.Hour), Due: t0.Add(72 * time.Hour), CustomerPhysicalType: true, Flagged: true})
	j3 := s.PutJob(domain.Job{CustomerID: 1, FromLanguageID: 3, Status: domain.StatusCompleted, JobType: domain.JobTypePaid, CreatedAt: t0.Add(24 * time.Hour), Due: t0.Add(25 * time.Hour)})
	_, err := s.CreateAssignment(ctx, domain.Assignment{JobID: j2, TranslatorID: 9, CreatedAt: t0})
	require.NoError(t, err)
	s.SetFeedback(j3, 2)

	yes := true
	from := t0.Add(12 * time.Hour)
	tests := []struct {
		name   string
		filter domain.JobFilter
		want   []int64
	}{
		{name: "no filter newest first", want: []int64{j3, j2, j1}},
		{name: "by id", filter: domain.JobFilter{IDs: []int64{j2}}, want: []int64{j2}},
		{name: "by language", filter: domain.JobFilter{LanguageIDs: []int64{3}}, want: []int64{j3, j1}},
		{name: "by status", filter: domain.JobFilter{Statuses: []domain.JobStatus{domain.StatusPending}}, want: []int64{j1}},
		{name: "by job type", filter: domain.JobFilter{JobTypes: []domain.JobType{domain.JobTypeUnpaid}}, want: []int64{j2}},
		{name: "by customer email", filter: domain.JobFilter{CustomerEmails: []string{"ANNA@example.com"}}, want: []int64{j3, j1}},
		{name: "by translator email", filter: domain.JobFilter{TranslatorEmails: []string{"tolk@example.com"}}, want: []int64{j2}},
		{name: "by consumer type", filter: domain.JobFilter{ConsumerType: "ngo"}, want: []int64{j2}},
		{name: "created range", filter: domain.JobFilter{TimeType: domain.TimeTypeCreated, From: &from}, want: []int64{j3}},
		{name: "due range to end of day", filter: domain.JobFilter{TimeType: domain.TimeTypeDue, To: &t0}, want: nil},
		{name: "physical", filter: domain.JobFilter{Physical: &yes}, want: []int64{j2}},
		{name: "physical ignored", filter: domain.JobFilter{Physical: &yes, IgnorePhysical: true}, want: []int64{j3, j2, j1}},
		{name: "flagged", filter: domain.JobFilter{Flagged: &yes}, want: []int64{j2}},
		{name: "phone booking type", filter: domain.JobFilter{BookingType: "phone"}, want: []int64{j1}},
		{name: "low feedback", filter: domain.JobFilter{LowFeedback: true}, want: []int64{j3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.QueryJobs(ctx, tt.filter)
			require.NoError(t, err)
			var got []int64
			for _, j := range page.Jobs {
				got = append(got, j.ID)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, int64(len(tt.want)), page.Total)
		})
	}
}

func TestQueryJobs_CountOnlyAndPaging(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		s.PutJob(domain.Job{Status: domain.StatusPending, CreatedAt: t0.Add(time.Duration(i) * time.Minute)})
	}

	page, err := s.QueryJobs(ctx, domain.JobFilter{CountOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(20), page.Total)
	assert.Empty(t, page.Jobs)

	page, err = s.QueryJobs(ctx, domain.JobFilter{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Jobs, 5)
	assert.Equal(t, domain.DefaultPageSize, page.PageSize)
}

func TestTranslatorJobs(t *testing.T) {
	s := New()
	ctx := context.Background()
	mine := s.PutJob(domain.Job{Status: domain.StatusAssigned, Due: t0})
	released := s.PutJob(domain.Job{Status: domain.StatusPending, Due: t0})
	_, err := s.CreateAssignment(ctx, domain.Assignment{JobID: mine, TranslatorID: 5, CreatedAt: t0})
	require.NoError(t, err)
	cancelled := t0
	_, err = s.CreateAssignment(ctx, domain.Assignment{JobID: released, TranslatorID: 5, CreatedAt: t0, CancelAt: &cancelled})
	require.NoError(t, err)

	page, err := s.TranslatorJobs(ctx, 5, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Jobs, 1)
	assert.Equal(t, mine, page.Jobs[0].ID)
}
