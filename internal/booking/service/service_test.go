package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/events"
	"github.com/cuongbtq/interpreter-booking/internal/booking/lifecycle"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify/notifytest"
	"github.com/cuongbtq/interpreter-booking/internal/booking/service"
	"github.com/cuongbtq/interpreter-booking/internal/storage/memory"
)

const (
	customerID    = int64(100)
	rwsCustomerID = int64(101)
	adminID       = int64(900)
	languageID    = int64(7)
)

type fixture struct {
	t      *testing.T
	store  *memory.Store
	rec    *notifytest.Recorder
	events *events.Recorder
	svc    *service.BookingService
	now    time.Time
}

func newFixture(t *testing.T, translators int) *fixture {
	t.Helper()
	now := time.Date(2030, 3, 4, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.New()
	store.AddLanguage(languageID, "Arabic")
	store.AddUser(domain.User{ID: customerID, Name: "Kund AB", Email: "kund@example.com", UserType: domain.UserCustomer, City: "Stockholm", ConsumerType: "paid"})
	store.AddUser(domain.User{ID: rwsCustomerID, Name: "Kommun", Email: "kommun@example.com", UserType: domain.UserCustomer, City: "Stockholm", ConsumerType: "rwsconsumer"})
	store.AddUser(domain.User{ID: adminID, Name: "Admin", Email: "admin@example.com", UserType: domain.UserAdmin})
	for i := 1; i <= translators; i++ {
		store.AddUser(domain.User{
			ID:              int64(i),
			Name:            "Tolk",
			Email:           fmt.Sprintf("tolk%d@example.com", i),
			Mobile:          fmt.Sprintf("+4670000%04d", i),
			UserType:        domain.UserTranslator,
			TranslatorType:  domain.TranslatorProfessional,
			TranslatorLevel: domain.LevelCertified,
			City:            "Stockholm",
			LanguageIDs:     []int64{languageID},
		})
	}

	catalog, err := notify.DefaultCatalog()
	require.NoError(t, err)
	rec := notifytest.NewRecorder()
	clock := func() time.Time { return now }
	hours := notify.BusinessHours{Location: time.UTC, NightStart: 22 * time.Hour, NightEnd: 7 * time.Hour}
	disp := notify.NewDispatcher(rec, catalog, hours, logger, notify.WithNow(clock))
	evts := &events.Recorder{}

	svc := service.New(service.DefaultConfig(), store, lifecycle.NewMachine(lifecycle.DefaultConfig(), logger), disp, evts, logger, service.WithClock(clock))

	return &fixture{t: t, store: store, rec: rec, events: evts, svc: svc, now: now}
}

func (f *fixture) putJob(status domain.JobStatus, due time.Time, mutate ...func(*domain.Job)) int64 {
	job := domain.Job{
		CustomerID:        customerID,
		FromLanguageID:    languageID,
		Status:            status,
		Due:               due,
		Duration:          60,
		Certified:         domain.CertifiedYes,
		CustomerPhoneType: true,
		JobType:           domain.JobTypePaid,
		CreatedAt:         f.now.Add(-time.Hour),
		WillExpireAt:      due,
	}
	for _, fn := range mutate {
		fn(&job)
	}
	return f.store.PutJob(job)
}

func (f *fixture) assign(jobID, translatorID int64) {
	_, err := f.store.CreateAssignment(context.Background(), domain.Assignment{JobID: jobID, TranslatorID: translatorID, CreatedAt: f.now})
	require.NoError(f.t, err)
}

func (f *fixture) job(id int64) domain.Job {
	job, err := f.store.FindJob(context.Background(), id)
	require.NoError(f.t, err)
	return job
}

func TestCreate(t *testing.T) {
	f := newFixture(t, 3)

	res, err := f.svc.Create(context.Background(), customerID, service.CreateInput{
		FromLanguageID:    languageID,
		DueDate:           "03/05/2030",
		DueTime:           "10:00",
		CustomerPhoneType: true,
		Duration:          45,
		JobFor:            []string{service.JobForFemale, service.JobForCertified},
	})
	require.NoError(t, err)
	require.True(t, res.OK(), res.Message)

	job := f.job(res.ID)
	assert.Equal(t, domain.StatusPending, job.Status)
	assert.Equal(t, time.Date(2030, 3, 5, 10, 0, 0, 0, time.UTC), job.Due)
	assert.Equal(t, f.now.Add(90*time.Minute), job.WillExpireAt)
	assert.Equal(t, "female", job.Gender)
	assert.Equal(t, domain.CertifiedYes, job.Certified)
	assert.Equal(t, domain.JobTypePaid, job.JobType)
	assert.Len(t, f.events.OfType(events.TypeJobCreated), 1)
}

func TestCreate_Immediate(t *testing.T) {
	f := newFixture(t, 3)

	res, err := f.svc.Create(context.Background(), customerID, service.CreateInput{
		FromLanguageID: languageID,
		Immediate:      true,
		Duration:       30,
	})
	require.NoError(t, err)
	require.True(t, res.OK(), res.Message)

	job := f.job(res.ID)
	assert.True(t, job.CustomerPhoneType)
	assert.Equal(t, f.now.Add(5*time.Minute), job.Due)
	assert.Equal(t, job.Due, job.WillExpireAt)

	pushes := f.rec.PushesOfType(domain.NotificationSuitableJob)
	require.Len(t, pushes, 1)
	assert.True(t, pushes[0].Payload.Immediate)
}

func TestCreate_Validation(t *testing.T) {
	valid := func() service.CreateInput {
		return service.CreateInput{
			FromLanguageID:    languageID,
			DueDate:           "03/05/2030",
			DueTime:           "10:00",
			CustomerPhoneType: true,
			Duration:          45,
		}
	}

	tests := []struct {
		name      string
		actor     int64
		mutate    func(in *service.CreateInput)
		wantField string
		errString string
	}{
		{
			name:      "missing language",
			actor:     customerID,
			mutate:    func(in *service.CreateInput) { in.FromLanguageID = 0 },
			wantField: "from_language_id",
			errString: "You must fill in all fields",
		},
		{
			name:      "missing due date",
			actor:     customerID,
			mutate:    func(in *service.CreateInput) { in.DueDate = "" },
			wantField: "due_date",
			errString: "You must fill in all fields",
		},
		{
			name:      "missing due time",
			actor:     customerID,
			mutate:    func(in *service.CreateInput) { in.DueTime = "" },
			wantField: "due_time",
			errString: "You must fill in all fields",
		},
		{
			name:      "no booking type",
			actor:     customerID,
			mutate:    func(in *service.CreateInput) { in.CustomerPhoneType = false },
			wantField: "customer_phone_type",
			errString: "You must fill in all fields",
		},
		{
			name:      "missing duration",
			actor:     customerID,
			mutate:    func(in *service.CreateInput) { in.Duration = 0 },
			wantField: "duration",
			errString: "You must fill in all fields",
		},
		{
			name:      "immediate without duration",
			actor:     customerID,
			mutate:    func(in *service.CreateInput) { in.Immediate, in.Duration = true, 0 },
			wantField: "duration",
			errString: "You must fill in all fields",
		},
		{
			name:      "due in the past",
			actor:     customerID,
			mutate:    func(in *service.CreateInput) { in.DueDate = "03/03/2030" },
			wantField: "due_date",
			errString: "Can't create booking in past",
		},
		{
			name:      "malformed date",
			actor:     customerID,
			mutate:    func(in *service.CreateInput) { in.DueDate = "2030-03-05" },
			wantField: "due_date",
			errString: "Invalid due date or time",
		},
		{
			name:      "translator cannot create",
			actor:     1,
			errString: "Translator can not create booking",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1)
			in := valid()
			if tt.mutate != nil {
				tt.mutate(&in)
			}

			res, err := f.svc.Create(context.Background(), tt.actor, in)

			require.NoError(t, err)
			assert.False(t, res.OK())
			assert.Equal(t, tt.errString, res.Message)
			assert.Equal(t, tt.wantField, res.FieldName)
			assert.Empty(t, f.rec.Pushes())
		})
	}
}

func TestAccept_ConcurrentSingleWinner(t *testing.T) {
	const translators = 50
	f := newFixture(t, translators)
	jobID := f.putJob(domain.StatusPending, f.now.Add(48*time.Hour))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []int64
		losses  int
	)
	for i := 1; i <= translators; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			res, err := f.svc.Accept(context.Background(), id, jobID)
			assert.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			if res.OK() {
				winners = append(winners, id)
			} else {
				losses++
			}
		}(int64(i))
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, translators-1, losses)

	assignments := f.store.Assignments(jobID)
	require.Len(t, assignments, 1)
	assert.Equal(t, winners[0], assignments[0].TranslatorID)
	assert.Equal(t, domain.StatusAssigned, f.job(jobID).Status)
	assert.Len(t, f.rec.PushesOfType(domain.NotificationJobAccepted), 1)
}

func TestAcceptByID_Message(t *testing.T) {
	f := newFixture(t, 1)
	due := time.Date(2030, 3, 6, 9, 30, 0, 0, time.UTC)
	jobID := f.putJob(domain.StatusPending, due)

	res, err := f.svc.AcceptByID(context.Background(), 1, jobID)

	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "You have accepted the booking for Arabic interpreter 60min 2030-03-06 09:30", res.Message)
}

// languageless fails language lookups made outside a transaction.
type languageless struct {
	lifecycle.Store
}

func (languageless) LanguageName(context.Context, int64) (string, error) {
	return "", errors.New("languages table unavailable")
}

func TestAcceptByID_LanguageLookupFails(t *testing.T) {
	f := newFixture(t, 1)
	jobID := f.putJob(domain.StatusPending, f.now.Add(48*time.Hour))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog, err := notify.DefaultCatalog()
	require.NoError(t, err)
	clock := func() time.Time { return f.now }
	hours := notify.BusinessHours{Location: time.UTC, NightStart: 22 * time.Hour, NightEnd: 7 * time.Hour}
	disp := notify.NewDispatcher(f.rec, catalog, hours, logger, notify.WithNow(clock))
	svc := service.New(service.DefaultConfig(), languageless{Store: f.store}, lifecycle.NewMachine(lifecycle.DefaultConfig(), logger), disp, f.events, logger, service.WithClock(clock))

	res, err := svc.AcceptByID(context.Background(), 1, jobID)

	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "Booking accepted", res.Message)
	assert.Equal(t, domain.StatusAssigned, f.job(jobID).Status)
}

func TestAccept_DegradedOnEmailFailure(t *testing.T) {
	f := newFixture(t, 1)
	jobID := f.putJob(domain.StatusPending, f.now.Add(48*time.Hour))
	f.rec.FailEmailTo["kund@example.com"] = errors.New("smtp unavailable")

	res, err := f.svc.Accept(context.Background(), 1, jobID)

	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.True(t, res.Degraded())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "kund@example.com")
	assert.Equal(t, domain.StatusAssigned, f.job(jobID).Status)
	assert.Len(t, f.rec.EmailsTo("tolk1@example.com"), 1)
}

func TestCancel_RoutesByActor(t *testing.T) {
	tests := []struct {
		name       string
		actor      int64
		due        time.Duration
		wantOK     bool
		wantStatus domain.JobStatus
		errString  string
	}{
		{
			name:       "customer early",
			actor:      customerID,
			due:        48 * time.Hour,
			wantOK:     true,
			wantStatus: domain.StatusWithdrawBefore24,
		},
		{
			name:       "customer late",
			actor:      customerID,
			due:        2 * time.Hour,
			wantOK:     true,
			wantStatus: domain.StatusWithdrawAfter24,
		},
		{
			name:       "admin uses customer rules",
			actor:      adminID,
			due:        48 * time.Hour,
			wantOK:     true,
			wantStatus: domain.StatusWithdrawBefore24,
		},
		{
			name:       "translator early returns job to pool",
			actor:      1,
			due:        48 * time.Hour,
			wantOK:     true,
			wantStatus: domain.StatusPending,
		},
		{
			name:       "translator late must call",
			actor:      1,
			due:        2 * time.Hour,
			wantStatus: domain.StatusAssigned,
			errString:  "Please call us to cancel by phone.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 2)
			jobID := f.putJob(domain.StatusAssigned, f.now.Add(tt.due))
			f.assign(jobID, 1)

			res, err := f.svc.Cancel(context.Background(), tt.actor, jobID)

			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, res.OK())
			if tt.errString != "" {
				assert.Contains(t, res.Message, tt.errString)
			}
			assert.Equal(t, tt.wantStatus, f.job(jobID).Status)
		})
	}
}

func TestEnd_Idempotent(t *testing.T) {
	f := newFixture(t, 1)
	jobID := f.putJob(domain.StatusStarted, f.now.Add(-90*time.Minute))
	f.assign(jobID, 1)

	first, err := f.svc.End(context.Background(), 1, jobID)
	require.NoError(t, err)
	require.True(t, first.OK())
	assert.Equal(t, "Session ended", first.Message)

	job := f.job(jobID)
	assert.Equal(t, domain.StatusCompleted, job.Status)
	assert.Equal(t, "1:30:00", job.SessionTime)
	emails := len(f.rec.Emails())

	second, err := f.svc.End(context.Background(), 1, jobID)
	require.NoError(t, err)
	assert.True(t, second.OK())
	assert.Equal(t, "Session already ended", second.Message)
	assert.Len(t, f.rec.Emails(), emails)
	assert.Len(t, f.events.OfType(events.TypeSessionEnded), 1)
}

func TestReopen_TimedOutCreatesNewJob(t *testing.T) {
	f := newFixture(t, 2)
	jobID := f.putJob(domain.StatusTimedOut, f.now.Add(24*time.Hour))

	res, err := f.svc.Reopen(context.Background(), adminID, jobID)

	require.NoError(t, err)
	require.True(t, res.OK())
	assert.NotEqual(t, jobID, res.ID)
	assert.Equal(t, domain.StatusTimedOut, f.job(jobID).Status)
	assert.Equal(t, domain.StatusPending, f.job(res.ID).Status)
}

func TestAdminUpdate_RequiresAdmin(t *testing.T) {
	f := newFixture(t, 1)
	jobID := f.putJob(domain.StatusPending, f.now.Add(48*time.Hour))
	status := domain.StatusAssigned

	res, err := f.svc.AdminUpdate(context.Background(), customerID, jobID, lifecycle.AdminUpdate{Status: &status})

	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, domain.StatusPending, f.job(jobID).Status)
}

func TestStoreJobEmail(t *testing.T) {
	f := newFixture(t, 1)
	jobID := f.putJob(domain.StatusPending, f.now.Add(48*time.Hour))

	res, err := f.svc.StoreJobEmail(context.Background(), 1, jobID, lifecycle.ContactUpdate{UserEmail: "other@example.com"})
	require.NoError(t, err)
	assert.False(t, res.OK())

	res, err = f.svc.StoreJobEmail(context.Background(), customerID, jobID, lifecycle.ContactUpdate{UserEmail: "kontakt@example.com", Reference: "REF-1"})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "kontakt@example.com", f.job(jobID).UserEmail)
	assert.Len(t, f.rec.EmailsTo("kontakt@example.com"), 1)
}

func TestResendNotifications(t *testing.T) {
	f := newFixture(t, 3)
	jobID := f.putJob(domain.StatusPending, f.now.Add(48*time.Hour))

	res, err := f.svc.ResendNotifications(context.Background(), 1, jobID)
	require.NoError(t, err)
	assert.False(t, res.OK())

	res, err = f.svc.ResendNotifications(context.Background(), adminID, jobID)
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Len(t, f.rec.PushesOfType(domain.NotificationSuitableJob), 1)
	assert.Empty(t, f.rec.SMS())

	res, err = f.svc.ResendSMSNotifications(context.Background(), adminID, jobID)
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Len(t, f.rec.SMS(), 3)
}

func TestExpirePendingAndStartDue(t *testing.T) {
	f := newFixture(t, 1)
	expired := f.putJob(domain.StatusPending, f.now.Add(time.Hour), func(j *domain.Job) { j.WillExpireAt = f.now.Add(-time.Minute) })
	open := f.putJob(domain.StatusPending, f.now.Add(48*time.Hour))
	due := f.putJob(domain.StatusAssigned, f.now.Add(-time.Minute))
	f.assign(due, 1)
	later := f.putJob(domain.StatusAssigned, f.now.Add(time.Hour))

	n, err := f.svc.ExpirePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.svc.StartDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, domain.StatusTimedOut, f.job(expired).Status)
	assert.NotNil(t, f.job(expired).ExpiredAt)
	assert.Equal(t, domain.StatusPending, f.job(open).Status)
	assert.Equal(t, domain.StatusStarted, f.job(due).Status)
	assert.Equal(t, domain.StatusAssigned, f.job(later).Status)
	assert.Len(t, f.rec.PushesOfType(domain.NotificationJobExpired), 1)
}

func TestListJobs_RestrictsNonAdmin(t *testing.T) {
	f := newFixture(t, 1)
	f.putJob(domain.StatusPending, f.now.Add(48*time.Hour))
	f.putJob(domain.StatusPending, f.now.Add(48*time.Hour), func(j *domain.Job) {
		j.CustomerID = rwsCustomerID
		j.JobType = domain.JobTypeRWS
	})
	f.putJob(domain.StatusPending, f.now.Add(48*time.Hour), func(j *domain.Job) { j.JobType = domain.JobTypeUnpaid })

	tests := []struct {
		name      string
		actor     int64
		wantTypes []domain.JobType
	}{
		{name: "admin sees everything", actor: adminID, wantTypes: []domain.JobType{domain.JobTypePaid, domain.JobTypeRWS, domain.JobTypeUnpaid}},
		{name: "rws consumer sees rws", actor: rwsCustomerID, wantTypes: []domain.JobType{domain.JobTypeRWS}},
		{name: "other users see unpaid", actor: customerID, wantTypes: []domain.JobType{domain.JobTypeUnpaid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.ListJobs(context.Background(), tt.actor, domain.JobFilter{})
			require.NoError(t, err)
			require.True(t, res.OK())

			page, ok := res.Data.(domain.JobPage)
			require.True(t, ok)
			got := make([]domain.JobType, 0, len(page.Jobs))
			for _, job := range page.Jobs {
				got = append(got, job.JobType)
			}
			assert.ElementsMatch(t, tt.wantTypes, got)
		})
	}
}

func TestGetPotentialJobs(t *testing.T) {
	f := newFixture(t, 1)
	open := f.putJob(domain.StatusPending, f.now.Add(48*time.Hour))
	f.putJob(domain.StatusPending, f.now.Add(48*time.Hour), func(j *domain.Job) { j.FromLanguageID = 99 })
	f.putJob(domain.StatusPending, f.now.Add(48*time.Hour), func(j *domain.Job) { j.Gender = "male" })

	res, err := f.svc.GetPotentialJobs(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, res.OK())

	jobs, ok := res.Data.([]domain.Job)
	require.True(t, ok)
	require.Len(t, jobs, 1)
	assert.Equal(t, open, jobs[0].ID)

	res, err = f.svc.GetPotentialJobs(context.Background(), customerID)
	require.NoError(t, err)
	assert.False(t, res.OK())
}

func TestGetJob(t *testing.T) {
	f := newFixture(t, 1)
	own := f.putJob(domain.StatusAssigned, f.now.Add(48*time.Hour))
	f.assign(own, 1)
	foreign := f.putJob(domain.StatusPending, f.now.Add(48*time.Hour), func(j *domain.Job) { j.CustomerID = rwsCustomerID })

	res, err := f.svc.GetJob(context.Background(), customerID, own)
	require.NoError(t, err)
	view, ok := res.Data.(service.JobView)
	require.True(t, ok)
	require.NotNil(t, view.TranslatorID)
	assert.Equal(t, int64(1), *view.TranslatorID)

	_, err = f.svc.GetJob(context.Background(), customerID, foreign)
	assert.True(t, domain.IsNotFound(err))

	res, err = f.svc.GetJob(context.Background(), adminID, foreign)
	require.NoError(t, err)
	assert.Nil(t, res.Data.(service.JobView).TranslatorID)
}

func TestUserJobs(t *testing.T) {
	f := newFixture(t, 1)
	f.putJob(domain.StatusPending, f.now.Add(48*time.Hour))
	f.putJob(domain.StatusPending, f.now.Add(5*time.Minute), func(j *domain.Job) { j.Immediate = true })
	f.putJob(domain.StatusCompleted, f.now.Add(-48*time.Hour))

	res, err := f.svc.UserJobs(context.Background(), customerID)
	require.NoError(t, err)

	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Len(t, data["emergency_jobs"], 1)
	assert.Len(t, data["normal_jobs"], 1)
	assert.Equal(t, domain.UserCustomer, data["user_type"])
}

func TestUserJobsHistory(t *testing.T) {
	f := newFixture(t, 1)
	for i := 0; i < 17; i++ {
		id := f.putJob(domain.StatusCompleted, f.now.Add(-time.Duration(i+1)*time.Hour))
		f.assign(id, 1)
	}
	f.putJob(domain.StatusPending, f.now.Add(48*time.Hour))

	tests := []struct {
		name     string
		actor    int64
		page     int
		wantJobs int
	}{
		{name: "customer first page", actor: customerID, page: 1, wantJobs: 15},
		{name: "customer second page", actor: customerID, page: 2, wantJobs: 2},
		{name: "page zero is first page", actor: customerID, page: 0, wantJobs: 15},
		{name: "translator second page", actor: 1, page: 2, wantJobs: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.UserJobsHistory(context.Background(), tt.actor, tt.page)
			require.NoError(t, err)

			page, ok := res.Data.(domain.JobPage)
			require.True(t, ok)
			assert.Equal(t, int64(17), page.Total)
			assert.Len(t, page.Jobs, tt.wantJobs)
		})
	}
}
