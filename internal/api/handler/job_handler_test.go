package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/lifecycle"
	"github.com/cuongbtq/interpreter-booking/internal/booking/service"
)

type bookingServiceMock struct {
	mock.Mock
}

func (m *bookingServiceMock) result(args mock.Arguments) (domain.Result, error) {
	return args.Get(0).(domain.Result), args.Error(1)
}

func (m *bookingServiceMock) Create(ctx context.Context, actorID int64, in service.CreateInput) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, in))
}

func (m *bookingServiceMock) Accept(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, jobID))
}

func (m *bookingServiceMock) AcceptByID(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, jobID))
}

func (m *bookingServiceMock) Cancel(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, jobID))
}

func (m *bookingServiceMock) End(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, jobID))
}

func (m *bookingServiceMock) CustomerNotCall(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, jobID))
}

func (m *bookingServiceMock) Reopen(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, jobID))
}

func (m *bookingServiceMock) AdminUpdate(ctx context.Context, actorID, jobID int64, in lifecycle.AdminUpdate) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, jobID, in))
}

func (m *bookingServiceMock) StoreJobEmail(ctx context.Context, actorID, jobID int64, in lifecycle.ContactUpdate) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, jobID, in))
}

func (m *bookingServiceMock) ListJobs(ctx context.Context, actorID int64, filter domain.JobFilter) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, filter))
}

func (m *bookingServiceMock) GetPotentialJobs(ctx context.Context, actorID int64) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID))
}

func (m *bookingServiceMock) GetJob(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, jobID))
}

func (m *bookingServiceMock) UserJobs(ctx context.Context, actorID int64) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID))
}

func (m *bookingServiceMock) UserJobsHistory(ctx context.Context, actorID int64, page int) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, page))
}

func (m *bookingServiceMock) ResendNotifications(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, jobID))
}

func (m *bookingServiceMock) ResendSMSNotifications(ctx context.Context, actorID, jobID int64) (domain.Result, error) {
	return m.result(m.Called(ctx, actorID, jobID))
}

const testActor int64 = 42

// newTestRouter mounts h behind a stub that authenticates every request as
// actor, or as nobody when actor is zero.
func newTestRouter(svc BookingService, actor int64, method, path string, h func(*JobHandler) gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	jh := NewJobHandler(&Dependencies{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Bookings: svc,
		Location: time.UTC,
	})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if actor != 0 {
			c.Set(ActorKey, actor)
		}
		c.Next()
	})
	r.Handle(method, path, h(jh))
	return r
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) domain.Result {
	t.Helper()
	var res domain.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestJobHandler_CreateJob(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*bookingServiceMock)
		expectedStatus int
		expectedResult string
		expectedField  string
	}{
		{
			name: "successful creation with yes/no strings",
			body: `{"from_language_id":7,"immediate":"no","due_date":"03/06/2030","due_time":"09:30","customer_phone_type":"yes","duration":60,"job_for":["female","certified"]}`,
			setupMock: func(m *bookingServiceMock) {
				m.On("Create", mock.Anything, testActor, service.CreateInput{
					FromLanguageID:    7,
					DueDate:           "03/06/2030",
					DueTime:           "09:30",
					CustomerPhoneType: true,
					Duration:          60,
					JobFor:            []string{"female", "certified"},
				}).Return(domain.Result{Status: domain.ResultSuccess, ID: 1}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedResult: domain.ResultSuccess,
		},
		{
			name: "immediate booking with booleans",
			body: `{"from_language_id":7,"immediate":true,"duration":30}`,
			setupMock: func(m *bookingServiceMock) {
				m.On("Create", mock.Anything, testActor, service.CreateInput{
					FromLanguageID: 7,
					Immediate:      true,
					Duration:       30,
				}).Return(domain.Success("Booking created"), nil)
			},
			expectedStatus: http.StatusOK,
			expectedResult: domain.ResultSuccess,
		},
		{
			name: "business failure keeps status 200",
			body: `{"immediate":"no"}`,
			setupMock: func(m *bookingServiceMock) {
				m.On("Create", mock.Anything, testActor, mock.Anything).
					Return(domain.Result{Status: domain.ResultFail, Message: "You must fill in all fields", FieldName: "from_language_id"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedResult: domain.ResultFail,
			expectedField:  "from_language_id",
		},
		{
			name:           "invalid request body JSON",
			body:           "{invalid json}",
			setupMock:      func(m *bookingServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedResult: domain.ResultFail,
		},
		{
			name:           "bad yes/no value",
			body:           `{"immediate":"maybe"}`,
			setupMock:      func(m *bookingServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedResult: domain.ResultFail,
		},
		{
			name:           "unknown job_for option",
			body:           `{"from_language_id":7,"job_for":["robot"]}`,
			setupMock:      func(m *bookingServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedResult: domain.ResultFail,
			expectedField:  "job_for[0]",
		},
		{
			name:           "malformed contact email",
			body:           `{"from_language_id":7,"user_email":"not-an-email"}`,
			setupMock:      func(m *bookingServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedResult: domain.ResultFail,
			expectedField:  "user_email",
		},
		{
			name: "store failure",
			body: `{"from_language_id":7,"immediate":true,"duration":30}`,
			setupMock: func(m *bookingServiceMock) {
				m.On("Create", mock.Anything, testActor, mock.Anything).
					Return(domain.Result{}, errors.New("connection refused"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedResult: domain.ResultFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(bookingServiceMock)
			tt.setupMock(svc)
			r := newTestRouter(svc, testActor, http.MethodPost, "/jobs", func(h *JobHandler) gin.HandlerFunc { return h.CreateJob })

			req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			res := decodeResult(t, w)
			assert.Equal(t, tt.expectedResult, res.Status)
			if tt.expectedField != "" {
				assert.Equal(t, tt.expectedField, res.FieldName)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestJobHandler_RequiresActor(t *testing.T) {
	svc := new(bookingServiceMock)
	r := newTestRouter(svc, 0, http.MethodGet, "/jobs/potential", func(h *JobHandler) gin.HandlerFunc { return h.GetPotentialJobs })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/potential", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "GetPotentialJobs", mock.Anything, mock.Anything)
}

func TestJobHandler_AcceptJob(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*bookingServiceMock)
		expectedStatus int
	}{
		{
			name: "accepted",
			body: `{"job_id":5}`,
			setupMock: func(m *bookingServiceMock) {
				m.On("Accept", mock.Anything, testActor, int64(5)).Return(domain.Success("Booking accepted"), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing job id",
			body:           `{}`,
			setupMock:      func(m *bookingServiceMock) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "job does not exist",
			body: `{"job_id":99}`,
			setupMock: func(m *bookingServiceMock) {
				m.On("Accept", mock.Anything, testActor, int64(99)).Return(domain.Result{}, domain.JobNotFound(99))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(bookingServiceMock)
			tt.setupMock(svc)
			r := newTestRouter(svc, testActor, http.MethodPost, "/jobs/accept", func(h *JobHandler) gin.HandlerFunc { return h.AcceptJob })

			req := httptest.NewRequest(http.MethodPost, "/jobs/accept", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestJobHandler_OperationsByID(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		method  string
		handler func(*JobHandler) gin.HandlerFunc
	}{
		{name: "AcceptByID", path: "/jobs/:id/accept", method: http.MethodPost, handler: func(h *JobHandler) gin.HandlerFunc { return h.AcceptJobByID }},
		{name: "Cancel", path: "/jobs/:id/cancel", method: http.MethodPost, handler: func(h *JobHandler) gin.HandlerFunc { return h.CancelJob }},
		{name: "End", path: "/jobs/:id/end", method: http.MethodPost, handler: func(h *JobHandler) gin.HandlerFunc { return h.EndJob }},
		{name: "CustomerNotCall", path: "/jobs/:id/customer-not-call", method: http.MethodPost, handler: func(h *JobHandler) gin.HandlerFunc { return h.CustomerNotCall }},
		{name: "Reopen", path: "/jobs/:id/reopen", method: http.MethodPost, handler: func(h *JobHandler) gin.HandlerFunc { return h.ReopenJob }},
		{name: "GetJob", path: "/jobs/:id", method: http.MethodGet, handler: func(h *JobHandler) gin.HandlerFunc { return h.GetJob }},
		{name: "ResendNotifications", path: "/admin/jobs/:id/resend-notifications", method: http.MethodPost, handler: func(h *JobHandler) gin.HandlerFunc { return h.ResendNotifications }},
		{name: "ResendSMSNotifications", path: "/admin/jobs/:id/resend-sms", method: http.MethodPost, handler: func(h *JobHandler) gin.HandlerFunc { return h.ResendSMSNotifications }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(bookingServiceMock)
			svc.On(tt.name, mock.Anything, testActor, int64(7)).Return(domain.Result{Status: domain.ResultSuccess, ID: 7}, nil)
			r := newTestRouter(svc, testActor, tt.method, tt.path, tt.handler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, pathWithID(tt.path, "7"), nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, int64(7), decodeResult(t, w).ID)
			svc.AssertExpectations(t)

			w = httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, pathWithID(tt.path, "abc"), nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "id", decodeResult(t, w).FieldName)
		})
	}
}

func pathWithID(pattern, id string) string {
	return string(bytes.Replace([]byte(pattern), []byte(":id"), []byte(id), 1))
}

func TestJobHandler_UpdateJob(t *testing.T) {
	t.Run("maps the edit", func(t *testing.T) {
		svc := new(bookingServiceMock)
		svc.On("AdminUpdate", mock.Anything, testActor, int64(3), mock.MatchedBy(func(in lifecycle.AdminUpdate) bool {
			return in.Status != nil && *in.Status == domain.StatusCompleted &&
				in.TranslatorEmail == "tolk@example.com" &&
				in.AdminComments != nil && *in.AdminComments == "moved" &&
				in.Due != nil && in.Due.Equal(time.Date(2030, 3, 6, 9, 30, 0, 0, time.UTC))
		})).Return(domain.Success("Updated"), nil)
		r := newTestRouter(svc, testActor, http.MethodPut, "/jobs/:id", func(h *JobHandler) gin.HandlerFunc { return h.UpdateJob })

		body := `{"status":"completed","translator_email":"tolk@example.com","admin_comments":"moved","due":"2030-03-06T09:30:00Z"}`
		req := httptest.NewRequest(http.MethodPut, "/jobs/3", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		svc := new(bookingServiceMock)
		r := newTestRouter(svc, testActor, http.MethodPut, "/jobs/:id", func(h *JobHandler) gin.HandlerFunc { return h.UpdateJob })

		req := httptest.NewRequest(http.MethodPut, "/jobs/3", bytes.NewReader([]byte(`{"status":"lost"}`)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "status", decodeResult(t, w).FieldName)
		svc.AssertNotCalled(t, "AdminUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestJobHandler_StoreJobEmail(t *testing.T) {
	svc := new(bookingServiceMock)
	svc.On("StoreJobEmail", mock.Anything, testActor, int64(4), lifecycle.ContactUpdate{
		UserEmail: "kund@example.com",
		Reference: "REF-1",
	}).Return(domain.Success(""), nil)
	r := newTestRouter(svc, testActor, http.MethodPost, "/jobs/:id/email", func(h *JobHandler) gin.HandlerFunc { return h.StoreJobEmail })

	req := httptest.NewRequest(http.MethodPost, "/jobs/4/email", bytes.NewReader([]byte(`{"user_email":"kund@example.com","reference":"REF-1"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestJobHandler_ListJobs(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		check          func(t *testing.T, f domain.JobFilter)
		expectedStatus int
	}{
		{
			name:  "full filter",
			query: "?id=1&id=2&status=pending&status=assigned&job_type=paid&filter_timetype=due&from=2030-01-01&to=2030-01-31&physical=yes&flagged=no&feedback=true&page=2&customer_email=a@example.com",
			check: func(t *testing.T, f domain.JobFilter) {
				assert.Equal(t, []int64{1, 2}, f.IDs)
				assert.Equal(t, []domain.JobStatus{domain.StatusPending, domain.StatusAssigned}, f.Statuses)
				assert.Equal(t, []domain.JobType{domain.JobTypePaid}, f.JobTypes)
				assert.Equal(t, domain.TimeTypeDue, f.TimeType)
				require.NotNil(t, f.From)
				require.NotNil(t, f.To)
				assert.Equal(t, time.Date(2030, 1, 31, 0, 0, 0, 0, time.UTC), *f.To)
				require.NotNil(t, f.Physical)
				assert.True(t, *f.Physical)
				require.NotNil(t, f.Flagged)
				assert.False(t, *f.Flagged)
				assert.Nil(t, f.Phone)
				assert.True(t, f.LowFeedback)
				assert.Equal(t, 2, f.Page)
				assert.Equal(t, []string{"a@example.com"}, f.CustomerEmails)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "range ignored without time type",
			query: "?from=2030-01-01",
			check: func(t *testing.T, f domain.JobFilter) {
				assert.Nil(t, f.From)
				assert.Empty(t, f.TimeType)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown status",
			query:          "?status=lost",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad date",
			query:          "?filter_timetype=created&from=01/02/2030",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad time type",
			query:          "?filter_timetype=updated",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad yes/no",
			query:          "?phone=sometimes",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(bookingServiceMock)
			var got domain.JobFilter
			if tt.check != nil {
				svc.On("ListJobs", mock.Anything, testActor, mock.Anything).
					Run(func(args mock.Arguments) { got = args.Get(2).(domain.JobFilter) }).
					Return(domain.Success(""), nil)
			}
			r := newTestRouter(svc, testActor, http.MethodGet, "/jobs", func(h *JobHandler) gin.HandlerFunc { return h.ListJobs })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.check != nil {
				tt.check(t, got)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestJobHandler_UserJobs(t *testing.T) {
	svc := new(bookingServiceMock)
	svc.On("UserJobs", mock.Anything, testActor).Return(domain.Success(""), nil)
	svc.On("UserJobsHistory", mock.Anything, testActor, 3).Return(domain.Success(""), nil)

	gin.SetMode(gin.TestMode)
	jh := NewJobHandler(&Dependencies{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Bookings: svc})
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ActorKey, testActor) })
	r.GET("/users/me/jobs", jh.UserJobs)
	r.GET("/users/me/jobs/history", jh.UserJobsHistory)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/me/jobs", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/me/jobs/history?page=3", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AssertExpectations(t)
}

func TestJobHandler_DegradedResultStillSucceeds(t *testing.T) {
	svc := new(bookingServiceMock)
	svc.On("Cancel", mock.Anything, testActor, int64(9)).Return(domain.Result{
		Status:   domain.ResultSuccess,
		ID:       9,
		Warnings: []string{"push to 3 failed"},
	}, nil)
	r := newTestRouter(svc, testActor, http.MethodPost, "/jobs/:id/cancel", func(h *JobHandler) gin.HandlerFunc { return h.CancelJob })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs/9/cancel", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, w)
	assert.True(t, res.Degraded())
	assert.Equal(t, []string{"push to 3 failed"}, res.Warnings)
}
