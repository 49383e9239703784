package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/lifecycle"
	"github.com/cuongbtq/interpreter-booking/internal/booking/service"
)

// BookingService is the booking API the handlers call.
type BookingService interface {
	Create(ctx context.Context, actorID int64, in service.CreateInput) (domain.Result, error)
	Accept(ctx context.Context, actorID, jobID int64) (domain.Result, error)
	AcceptByID(ctx context.Context, actorID, jobID int64) (domain.Result, error)
	Cancel(ctx context.Context, actorID, jobID int64) (domain.Result, error)
	End(ctx context.Context, actorID, jobID int64) (domain.Result, error)
	CustomerNotCall(ctx context.Context, actorID, jobID int64) (domain.Result, error)
	Reopen(ctx context.Context, actorID, jobID int64) (domain.Result, error)
	AdminUpdate(ctx context.Context, actorID, jobID int64, in lifecycle.AdminUpdate) (domain.Result, error)
	StoreJobEmail(ctx context.Context, actorID, jobID int64, in lifecycle.ContactUpdate) (domain.Result, error)
	ListJobs(ctx context.Context, actorID int64, filter domain.JobFilter) (domain.Result, error)
	GetPotentialJobs(ctx context.Context, actorID int64) (domain.Result, error)
	GetJob(ctx context.Context, actorID, jobID int64) (domain.Result, error)
	UserJobs(ctx context.Context, actorID int64) (domain.Result, error)
	UserJobsHistory(ctx context.Context, actorID int64, page int) (domain.Result, error)
	ResendNotifications(ctx context.Context, actorID, jobID int64) (domain.Result, error)
	ResendSMSNotifications(ctx context.Context, actorID, jobID int64) (domain.Result, error)
}

var _ BookingService = (*service.BookingService)(nil)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *slog.Logger
	Bookings BookingService
	// Location interprets the dates of listing filters.
	Location *time.Location
	// JWTSecret signs the bearer tokens AuthMiddleware accepts.
	JWTSecret string
}

// JobHandler handles booking HTTP requests
type JobHandler struct {
	logger   *slog.Logger
	bookings BookingService
	location *time.Location
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &JobHandler{
		logger:   deps.Logger,
		bookings: deps.Bookings,
		location: loc,
	}
}
