package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/interpreter-booking/internal/api/dto"
	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/lifecycle"
	"github.com/cuongbtq/interpreter-booking/internal/booking/service"
)

type jobOperation func(c *gin.Context, actorID, jobID int64) (domain.Result, error)

// byID wraps the operations addressed by /jobs/:id.
func (h *JobHandler) byID(op string, fn jobOperation) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := h.actor(c)
		if !ok {
			return
		}
		jobID, ok := h.jobID(c)
		if !ok {
			return
		}

		h.logger.Debug("Job operation",
			slog.String("operation", op),
			slog.Int64("actor_id", actorID),
			slog.Int64("job_id", jobID),
		)

		res, err := fn(c, actorID, jobID)
		if c.Writer.Written() {
			// fn already rejected the request body.
			return
		}
		h.respond(c, op, res, err)
	}
}

// CreateJob handles POST /api/v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.CreateJobRequest
	if !Bind(c, &req) {
		return
	}

	in := service.CreateInput{
		FromLanguageID:       req.FromLanguageID,
		Immediate:            bool(req.Immediate),
		DueDate:              req.DueDate,
		DueTime:              req.DueTime,
		CustomerPhoneType:    bool(req.CustomerPhoneType),
		CustomerPhysicalType: bool(req.CustomerPhysicalType),
		Duration:             req.Duration,
		JobFor:               req.JobFor,
		Town:                 req.Town,
		Address:              req.Address,
		Instructions:         req.Instructions,
		Reference:            req.Reference,
		UserEmail:            req.UserEmail,
		SpecificTranslatorID: req.SpecificTranslatorID,
	}

	res, err := h.bookings.Create(c.Request.Context(), actorID, in)
	h.respond(c, "create", res, err)
}

// AcceptJob handles POST /api/v1/jobs/accept with the job id in the body
func (h *JobHandler) AcceptJob(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.AcceptJobRequest
	if !Bind(c, &req) {
		return
	}

	res, err := h.bookings.Accept(c.Request.Context(), actorID, req.JobID)
	h.respond(c, "accept", res, err)
}

// AcceptJobByID handles POST /api/v1/jobs/:id/accept
func (h *JobHandler) AcceptJobByID(c *gin.Context) {
	h.byID("accept_by_id", func(c *gin.Context, actorID, jobID int64) (domain.Result, error) {
		return h.bookings.AcceptByID(c.Request.Context(), actorID, jobID)
	})(c)
}

// CancelJob handles POST /api/v1/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	h.byID("cancel", func(c *gin.Context, actorID, jobID int64) (domain.Result, error) {
		return h.bookings.Cancel(c.Request.Context(), actorID, jobID)
	})(c)
}

// EndJob handles POST /api/v1/jobs/:id/end
func (h *JobHandler) EndJob(c *gin.Context) {
	h.byID("end", func(c *gin.Context, actorID, jobID int64) (domain.Result, error) {
		return h.bookings.End(c.Request.Context(), actorID, jobID)
	})(c)
}

// CustomerNotCall handles POST /api/v1/jobs/:id/customer-not-call
func (h *JobHandler) CustomerNotCall(c *gin.Context) {
	h.byID("customer_not_call", func(c *gin.Context, actorID, jobID int64) (domain.Result, error) {
		return h.bookings.CustomerNotCall(c.Request.Context(), actorID, jobID)
	})(c)
}

// ReopenJob handles POST /api/v1/jobs/:id/reopen
func (h *JobHandler) ReopenJob(c *gin.Context) {
	h.byID("reopen", func(c *gin.Context, actorID, jobID int64) (domain.Result, error) {
		return h.bookings.Reopen(c.Request.Context(), actorID, jobID)
	})(c)
}

// UpdateJob handles PUT /api/v1/jobs/:id
func (h *JobHandler) UpdateJob(c *gin.Context) {
	h.byID("admin_update", func(c *gin.Context, actorID, jobID int64) (domain.Result, error) {
		var req dto.AdminUpdateRequest
		if !Bind(c, &req) {
			return domain.Result{}, nil
		}

		in := lifecycle.AdminUpdate{
			Due:             req.Due,
			TranslatorID:    req.TranslatorID,
			TranslatorEmail: strings.TrimSpace(req.TranslatorEmail),
			FromLanguageID:  req.FromLanguageID,
			AdminComments:   req.AdminComments,
			SessionTime:     req.SessionTime,
			Reference:       req.Reference,
		}
		if req.Status != nil {
			st := domain.JobStatus(*req.Status)
			in.Status = &st
		}
		return h.bookings.AdminUpdate(c.Request.Context(), actorID, jobID, in)
	})(c)
}

// StoreJobEmail handles POST /api/v1/jobs/:id/email
func (h *JobHandler) StoreJobEmail(c *gin.Context) {
	h.byID("store_job_email", func(c *gin.Context, actorID, jobID int64) (domain.Result, error) {
		var req dto.JobEmailRequest
		if !Bind(c, &req) {
			return domain.Result{}, nil
		}

		in := lifecycle.ContactUpdate{
			UserEmail:    req.UserEmail,
			Reference:    req.Reference,
			Address:      req.Address,
			Instructions: req.Instructions,
			Town:         req.Town,
		}
		return h.bookings.StoreJobEmail(c.Request.Context(), actorID, jobID, in)
	})(c)
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	h.byID("get", func(c *gin.Context, actorID, jobID int64) (domain.Result, error) {
		return h.bookings.GetJob(c.Request.Context(), actorID, jobID)
	})(c)
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.ListJobsRequest
	if !BindQuery(c, &req) {
		return
	}

	filter, err := toJobFilter(req, h.location)
	if err != nil {
		h.logger.Debug("Invalid listing filter", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, domain.Fail(err.Error()))
		return
	}

	res, err := h.bookings.ListJobs(c.Request.Context(), actorID, filter)
	h.respond(c, "list", res, err)
}

// GetPotentialJobs handles GET /api/v1/jobs/potential
func (h *JobHandler) GetPotentialJobs(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	res, err := h.bookings.GetPotentialJobs(c.Request.Context(), actorID)
	h.respond(c, "potential", res, err)
}

// UserJobs handles GET /api/v1/users/me/jobs
func (h *JobHandler) UserJobs(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	res, err := h.bookings.UserJobs(c.Request.Context(), actorID)
	h.respond(c, "user_jobs", res, err)
}

// UserJobsHistory handles GET /api/v1/users/me/jobs/history
func (h *JobHandler) UserJobsHistory(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.HistoryRequest
	if !BindQuery(c, &req) {
		return
	}

	res, err := h.bookings.UserJobsHistory(c.Request.Context(), actorID, req.Page)
	h.respond(c, "user_jobs_history", res, err)
}

// ResendNotifications handles POST /api/v1/admin/jobs/:id/resend-notifications
func (h *JobHandler) ResendNotifications(c *gin.Context) {
	h.byID("resend_notifications", func(c *gin.Context, actorID, jobID int64) (domain.Result, error) {
		return h.bookings.ResendNotifications(c.Request.Context(), actorID, jobID)
	})(c)
}

// ResendSMSNotifications handles POST /api/v1/admin/jobs/:id/resend-sms
func (h *JobHandler) ResendSMSNotifications(c *gin.Context) {
	h.byID("resend_sms", func(c *gin.Context, actorID, jobID int64) (domain.Result, error) {
		return h.bookings.ResendSMSNotifications(c.Request.Context(), actorID, jobID)
	})(c)
}
