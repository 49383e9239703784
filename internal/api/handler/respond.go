package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// ActorKey is the gin context key holding the authenticated user id.
const ActorKey = "actor_id"

// ActorID returns the authenticated user id set by the auth middleware.
func ActorID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

func (h *JobHandler) actor(c *gin.Context) (int64, bool) {
	id, ok := ActorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, domain.Fail("Unauthenticated"))
	}
	return id, ok
}

func (h *JobHandler) jobID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, domain.Result{Status: domain.ResultFail, Message: "id must be a positive integer", FieldName: "id"})
		return 0, false
	}
	return id, true
}

// respond writes an operation result. Business failures are part of the
// result; only missing entities and infrastructure errors change the status.
func (h *JobHandler) respond(c *gin.Context, op string, res domain.Result, err error) {
	switch {
	case err == nil:
		if res.Degraded() {
			h.logger.Warn("Notifications partly failed",
				slog.String("operation", op),
				slog.Int64("job_id", res.ID),
				slog.Any("warnings", res.Warnings),
			)
		}
		c.JSON(http.StatusOK, res)
	case domain.IsNotFound(err):
		var nf *domain.NotFoundError
		msg := err.Error()
		if errors.As(err, &nf) {
			msg = nf.Error()
		}
		c.JSON(http.StatusNotFound, domain.Fail(msg))
	default:
		h.logger.Error("Operation failed",
			slog.String("operation", op),
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err),
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, domain.Fail("Internal server error"))
	}
}
