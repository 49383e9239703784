package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/interpreter-booking/internal/api/handler"
	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "booking-api",
		})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, domain.Fail("Route not found"))
	})

	jobHandler := handler.NewJobHandler(deps)

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(deps.JWTSecret))
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobHandler.CreateJob)
			jobs.GET("", jobHandler.ListJobs)
			jobs.POST("/accept", jobHandler.AcceptJob)
			jobs.GET("/potential", jobHandler.GetPotentialJobs)

			jobs.GET("/:id", jobHandler.GetJob)
			jobs.PUT("/:id", jobHandler.UpdateJob)
			jobs.POST("/:id/accept", jobHandler.AcceptJobByID)
			jobs.POST("/:id/cancel", jobHandler.CancelJob)
			jobs.POST("/:id/end", jobHandler.EndJob)
			jobs.POST("/:id/customer-not-call", jobHandler.CustomerNotCall)
			jobs.POST("/:id/reopen", jobHandler.ReopenJob)
			jobs.POST("/:id/email", jobHandler.StoreJobEmail)
		}

		me := v1.Group("/users/me")
		{
			me.GET("/jobs", jobHandler.UserJobs)
			me.GET("/jobs/history", jobHandler.UserJobsHistory)
		}

		admin := v1.Group("/admin/jobs")
		{
			admin.POST("/:id/resend-notifications", jobHandler.ResendNotifications)
			admin.POST("/:id/resend-sms", jobHandler.ResendSMSNotifications)
		}
	}

	return r
}
