package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"treasury/internal/logger"
	"treasury/internal/services"
)

// JobHandler exposes batch jobs to an external trigger (cron, CI, operator).
type JobHandler struct {
	recurringJob services.RecurringJobServicer
	now          func() time.Time
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(recurringJob services.RecurringJobServicer) *JobHandler {
	return &JobHandler{recurringJob: recurringJob, now: time.Now}
}

// RunRecurringGeneration runs one recurring generation pass
// @Summary     Run recurring generation
// @Description Materializes every due recurring template once. Per-template failures are reported in the result and do not fail the call.
// @Tags        jobs
// @Produce     json
// @Security    JobKeyAuth
// @Success     200 {object} services.JobResult "Run summary"
// @Failure     401 {object} ErrorResponse "Invalid or missing API key"
// @Failure     409 {object} ErrorResponse "Job already running"
// @Failure     500 {object} ErrorResponse "Server error"
// @Failure     503 {object} ErrorResponse "Job trigger not configured"
// @Router      /jobs/recurring-generation [post]
func (h *JobHandler) RunRecurringGeneration(c *gin.Context) {
	result, err := h.recurringJob.Run(c.Request.Context(), h.now())
	if err != nil {
		if result != nil {
			logger.Named("recurring").Warnw("recurring generation stopped early",
				"generated", result.Generated,
				"error", err,
			)
		}
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
