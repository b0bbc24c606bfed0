package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/gateway"
	"github.com/nulzo/inference-gateway/internal/store"
	"github.com/nulzo/inference-gateway/pkg/api"
)

type JobHandler struct {
	service gateway.Service
}

func NewJobHandler(service gateway.Service) *JobHandler {
	return &JobHandler{service: service}
}

// GetJob returns the full job snapshot.
func (h *JobHandler) GetJob(c *gin.Context) {
	id := c.Param("id")

	job, err := h.service.GetJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			_ = c.Error(domain.JobNotFoundProblem(id))
			return
		}
		_ = c.Error(domain.InternalProblem("Failed to load job", err))
		return
	}

	c.JSON(http.StatusOK, api.NewJobResponse(job))
}

// ListJobs is the administrative listing, filterable by status and user.
func (h *JobHandler) ListJobs(c *gin.Context) {
	filter := store.JobFilter{
		UserID: c.Query("user_id"),
	}

	if raw := c.Query("status"); raw != "" {
		status := domain.JobStatus(raw)
		if !status.Valid() {
			_ = c.Error(domain.BadRequestProblem("unknown status filter: " + raw))
			return
		}
		filter.Status = &status
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			_ = c.Error(domain.BadRequestProblem("limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	jobs, err := h.service.ListJobs(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(domain.InternalProblem("Failed to list jobs", err))
		return
	}

	out := make([]api.JobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, api.NewJobResponse(&jobs[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"jobs":   out,
	})
}

// CancelJob cancels a pending or processing job. Cancelling a job that
// already reached a terminal state is a conflict, never an overwrite.
func (h *JobHandler) CancelJob(c *gin.Context) {
	id := c.Param("id")

	job, err := h.service.CancelJob(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			_ = c.Error(domain.JobNotFoundProblem(id))
		case errors.Is(err, domain.ErrInvalidTransition):
			_ = c.Error(domain.ConflictProblem("job already reached a terminal state"))
		default:
			_ = c.Error(domain.InternalProblem("Failed to cancel job", err))
		}
		return
	}

	c.JSON(http.StatusOK, api.NewJobResponse(job))
}
