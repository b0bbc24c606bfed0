package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/gateway"
	"github.com/nulzo/inference-gateway/internal/server/validator"
	"github.com/nulzo/inference-gateway/pkg/api"
)

type GenerateHandler struct {
	service gateway.Service
}

func NewGenerateHandler(service gateway.Service) *GenerateHandler {
	return &GenerateHandler{service: service}
}

// Generate accepts a text-generation job and responds immediately; the job
// runs asynchronously.
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req api.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationProblem(validator.Parse(err)))
		return
	}

	resp, err := h.service.SubmitText(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(submissionProblem(err, req.Model, req.Version))
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GenerateImage accepts an image-generation job.
func (h *GenerateHandler) GenerateImage(c *gin.Context) {
	var req api.ImageGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationProblem(validator.Parse(err)))
		return
	}

	resp, err := h.service.SubmitImage(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(submissionProblem(err, req.Model, req.Version))
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// submissionProblem maps submission-time failures onto the error taxonomy.
// Anything past enqueue never reaches here; it lands in the job record.
func submissionProblem(err error, model, version string) *domain.Problem {
	switch {
	case errors.Is(err, domain.ErrModelNotFound):
		if model == "" {
			model = "(default)"
		}
		if version == "" {
			version = "latest"
		}
		return domain.ModelNotFoundProblem(model, version)
	case errors.Is(err, domain.ErrQueueFull):
		return domain.QueueFullProblem()
	default:
		return domain.InternalProblem("Failed to accept job", err)
	}
}
