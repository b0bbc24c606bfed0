package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/inference-gateway/internal/gateway"
	"github.com/nulzo/inference-gateway/pkg/api"
)

type ModelHandler struct {
	service gateway.Service
}

func NewModelHandler(service gateway.Service) *ModelHandler {
	return &ModelHandler{service: service}
}

// ListModels flattens the registry into the client-facing model array.
func (h *ModelHandler) ListModels(c *gin.Context) {
	models := h.service.ListModels()

	out := make([]api.ModelSummary, 0, len(models))
	for _, m := range models {
		out = append(out, api.NewModelSummary(m))
	}

	c.JSON(http.StatusOK, api.ModelsResponse{
		Object: "list",
		Models: out,
	})
}
