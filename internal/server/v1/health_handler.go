package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/inference-gateway/internal/gateway"
)

type HealthHandler struct {
	service gateway.Service
}

func NewHealthHandler(service gateway.Service) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health reports aggregate model health and current queue depth.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Health())
}
