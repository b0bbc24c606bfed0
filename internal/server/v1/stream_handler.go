package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/gateway"
	"github.com/nulzo/inference-gateway/pkg/api"
)

// streamInterval is the poll cadence against the job store. Streamers are
// read-only observers; they never mutate job state.
const streamInterval = 100 * time.Millisecond

type StreamHandler struct {
	service  gateway.Service
	interval time.Duration
}

func NewStreamHandler(service gateway.Service) *StreamHandler {
	return &StreamHandler{service: service, interval: streamInterval}
}

// Stream pushes job snapshots as server-sent events until the job reaches
// a terminal state. An unknown job gets a single error event before the
// stream closes.
func (h *StreamHandler) Stream(c *gin.Context) {
	id := c.Param("id")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	// The first snapshot goes out immediately so terminal jobs resolve in
	// one round trip; subsequent snapshots follow the ticker.
	first := true

	c.Stream(func(w io.Writer) bool {
		if first {
			first = false
		} else {
			select {
			case <-c.Request.Context().Done():
				return false
			case <-ticker.C:
			}
		}

		job, err := h.service.GetJob(c.Request.Context(), id)
		if err != nil {
			msg := "job not found"
			if !errors.Is(err, domain.ErrJobNotFound) {
				msg = "failed to load job"
			}
			writeEvent(w, api.StreamEvent{Error: &msg})
			return false
		}

		writeEvent(w, api.StreamEvent{
			Status:          job.Status,
			Result:          job.Result,
			Error:           job.Error,
			ActualCostCents: job.ActualCostCents,
		})

		return !job.Status.Terminal()
	})
}

func writeEvent(w io.Writer, event api.StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
