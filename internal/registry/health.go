package registry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nulzo/inference-gateway/internal/core/domain"
	"go.uber.org/zap"
)

// HealthChecker sweeps every registered model on a timer, probing
// {endpoint}/health with a bounded timeout. Probe failures only update the
// model's health status; they never surface as request errors and never
// block job submission.
type HealthChecker struct {
	registry *Registry
	client   *http.Client
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewHealthChecker(registry *Registry, interval, timeout time.Duration, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		registry: registry,
		client:   &http.Client{Timeout: timeout},
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once immediately and then on
// every interval tick.
func (h *HealthChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.CheckAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.CheckAll(ctx)
		}
	}
}

// CheckAll probes every registered model version once.
func (h *HealthChecker) CheckAll(ctx context.Context) {
	for _, m := range h.registry.List() {
		status := h.probe(ctx, m.Endpoint)
		h.registry.SetHealth(m.Name, m.Version, status, time.Now().UTC())

		if status != domain.HealthHealthy {
			h.logger.Warn("model health probe degraded",
				zap.String("model", m.ID()),
				zap.String("endpoint", m.Endpoint),
				zap.String("status", string(status)),
			)
		}
	}
}

func (h *HealthChecker) probe(ctx context.Context, endpoint string) domain.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", endpoint), nil)
	if err != nil {
		return domain.HealthUnhealthy
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return domain.HealthUnhealthy
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return domain.HealthHealthy
	}
	return domain.HealthDegraded
}
