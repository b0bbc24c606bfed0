package api

import (
	"encoding/json"
	"time"

	"github.com/nulzo/inference-gateway/internal/core/domain"
)

// GenerateResponse is the immediate reply to a submission. The job itself
// runs asynchronously; poll the job endpoint or follow StreamURL.
type GenerateResponse struct {
	JobID              string  `json:"job_id"`
	Status             string  `json:"status"`
	EstimatedCostCents int64   `json:"estimated_cost_cents"`
	StreamURL          *string `json:"stream_url,omitempty"`
}

// JobResponse is the full job snapshot.
type JobResponse struct {
	JobID              string           `json:"job_id"`
	UserID             string           `json:"user_id"`
	Status             domain.JobStatus `json:"status"`
	Model              string           `json:"model"`
	Version            string           `json:"version"`
	Priority           string           `json:"priority"`
	CreatedAt          time.Time        `json:"created_at"`
	StartedAt          *time.Time       `json:"started_at,omitempty"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	EstimatedCostCents int64            `json:"estimated_cost_cents"`
	ActualCostCents    *int64           `json:"actual_cost_cents,omitempty"`
	Result             json.RawMessage  `json:"result,omitempty"`
	Error              *string          `json:"error,omitempty"`
}

// NewJobResponse maps a domain job to its client-facing shape.
func NewJobResponse(job *domain.Job) JobResponse {
	return JobResponse{
		JobID:              job.ID,
		UserID:             job.UserID,
		Status:             job.Status,
		Model:              job.ModelName,
		Version:            job.ModelVersion,
		Priority:           job.Priority.String(),
		CreatedAt:          job.CreatedAt,
		StartedAt:          job.StartedAt,
		CompletedAt:        job.CompletedAt,
		EstimatedCostCents: job.EstimatedCostCents,
		ActualCostCents:    job.ActualCostCents,
		Result:             job.Result,
		Error:              job.Error,
	}
}

// StreamEvent is one server-sent snapshot of a streaming job.
type StreamEvent struct {
	Status          domain.JobStatus `json:"status,omitempty"`
	Result          json.RawMessage  `json:"result,omitempty"`
	Error           *string          `json:"error,omitempty"`
	ActualCostCents *int64           `json:"actual_cost_cents,omitempty"`
}

// ModelSummary is one registered model version in the public listing.
type ModelSummary struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Version         string              `json:"version"`
	Object          string              `json:"object"`
	ModelType       domain.ModelType    `json:"model_type"`
	UnitType        domain.UnitType     `json:"unit_type"`
	CostPerUnit     float64             `json:"cost_per_unit"`
	MaxTokens       int                 `json:"max_tokens,omitempty"`
	GPURequired     bool                `json:"gpu_required"`
	HealthStatus    domain.HealthStatus `json:"health_status"`
	LastHealthCheck time.Time           `json:"last_health_check"`
	Endpoint        string              `json:"endpoint"`
}

// NewModelSummary flattens a registry entry for listing.
func NewModelSummary(m domain.ModelInfo) ModelSummary {
	return ModelSummary{
		ID:              m.ID(),
		Name:            m.Name,
		Version:         m.Version,
		Object:          "model",
		ModelType:       m.ModelType,
		UnitType:        m.UnitType,
		CostPerUnit:     m.CostPerUnit,
		MaxTokens:       m.MaxTokens,
		GPURequired:     m.GPURequired,
		HealthStatus:    m.HealthStatus,
		LastHealthCheck: m.LastHealthCheck,
		Endpoint:        m.Endpoint,
	}
}

// ModelsResponse is the flattened registry listing.
type ModelsResponse struct {
	Object string         `json:"object"`
	Models []ModelSummary `json:"models"`
}

// HealthResponse aggregates model health counts and queue depth.
type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Models    ModelsHealth `json:"models"`
	Queue     QueueHealth  `json:"queue"`
}

type ModelsHealth struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
	Unknown   int `json:"unknown"`
}

type QueueHealth struct {
	Depth    int `json:"depth"`
	Capacity int `json:"capacity"`
}
