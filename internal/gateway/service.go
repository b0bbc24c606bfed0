// Package gateway orchestrates job submission: resolve a model, estimate
// the cost, persist the job, enqueue it, and hand back an immediate
// response. Everything after enqueue belongs to the dispatcher.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/inference-gateway/internal/billing"
	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/queue"
	"github.com/nulzo/inference-gateway/internal/registry"
	"github.com/nulzo/inference-gateway/internal/store"
	"github.com/nulzo/inference-gateway/pkg/api"
	"go.uber.org/zap"
)

const (
	defaultTextModel  = "qwen-3-72b"
	defaultImageModel = "sdxl"

	streamPathFormat = "/v1/stream/%s"
)

// Canceller aborts the backend call of an in-flight job.
type Canceller interface {
	CancelInFlight(jobID string) bool
}

// Service is the orchestration surface the HTTP handlers talk to.
type Service interface {
	SubmitText(ctx context.Context, req *api.GenerateRequest) (*api.GenerateResponse, error)
	SubmitImage(ctx context.Context, req *api.ImageGenerateRequest) (*api.GenerateResponse, error)
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]domain.Job, error)
	CancelJob(ctx context.Context, id string) (*domain.Job, error)
	ListModels() []domain.ModelInfo
	Health() api.HealthResponse
}

type service struct {
	logger     *zap.Logger
	store      store.JobStore
	registry   *registry.Registry
	queue      *queue.Queue
	dispatcher Canceller
}

func NewService(logger *zap.Logger, s store.JobStore, r *registry.Registry, q *queue.Queue, d Canceller) Service {
	return &service{
		logger:     logger,
		store:      s,
		registry:   r,
		queue:      q,
		dispatcher: d,
	}
}

func (s *service) SubmitText(ctx context.Context, req *api.GenerateRequest) (*api.GenerateResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = defaultTextModel
	}
	version := req.Version
	if version == "" {
		version = "latest"
	}

	input, err := json.Marshal(api.GenerateInput{
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		TopK:        req.TopK,
		Stop:        req.Stop,
	})
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}

	return s.submit(ctx, req.UserID, modelName, version, input, domain.ParsePriority(req.Priority), req.Stream)
}

func (s *service) SubmitImage(ctx context.Context, req *api.ImageGenerateRequest) (*api.GenerateResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = defaultImageModel
	}
	version := req.Version
	if version == "" {
		version = "latest"
	}

	width, height := req.Width, req.Height
	if width == 0 {
		width = 1024
	}
	if height == 0 {
		height = 1024
	}
	steps := req.Steps
	if steps == 0 {
		steps = 20
	}
	guidance := 7.5
	if req.GuidanceScale != nil {
		guidance = *req.GuidanceScale
	}

	input, err := json.Marshal(api.ImageInput{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          width,
		Height:         height,
		Steps:          steps,
		GuidanceScale:  guidance,
	})
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}

	return s.submit(ctx, req.UserID, modelName, version, input, domain.ParsePriority(req.Priority), false)
}

// submit is fire-and-record: the job row is durable before the response
// goes out, and nothing after enqueue can fail the HTTP call.
func (s *service) submit(ctx context.Context, userID, modelName, version string, input json.RawMessage, priority domain.JobPriority, stream bool) (*api.GenerateResponse, error) {
	model, err := s.registry.Resolve(modelName, version)
	if err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:                 uuid.NewString(),
		UserID:             userID,
		ModelName:          model.Name,
		ModelVersion:       version,
		Input:              input,
		Status:             domain.StatusPending,
		Priority:           priority,
		CreatedAt:          time.Now().UTC(),
		EstimatedCostCents: billing.Estimate(model, input),
	}

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}

	if err := s.queue.Enqueue(job.ID, job.Priority); err != nil {
		// The durable record must not stay pending when admission failed;
		// cancel it so pollers see a terminal state.
		if cancelErr := s.store.Cancel(ctx, job.ID, time.Now().UTC()); cancelErr != nil {
			s.logger.Error("failed to cancel unadmitted job",
				zap.String("job_id", job.ID), zap.Error(cancelErr))
		}
		return nil, err
	}

	s.logger.Info("job accepted",
		zap.String("job_id", job.ID),
		zap.String("model", model.ID()),
		zap.String("priority", priority.String()),
		zap.Int64("estimated_cost_cents", job.EstimatedCostCents),
	)

	resp := &api.GenerateResponse{
		JobID:              job.ID,
		Status:             string(domain.StatusPending),
		EstimatedCostCents: job.EstimatedCostCents,
	}
	if stream {
		url := fmt.Sprintf(streamPathFormat, job.ID)
		resp.StreamURL = &url
	}
	return resp, nil
}

func (s *service) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return s.store.Get(ctx, id)
}

func (s *service) ListJobs(ctx context.Context, filter store.JobFilter) ([]domain.Job, error) {
	return s.store.List(ctx, filter)
}

// CancelJob transitions a job to cancelled. Pending jobs are also pulled
// out of the queue; processing jobs get a best-effort abort of the backend
// call. The store transition is first-write-wins, so a job that finished
// in the meantime stays finished.
func (s *service) CancelJob(ctx context.Context, id string) (*domain.Job, error) {
	if err := s.store.Cancel(ctx, id, time.Now().UTC()); err != nil {
		return nil, err
	}

	if !s.queue.Remove(id) {
		if s.dispatcher != nil && s.dispatcher.CancelInFlight(id) {
			s.logger.Info("aborted in-flight job", zap.String("job_id", id))
		}
	}

	return s.store.Get(ctx, id)
}

func (s *service) ListModels() []domain.ModelInfo {
	return s.registry.List()
}

func (s *service) Health() api.HealthResponse {
	summary := s.registry.HealthSummary()
	return api.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Models: api.ModelsHealth{
			Total:     summary.Total,
			Healthy:   summary.Healthy,
			Degraded:  summary.Degraded,
			Unhealthy: summary.Unhealthy,
			Unknown:   summary.Unknown,
		},
		Queue: api.QueueHealth{
			Depth:    s.queue.Len(),
			Capacity: s.queue.Cap(),
		},
	}
}

// IsNotFound reports whether err is a missing model or job.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrModelNotFound) || errors.Is(err, domain.ErrJobNotFound)
}
