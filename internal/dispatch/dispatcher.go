// Package dispatch runs queued jobs against their backend models. The
// Dispatcher is the single consumer of the queue and the only writer of a
// job's status while it is in flight, so exactly one dispatch path exists
// per job.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nulzo/inference-gateway/internal/backend"
	"github.com/nulzo/inference-gateway/internal/billing"
	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/queue"
	"github.com/nulzo/inference-gateway/internal/registry"
	"github.com/nulzo/inference-gateway/internal/store"
	"go.uber.org/zap"
)

type Dispatcher struct {
	queue    *queue.Queue
	store    store.JobStore
	registry *registry.Registry
	invoker  backend.Invoker
	workers  int
	timeout  time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc

	wg sync.WaitGroup
}

func New(q *queue.Queue, s store.JobStore, r *registry.Registry, inv backend.Invoker, workers int, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		queue:    q,
		store:    s,
		registry: r,
		invoker:  inv,
		workers:  workers,
		timeout:  timeout,
		logger:   logger,
		inflight: make(map[string]context.CancelFunc),
	}
}

// Start launches the worker pool. Each worker pulls the highest-priority
// ready job; jobs run concurrently across workers but each job is processed
// by exactly one worker.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(worker int) {
			defer d.wg.Done()
			d.run(ctx, worker)
		}(i)
	}
	d.logger.Info("dispatcher started", zap.Int("workers", d.workers), zap.Duration("job_timeout", d.timeout))
}

// Stop waits for every worker to drain. Close the queue and cancel the
// Start context first.
func (d *Dispatcher) Stop() {
	d.wg.Wait()
}

// CancelInFlight aborts the backend call of a processing job, if one is
// running. The store transition is the caller's responsibility; first
// write wins there.
func (d *Dispatcher) CancelInFlight(jobID string) bool {
	d.mu.Lock()
	cancel, ok := d.inflight[jobID]
	d.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

func (d *Dispatcher) run(ctx context.Context, worker int) {
	for {
		jobID, err := d.queue.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrQueueClosed) && !errors.Is(err, context.Canceled) {
				d.logger.Error("dequeue failed", zap.Error(err))
			}
			return
		}
		d.process(ctx, jobID, worker)
	}
}

func (d *Dispatcher) process(ctx context.Context, jobID string, worker int) {
	// Store writes must land even when ctx dies mid-job (shutdown aborts
	// the backend call); otherwise the job is stranded in processing with
	// no owner left to finish it.
	storeCtx := context.WithoutCancel(ctx)

	now := time.Now().UTC()
	if err := d.store.MarkProcessing(storeCtx, jobID, now); err != nil {
		// A job cancelled between enqueue and dequeue loses the CAS here;
		// that is the intended outcome, not a defect.
		if errors.Is(err, domain.ErrInvalidTransition) {
			d.logger.Debug("job no longer pending, skipping", zap.String("job_id", jobID))
		} else {
			d.logger.Error("failed to start job", zap.String("job_id", jobID), zap.Error(err))
		}
		return
	}

	job, err := d.store.Get(storeCtx, jobID)
	if err != nil {
		d.logger.Error("failed to load job after start", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	model, err := d.registry.Resolve(job.ModelName, job.ModelVersion)
	if err != nil {
		d.fail(storeCtx, jobID, fmt.Sprintf("model %s:%s is no longer registered", job.ModelName, job.ModelVersion))
		return
	}

	switch model.ModelType {
	case domain.ModelTypeText, domain.ModelTypeImage:
	default:
		d.fail(storeCtx, jobID, fmt.Sprintf("%v: %s", domain.ErrUnsupportedModel, model.ModelType))
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, d.timeout)
	d.mu.Lock()
	d.inflight[jobID] = cancel
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.inflight, jobID)
		d.mu.Unlock()
		cancel()
	}()

	d.logger.Info("dispatching job",
		zap.String("job_id", jobID),
		zap.String("model", model.ID()),
		zap.String("priority", job.Priority.String()),
		zap.Int("worker", worker),
	)

	start := time.Now()
	result, callErr := d.invoker.Generate(jobCtx, model, job.Input)
	elapsed := time.Since(start)

	if callErr != nil {
		d.fail(storeCtx, jobID, describeFailure(jobCtx, callErr, d.timeout))
		return
	}

	actualCost := billing.Actual(model, result, elapsed)
	if err := d.store.Complete(storeCtx, jobID, result, actualCost, time.Now().UTC()); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Lost the race to an explicit cancellation; the cancel wins.
			d.logger.Info("job finished after cancellation", zap.String("job_id", jobID))
			return
		}
		d.logger.Error("failed to complete job", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	d.logger.Info("job completed",
		zap.String("job_id", jobID),
		zap.Duration("elapsed", elapsed),
		zap.Int64("actual_cost_cents", actualCost),
	)
}

func (d *Dispatcher) fail(ctx context.Context, jobID, msg string) {
	if err := d.store.Fail(ctx, jobID, msg, time.Now().UTC()); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			d.logger.Info("job failed after cancellation", zap.String("job_id", jobID))
			return
		}
		d.logger.Error("failed to record job failure", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	d.logger.Warn("job failed", zap.String("job_id", jobID), zap.String("reason", msg))
}

// describeFailure keeps the timeout case distinct from an explicit backend
// error so callers can tell them apart through the job record.
func describeFailure(jobCtx context.Context, err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("timeout: backend call exceeded %s deadline", timeout)
	}
	if errors.Is(err, context.Canceled) || errors.Is(jobCtx.Err(), context.Canceled) {
		return "cancelled: backend call aborted"
	}
	return fmt.Sprintf("backend error: %v", err)
}
