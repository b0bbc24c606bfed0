package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nulzo/inference-gateway/internal/core/domain"
)

// JobFilter narrows the administrative job listing.
type JobFilter struct {
	Status *domain.JobStatus
	UserID string
	Limit  int
}

// JobStore is the durable record of submitted jobs. It is the single source
// of truth for job state: every transition below is guarded by the state
// machine, implemented as a compare-and-swap on the current status. A
// transition attempted from a terminal state returns
// domain.ErrInvalidTransition, never a silent overwrite.
type JobStore interface {
	// Create persists a new job in state pending.
	Create(ctx context.Context, job *domain.Job) error

	// Get returns a job by id or domain.ErrJobNotFound.
	Get(ctx context.Context, id string) (*domain.Job, error)

	// List returns jobs newest first, narrowed by the filter.
	List(ctx context.Context, filter JobFilter) ([]domain.Job, error)

	// MarkProcessing moves pending -> processing and records startedAt.
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error

	// Complete moves processing -> completed with the result payload and
	// reconciled cost.
	Complete(ctx context.Context, id string, result json.RawMessage, actualCostCents int64, completedAt time.Time) error

	// Fail moves processing -> failed with the error message.
	Fail(ctx context.Context, id string, errMsg string, completedAt time.Time) error

	// Cancel moves pending or processing -> cancelled. First write wins:
	// a job that already reached a terminal state stays untouched.
	Cancel(ctx context.Context, id string, completedAt time.Time) error

	Close() error
}
