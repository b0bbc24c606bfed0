package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/store"
)

// JobStore implements store.JobStore on SQLite.
type JobStore struct {
	db *sqlx.DB
}

func NewJobStore(db *sqlx.DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) Close() error {
	return s.db.Close()
}

func (s *JobStore) Create(ctx context.Context, job *domain.Job) error {
	query := `
	INSERT INTO jobs (
		id, user_id, model_name, model_version, input_json, status, priority,
		created_at, estimated_cost_cents
	) VALUES (
		:id, :user_id, :model_name, :model_version, :input_json, :status, :priority,
		:created_at, :estimated_cost_cents
	)`
	if _, err := s.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	err := s.db.GetContext(ctx, &job, `SELECT * FROM jobs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

func (s *JobStore) List(ctx context.Context, filter store.JobFilter) ([]domain.Job, error) {
	query := `SELECT * FROM jobs WHERE 1=1`
	var args []interface{}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, *filter.Status)
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}

	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *JobStore) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	query := `UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, query, domain.StatusProcessing, startedAt, id, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

func (s *JobStore) Complete(ctx context.Context, id string, result json.RawMessage, actualCostCents int64, completedAt time.Time) error {
	query := `
	UPDATE jobs
	SET status = ?, result_json = ?, actual_cost_cents = ?, completed_at = ?
	WHERE id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, query,
		domain.StatusCompleted, []byte(result), actualCostCents, completedAt,
		id, domain.StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

func (s *JobStore) Fail(ctx context.Context, id string, errMsg string, completedAt time.Time) error {
	query := `
	UPDATE jobs
	SET status = ?, error = ?, completed_at = ?
	WHERE id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, query,
		domain.StatusFailed, errMsg, completedAt,
		id, domain.StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

func (s *JobStore) Cancel(ctx context.Context, id string, completedAt time.Time) error {
	query := `
	UPDATE jobs
	SET status = ?, completed_at = ?
	WHERE id = ? AND status IN (?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		domain.StatusCancelled, completedAt,
		id, domain.StatusPending, domain.StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

// checkTransition distinguishes a lost compare-and-swap from a missing row.
func (s *JobStore) checkTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = ?)`, id); err != nil {
		return fmt.Errorf("check job %s: %w", id, err)
	}
	if !exists {
		return domain.ErrJobNotFound
	}
	return fmt.Errorf("job %s: %w", id, domain.ErrInvalidTransition)
}
