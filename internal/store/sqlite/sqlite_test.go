package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *JobStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "jobs.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	s, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newJob(userID string) *domain.Job {
	return &domain.Job{
		ID:                 uuid.NewString(),
		UserID:             userID,
		ModelName:          "qwen-3-72b",
		ModelVersion:       "v2.0.0",
		Input:              json.RawMessage(`{"prompt":"hello"}`),
		Status:             domain.StatusPending,
		Priority:           domain.PriorityNormal,
		CreatedAt:          time.Now().UTC(),
		EstimatedCostCents: 3,
	}
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := newJob("alice")
	job.Priority = domain.PriorityHigh
	require.NoError(t, s.Create(ctx, job))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.JSONEq(t, `{"prompt":"hello"}`, string(got.Input))
	assert.Equal(t, int64(3), got.EstimatedCostCents)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.ActualCostCents)
}

func TestGet_Missing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestLifecycle_HappyPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := newJob("alice")
	require.NoError(t, s.Create(ctx, job))

	started := time.Now().UTC()
	require.NoError(t, s.MarkProcessing(ctx, job.ID, started))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)
	require.NotNil(t, got.StartedAt)

	result := json.RawMessage(`{"response":"world","tokens_generated":5}`)
	require.NoError(t, s.Complete(ctx, job.ID, result, 1, time.Now().UTC()))

	got, err = s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.JSONEq(t, string(result), string(got.Result))
	require.NotNil(t, got.ActualCostCents)
	assert.Equal(t, int64(1), *got.ActualCostCents)
	assert.NotNil(t, got.CompletedAt)
}

func TestFail_RecordsError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := newJob("alice")
	require.NoError(t, s.Create(ctx, job))
	require.NoError(t, s.MarkProcessing(ctx, job.ID, time.Now().UTC()))
	require.NoError(t, s.Fail(ctx, job.ID, "backend error: boom", time.Now().UTC()))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "backend error: boom", *got.Error)
}

func TestTransitions_GuardedByStateMachine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Complete straight from pending is not a legal move
	job := newJob("alice")
	require.NoError(t, s.Create(ctx, job))
	err := s.Complete(ctx, job.ID, json.RawMessage(`{}`), 0, now)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Double MarkProcessing loses the second CAS
	require.NoError(t, s.MarkProcessing(ctx, job.ID, now))
	assert.ErrorIs(t, s.MarkProcessing(ctx, job.ID, now), domain.ErrInvalidTransition)

	// Terminal states stay put
	require.NoError(t, s.Complete(ctx, job.ID, json.RawMessage(`{}`), 0, now))
	assert.ErrorIs(t, s.Fail(ctx, job.ID, "late failure", now), domain.ErrInvalidTransition)
	assert.ErrorIs(t, s.Cancel(ctx, job.ID, now), domain.ErrInvalidTransition)

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	// Missing rows are reported as not found, not as a lost CAS
	assert.ErrorIs(t, s.MarkProcessing(ctx, "ghost", now), domain.ErrJobNotFound)
	assert.ErrorIs(t, s.Cancel(ctx, "ghost", now), domain.ErrJobNotFound)
}

func TestCancel_FromPendingAndProcessing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	pending := newJob("alice")
	require.NoError(t, s.Create(ctx, pending))
	require.NoError(t, s.Cancel(ctx, pending.ID, now))

	got, err := s.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	processing := newJob("alice")
	require.NoError(t, s.Create(ctx, processing))
	require.NoError(t, s.MarkProcessing(ctx, processing.ID, now))
	require.NoError(t, s.Cancel(ctx, processing.ID, now))

	// The worker finishing afterwards must lose the race
	err = s.Complete(ctx, processing.ID, json.RawMessage(`{}`), 0, now)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestList_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		job := newJob("alice")
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Create(ctx, job))
	}
	bobJob := newJob("bob")
	bobJob.CreatedAt = base.Add(10 * time.Minute)
	require.NoError(t, s.Create(ctx, bobJob))
	require.NoError(t, s.MarkProcessing(ctx, bobJob.ID, time.Now().UTC()))

	all, err := s.List(ctx, store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	// Newest first
	assert.Equal(t, bobJob.ID, all[0].ID)

	alice, err := s.List(ctx, store.JobFilter{UserID: "alice"})
	require.NoError(t, err)
	assert.Len(t, alice, 3)

	processing := domain.StatusProcessing
	busy, err := s.List(ctx, store.JobFilter{Status: &processing})
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.Equal(t, bobJob.ID, busy[0].ID)

	limited, err := s.List(ctx, store.JobFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
