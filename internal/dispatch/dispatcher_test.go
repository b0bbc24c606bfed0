package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/queue"
	"github.com/nulzo/inference-gateway/internal/registry"
	"github.com/nulzo/inference-gateway/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubInvoker scripts backend behavior per test.
type stubInvoker struct {
	result json.RawMessage
	err    error
	delay  time.Duration
	block  bool
}

func (s *stubInvoker) Generate(ctx context.Context, model domain.ModelInfo, input json.RawMessage) (json.RawMessage, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.result, s.err
}

type fixture struct {
	store      *sqlite.JobStore
	registry   *registry.Registry
	queue      *queue.Queue
	dispatcher *Dispatcher
	cancel     context.CancelFunc
}

func newFixture(t *testing.T, inv *stubInvoker, timeout time.Duration) *fixture {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "dispatch.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	s, err := sqlite.Open(dsn)
	require.NoError(t, err)

	reg := registry.New()
	require.NoError(t, reg.Register(domain.ModelInfo{
		Name:        "qwen",
		Version:     "v1.0.0",
		Endpoint:    "http://qwen:8000",
		ModelType:   domain.ModelTypeText,
		UnitType:    domain.UnitToken,
		CostPerUnit: 0.001,
	}))
	require.NoError(t, reg.Register(domain.ModelInfo{
		Name:        "whisper",
		Version:     "v1.0.0",
		Endpoint:    "http://whisper:8000",
		ModelType:   domain.ModelTypeAudio,
		UnitType:    domain.UnitSecond,
		CostPerUnit: 0.01,
	}))

	q := queue.New(16)
	d := New(q, s, reg, inv, 2, timeout, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	t.Cleanup(func() {
		q.Close()
		cancel()
		d.Stop()
		_ = s.Close()
	})

	return &fixture{store: s, registry: reg, queue: q, dispatcher: d, cancel: cancel}
}

func (f *fixture) submit(t *testing.T, modelName string) string {
	t.Helper()
	job := &domain.Job{
		ID:                 uuid.NewString(),
		UserID:             "tester",
		ModelName:          modelName,
		ModelVersion:       "v1.0.0",
		Input:              json.RawMessage(`{"prompt":"hello there"}`),
		Status:             domain.StatusPending,
		Priority:           domain.PriorityNormal,
		CreatedAt:          time.Now().UTC(),
		EstimatedCostCents: 1,
	}
	require.NoError(t, f.store.Create(context.Background(), job))
	require.NoError(t, f.queue.Enqueue(job.ID, job.Priority))
	return job.ID
}

func (f *fixture) waitTerminal(t *testing.T, jobID string) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.store.Get(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return nil
}

func TestProcess_CompletesTextJob(t *testing.T) {
	inv := &stubInvoker{result: json.RawMessage(`{"response":"general kenobi","tokens_generated":50}`)}
	f := newFixture(t, inv, time.Second)

	jobID := f.submit(t, "qwen")
	job := f.waitTerminal(t, jobID)

	assert.Equal(t, domain.StatusCompleted, job.Status)
	assert.JSONEq(t, string(inv.result), string(job.Result))
	require.NotNil(t, job.ActualCostCents)
	// 50 tokens * 0.001 * 100 = 5 cents
	assert.Equal(t, int64(5), *job.ActualCostCents)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)
}

func TestProcess_BackendErrorFailsJob(t *testing.T) {
	inv := &stubInvoker{err: errors.New("upstream exploded")}
	f := newFixture(t, inv, time.Second)

	jobID := f.submit(t, "qwen")
	job := f.waitTerminal(t, jobID)

	assert.Equal(t, domain.StatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "backend error")
	assert.Contains(t, *job.Error, "upstream exploded")
}

func TestProcess_TimeoutFailsJob(t *testing.T) {
	inv := &stubInvoker{block: true}
	f := newFixture(t, inv, 50*time.Millisecond)

	jobID := f.submit(t, "qwen")
	job := f.waitTerminal(t, jobID)

	assert.Equal(t, domain.StatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "timeout")
}

func TestProcess_UnsupportedModelTypeFailsJob(t *testing.T) {
	inv := &stubInvoker{result: json.RawMessage(`{}`)}
	f := newFixture(t, inv, time.Second)

	jobID := f.submit(t, "whisper")
	job := f.waitTerminal(t, jobID)

	assert.Equal(t, domain.StatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "unsupported")
}

func TestProcess_UnregisteredModelFailsJob(t *testing.T) {
	inv := &stubInvoker{result: json.RawMessage(`{}`)}
	f := newFixture(t, inv, time.Second)

	job := &domain.Job{
		ID:           uuid.NewString(),
		UserID:       "tester",
		ModelName:    "retired-model",
		ModelVersion: "v9.0.0",
		Input:        json.RawMessage(`{"prompt":"hi"}`),
		Status:       domain.StatusPending,
		Priority:     domain.PriorityNormal,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.store.Create(context.Background(), job))
	require.NoError(t, f.queue.Enqueue(job.ID, job.Priority))

	got := f.waitTerminal(t, job.ID)
	assert.Equal(t, domain.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "no longer registered")
}

func TestProcess_CancelledBeforeDispatchStaysCancelled(t *testing.T) {
	inv := &stubInvoker{delay: 100 * time.Millisecond, result: json.RawMessage(`{}`)}

	// Occupy both workers so the target job sits in the queue long enough
	// to be cancelled before a worker picks it up.
	f := newFixture(t, inv, time.Second)
	blockers := []string{f.submit(t, "qwen"), f.submit(t, "qwen")}

	target := f.submit(t, "qwen")
	require.NoError(t, f.store.Cancel(context.Background(), target, time.Now().UTC()))

	for _, id := range blockers {
		f.waitTerminal(t, id)
	}

	// Give the workers a chance to drain the cancelled entry
	time.Sleep(100 * time.Millisecond)

	job, err := f.store.Get(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, job.Status)
	assert.Nil(t, job.StartedAt, "cancelled job must never start")
}

func TestStop_RecordsTerminalStateForInFlightJob(t *testing.T) {
	inv := &stubInvoker{block: true}
	f := newFixture(t, inv, 10*time.Second)

	jobID := f.submit(t, "qwen")

	require.Eventually(t, func() bool {
		job, err := f.store.Get(context.Background(), jobID)
		return err == nil && job.Status == domain.StatusProcessing
	}, 3*time.Second, 10*time.Millisecond)

	// Shut down while the backend call is still blocked. The worker loses
	// its context but must still record the failure instead of leaving the
	// row stranded in processing.
	f.queue.Close()
	f.cancel()
	f.dispatcher.Stop()

	job, err := f.store.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "cancelled")
}

func TestCancelInFlight_AbortsBackendCall(t *testing.T) {
	inv := &stubInvoker{block: true}
	f := newFixture(t, inv, 10*time.Second)

	jobID := f.submit(t, "qwen")

	// Wait for the job to go in flight
	require.Eventually(t, func() bool {
		job, err := f.store.Get(context.Background(), jobID)
		return err == nil && job.Status == domain.StatusProcessing
	}, 3*time.Second, 10*time.Millisecond)

	// First-write-wins: record the cancel, then abort the call
	require.NoError(t, f.store.Cancel(context.Background(), jobID, time.Now().UTC()))
	assert.True(t, f.dispatcher.CancelInFlight(jobID))

	// The worker loses the Fail CAS and the cancellation sticks
	require.Eventually(t, func() bool {
		job, err := f.store.Get(context.Background(), jobID)
		return err == nil && job.Status == domain.StatusCancelled
	}, 3*time.Second, 10*time.Millisecond)

	assert.False(t, f.dispatcher.CancelInFlight("unknown-job"))
}
