package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/nulzo/inference-gateway/internal/backend"
	"github.com/nulzo/inference-gateway/internal/config"
	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/dispatch"
	"github.com/nulzo/inference-gateway/internal/gateway"
	"github.com/nulzo/inference-gateway/internal/queue"
	"github.com/nulzo/inference-gateway/internal/registry"
	"github.com/nulzo/inference-gateway/internal/server"
	"github.com/nulzo/inference-gateway/internal/store/sqlite"
	"github.com/nulzo/inference-gateway/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestGateway_SubmitAndComplete drives a real request through the full
// pipeline: HTTP handler, service, queue, dispatcher, and a stub model
// backend, then reads the finished job back over HTTP.
func TestGateway_SubmitAndComplete(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"hello back","tokens_generated":50}`))
	}))
	defer model.Close()

	dsn := "file:" + filepath.Join(t.TempDir(), "gateway.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	store, err := sqlite.Open(dsn)
	require.NoError(t, err)

	reg := registry.New()
	require.NoError(t, reg.Register(domain.ModelInfo{
		Name:        "qwen-3-72b",
		Version:     "v2.0.0",
		Endpoint:    model.URL,
		ModelType:   domain.ModelTypeText,
		UnitType:    domain.UnitToken,
		CostPerUnit: 0.001,
	}))

	q := queue.New(16)
	dispatcher := dispatch.New(q, store, reg, backend.NewHTTPInvoker(&http.Client{}), 2, 5*time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)
	t.Cleanup(func() {
		q.Close()
		cancel()
		dispatcher.Stop()
		_ = store.Close()
	})

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "test"},
		Queue:     config.QueueConfig{Capacity: 16, Workers: 2, JobTimeout: 5 * time.Second},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}

	svc := gateway.NewService(zap.NewNop(), store, reg, q, dispatcher)
	handler := server.New(cfg, zap.NewNop(), svc).Handler()

	body, err := json.Marshal(map[string]any{
		"prompt":  "say hello to the integration suite",
		"user_id": "alice",
		"model":   "qwen-3-72b",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var submitted api.GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.JobID)
	assert.Equal(t, "pending", submitted.Status)
	assert.Positive(t, submitted.EstimatedCostCents)

	var final api.JobResponse
	require.Eventually(t, func() bool {
		rw := httptest.NewRecorder()
		handler.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/v1/job/"+submitted.JobID, nil))
		if rw.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rw.Body.Bytes(), &final); err != nil {
			return false
		}
		return final.Status.Terminal()
	}, 5*time.Second, 20*time.Millisecond, "job never reached a terminal state")

	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.JSONEq(t, `{"response":"hello back","tokens_generated":50}`, string(final.Result))
	require.NotNil(t, final.ActualCostCents)
	// 50 tokens * 0.001 * 100 = 5 cents
	assert.Equal(t, int64(5), *final.ActualCostCents)
}
