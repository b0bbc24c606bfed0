package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ForwardsInputAndReturnsRawResult(t *testing.T) {
	var gotPath string
	var gotBody []byte

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"hello there","tokens_generated":4}`))
	}))
	defer backend.Close()

	inv := NewHTTPInvoker(backend.Client())
	model := domain.ModelInfo{Name: "qwen", Version: "v1.0.0", Endpoint: backend.URL}

	result, err := inv.Generate(context.Background(), model, json.RawMessage(`{"prompt":"hi","max_tokens":64}`))
	require.NoError(t, err)

	assert.Equal(t, "/generate", gotPath)
	assert.JSONEq(t, `{"prompt":"hi","max_tokens":64}`, string(gotBody))
	assert.JSONEq(t, `{"response":"hello there","tokens_generated":4}`, string(result))
}

func TestGenerate_Non2xxIsUpstreamError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusBadGateway)
	}))
	defer backend.Close()

	inv := NewHTTPInvoker(backend.Client())
	model := domain.ModelInfo{Name: "qwen", Version: "v1.0.0", Endpoint: backend.URL}

	_, err := inv.Generate(context.Background(), model, json.RawMessage(`{"prompt":"hi"}`))
	require.Error(t, err)

	var upstream *httpclient.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadGateway, upstream.StatusCode)
}

func TestGenerate_ContextCancellationAbortsCall(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer backend.Close()
	defer close(release)

	inv := NewHTTPInvoker(backend.Client())
	model := domain.ModelInfo{Name: "qwen", Version: "v1.0.0", Endpoint: backend.URL}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := inv.Generate(ctx, model, json.RawMessage(`{"prompt":"hi"}`))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
