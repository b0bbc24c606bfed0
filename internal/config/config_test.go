package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, 100, cfg.Queue.Capacity)
	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.Equal(t, 30*time.Second, cfg.Queue.JobTimeout)
	assert.Equal(t, 30*time.Second, cfg.Health.Interval)
	assert.False(t, cfg.Redis.Enabled)

	// Without a config file the shipped catalog applies
	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "qwen-3-72b", cfg.Models[0].Name)
	assert.Equal(t, domain.ModelTypeText, cfg.Models[0].ModelType)
	assert.Equal(t, "sdxl", cfg.Models[1].Name)
	assert.Equal(t, domain.UnitImage, cfg.Models[1].UnitType)
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Clearenv()
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("QUEUE_CAPACITY", "7")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("QWEN_URL", "http://qwen.internal:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 7, cfg.Queue.Capacity)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "http://qwen.internal:9000", cfg.Models[0].Endpoint)
}

func TestLoad_ConfigFileModels(t *testing.T) {
	os.Clearenv()
	t.Setenv("MODEL_ENDPOINT", "http://resolved:8000")

	content := `
server:
  port: "8181"
queue:
  capacity: 50
  workers: 2
  job_timeout: 15s
models:
  - name: custom-model
    version: v3.1.0
    endpoint: "ENV:MODEL_ENDPOINT"
    model_type: text
    unit_type: token
    cost_per_unit: 0.002
    max_tokens: 8192
    gpu_required: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Queue.Capacity)
	assert.Equal(t, 15*time.Second, cfg.Queue.JobTimeout)

	require.Len(t, cfg.Models, 1)
	m := cfg.Models[0]
	assert.Equal(t, "custom-model", m.Name)
	assert.Equal(t, "v3.1.0", m.Version)
	assert.Equal(t, "http://resolved:8000", m.Endpoint, "ENV: endpoints must resolve")
	assert.Equal(t, 0.002, m.CostPerUnit)
	assert.True(t, m.GPURequired)
}
