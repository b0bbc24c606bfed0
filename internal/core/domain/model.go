package domain

import (
	"fmt"
	"time"
)

// ModelType classifies what a backend model produces.
type ModelType string

const (
	ModelTypeText       ModelType = "text"
	ModelTypeImage      ModelType = "image"
	ModelTypeVideo      ModelType = "video"
	ModelTypeAudio      ModelType = "audio"
	ModelTypeMultimodal ModelType = "multimodal"
)

func (t ModelType) Valid() bool {
	switch t {
	case ModelTypeText, ModelTypeImage, ModelTypeVideo, ModelTypeAudio, ModelTypeMultimodal:
		return true
	}
	return false
}

// UnitType is the billing granularity for a model.
type UnitType string

const (
	UnitToken       UnitType = "token"
	UnitSecond      UnitType = "second"
	UnitImage       UnitType = "image"
	UnitVideoSecond UnitType = "video_second"
)

func (u UnitType) Valid() bool {
	switch u {
	case UnitToken, UnitSecond, UnitImage, UnitVideoSecond:
		return true
	}
	return false
}

// HealthStatus is the last observed state of a model endpoint.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown"
)

// ModelInfo describes one registered version of a backend model.
type ModelInfo struct {
	Name            string       `json:"name" mapstructure:"name"`
	Version         string       `json:"version" mapstructure:"version"`
	Endpoint        string       `json:"endpoint" mapstructure:"endpoint"`
	ModelType       ModelType    `json:"model_type" mapstructure:"model_type"`
	UnitType        UnitType     `json:"unit_type" mapstructure:"unit_type"`
	CostPerUnit     float64      `json:"cost_per_unit" mapstructure:"cost_per_unit"`
	MaxTokens       int          `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	GPURequired     bool         `json:"gpu_required" mapstructure:"gpu_required"`
	HealthStatus    HealthStatus `json:"health_status"`
	LastHealthCheck time.Time    `json:"last_health_check"`
}

// ID returns the client-facing identifier for this model version.
func (m ModelInfo) ID() string {
	return fmt.Sprintf("%s:%s", m.Name, m.Version)
}

func (m ModelInfo) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("model %q: version is required", m.Name)
	}
	if m.Endpoint == "" {
		return fmt.Errorf("model %q: endpoint is required", m.Name)
	}
	if !m.ModelType.Valid() {
		return fmt.Errorf("model %q: unknown model type %q", m.Name, m.ModelType)
	}
	if !m.UnitType.Valid() {
		return fmt.Errorf("model %q: unknown unit type %q", m.Name, m.UnitType)
	}
	if m.CostPerUnit < 0 {
		return fmt.Errorf("model %q: cost per unit must not be negative", m.Name)
	}
	return nil
}
