// Package billing turns a model's billing unit and a request payload into
// integer cents. Estimation happens before execution and is intentionally
// rough; reconciliation after execution uses real output metadata or the
// measured wall-clock duration of the backend call.
package billing

import (
	"encoding/json"
	"math"
	"time"

	"github.com/nulzo/inference-gateway/internal/core/domain"
)

const (
	// defaultTokenEstimate is used when the input carries no prompt text.
	defaultTokenEstimate = 100

	// Per-second billing has no duration to measure at estimate time, so
	// the estimate is a fixed placeholder.
	secondPlaceholderCents      = 10
	videoSecondPlaceholderCents = 50
)

// Estimate computes the pre-execution cost estimate in cents.
func Estimate(m domain.ModelInfo, input json.RawMessage) int64 {
	switch m.UnitType {
	case domain.UnitToken:
		return roundCents(float64(EstimateTokens(input)) * m.CostPerUnit * 100)
	case domain.UnitImage:
		// Flat per-image rate regardless of resolution or step count.
		return roundCents(m.CostPerUnit * 100)
	case domain.UnitSecond:
		return secondPlaceholderCents
	case domain.UnitVideoSecond:
		return videoSecondPlaceholderCents
	default:
		return 0
	}
}

// EstimateTokens approximates the token count of an input payload as one
// token per four characters of prompt text, floored at one token so a short
// prompt never estimates to nothing. It is not a tokenizer; it only needs
// to be monotonic in prompt length.
func EstimateTokens(input json.RawMessage) int64 {
	var payload struct {
		Prompt *string `json:"prompt"`
	}
	if err := json.Unmarshal(input, &payload); err != nil || payload.Prompt == nil || *payload.Prompt == "" {
		return defaultTokenEstimate
	}
	if tokens := int64(len(*payload.Prompt)) / 4; tokens > 0 {
		return tokens
	}
	return 1
}

// Actual reconciles the real cost after a backend call finished. Token
// billing reads tokens_generated from the result metadata; duration-based
// billing multiplies the measured call time by the unit rate.
func Actual(m domain.ModelInfo, result json.RawMessage, elapsed time.Duration) int64 {
	switch m.UnitType {
	case domain.UnitToken:
		return roundCents(float64(tokensGenerated(result)) * m.CostPerUnit * 100)
	case domain.UnitImage:
		return roundCents(m.CostPerUnit * 100)
	case domain.UnitSecond, domain.UnitVideoSecond:
		return roundCents(elapsed.Seconds() * m.CostPerUnit * 100)
	default:
		return 0
	}
}

func tokensGenerated(result json.RawMessage) int64 {
	var payload struct {
		TokensGenerated *int64 `json:"tokens_generated"`
	}
	if err := json.Unmarshal(result, &payload); err != nil || payload.TokensGenerated == nil {
		return 0
	}
	return *payload.TokensGenerated
}

// roundCents rounds to whole cents, clamping any positive amount up to at
// least one cent so a billable unit never prices to zero.
func roundCents(v float64) int64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if cents := int64(math.Round(v)); cents > 0 {
		return cents
	}
	return 1
}
