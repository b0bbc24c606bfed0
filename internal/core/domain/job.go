package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a submitted job.
//
// Valid transitions:
//
//	pending    -> processing | cancelled
//	processing -> completed | failed | cancelled
//
// completed, failed and cancelled are terminal.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// JobPriority orders queue admission. Higher values dequeue first.
type JobPriority int

const (
	PriorityLow JobPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[JobPriority]string{
	PriorityLow:      "low",
	PriorityNormal:   "normal",
	PriorityHigh:     "high",
	PriorityCritical: "critical",
}

var priorityValues = map[string]JobPriority{
	"low":      PriorityLow,
	"normal":   PriorityNormal,
	"high":     PriorityHigh,
	"critical": PriorityCritical,
}

func (p JobPriority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "normal"
}

// ParsePriority maps a wire string to a priority, defaulting to normal.
func ParsePriority(s string) JobPriority {
	if p, ok := priorityValues[s]; ok {
		return p
	}
	return PriorityNormal
}

func (p JobPriority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *JobPriority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParsePriority(s)
	return nil
}

// Value and Scan keep the name mapping at the storage boundary so no other
// layer ever matches on priority strings.

func (p JobPriority) Value() (driver.Value, error) {
	return p.String(), nil
}

func (p *JobPriority) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*p = ParsePriority(v)
	case []byte:
		*p = ParsePriority(string(v))
	default:
		return fmt.Errorf("cannot scan %T into JobPriority", src)
	}
	return nil
}

// Job is one accepted request to run a model against an input, tracked
// through its lifecycle until terminal.
type Job struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	ModelName    string          `json:"model_name" db:"model_name"`
	ModelVersion string          `json:"model_version" db:"model_version"`
	Input        json.RawMessage `json:"input" db:"input_json"`
	Status       JobStatus       `json:"status" db:"status"`
	Priority     JobPriority     `json:"priority" db:"priority"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	EstimatedCostCents int64           `json:"estimated_cost_cents" db:"estimated_cost_cents"`
	ActualCostCents    *int64          `json:"actual_cost_cents,omitempty" db:"actual_cost_cents"`
	Result             json.RawMessage `json:"result,omitempty" db:"result_json"`
	Error              *string         `json:"error,omitempty" db:"error"`
}
