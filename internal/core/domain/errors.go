package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors crossing component boundaries. Handlers translate these
// into Problems; the dispatcher records them into the job store instead.
var (
	ErrModelNotFound     = errors.New("model not found")
	ErrJobNotFound       = errors.New("job not found")
	ErrQueueFull         = errors.New("queue full")
	ErrQueueClosed       = errors.New("queue closed")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnsupportedModel  = errors.New("unsupported model type")
)

// Problem implements RFC 9457
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`

	Log error `json:"-"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	type Alias Problem

	data := make(map[string]interface{})

	for k, v := range p.Extensions {
		data[k] = v
	}

	stdJSON, _ := json.Marshal(Alias(*p))
	_ = json.Unmarshal(stdJSON, &data)

	return json.Marshal(data)
}

type ProblemOption func(*Problem)

// NewProblem creates a generic Problem
func NewProblem(status int, title, detail string, opts ...ProblemOption) *Problem {
	p := &Problem{
		Type:       "about:blank", // Default as per RFC
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithExtension adds a custom key-value pair to the response
func WithExtension(key string, value interface{}) ProblemOption {
	return func(p *Problem) {
		p.Extensions[key] = value
	}
}

// WithLog attaches an internal error for server-side logging
func WithLog(err error) ProblemOption {
	return func(p *Problem) {
		p.Log = err
	}
}

// WithType sets the RFC "type" URI
func WithType(uri string) ProblemOption {
	return func(p *Problem) {
		p.Type = uri
	}
}

// ValidationProblem creates a rich validation error
func ValidationProblem(validationErrors map[string]string) *Problem {
	return NewProblem(
		http.StatusBadRequest,
		"Validation Error",
		"One or more fields failed validation",
		WithExtension("errors", validationErrors),
	)
}

// ModelNotFoundProblem maps ErrModelNotFound to a 404 at submission time.
func ModelNotFoundProblem(name, version string) *Problem {
	return NewProblem(
		http.StatusNotFound,
		"Model Not Found",
		fmt.Sprintf("no model matching %q version %q is registered", name, version),
	)
}

// QueueFullProblem maps ErrQueueFull to a 429; the client should retry later.
func QueueFullProblem() *Problem {
	return NewProblem(
		http.StatusTooManyRequests,
		"Queue Full",
		"the job queue is at capacity, retry later",
		WithExtension("retryable", true),
	)
}

// JobNotFoundProblem creates a standard 404 for an unknown job id.
func JobNotFoundProblem(id string) *Problem {
	return NewProblem(
		http.StatusNotFound,
		"Job Not Found",
		fmt.Sprintf("no job with id %q", id),
	)
}

// BadRequestProblem creates a standard error for a bad request
func BadRequestProblem(detail string, opts ...ProblemOption) *Problem {
	return NewProblem(http.StatusBadRequest, "Bad Request", detail, opts...)
}

// ConflictProblem covers requests that lose a state-machine race, e.g.
// cancelling a job that already completed.
func ConflictProblem(detail string, opts ...ProblemOption) *Problem {
	return NewProblem(http.StatusConflict, "Conflict", detail, opts...)
}

// InternalProblem creates a standard error for any internal server error
func InternalProblem(msg string, err error) *Problem {
	return NewProblem(http.StatusInternalServerError, "Internal Server Error", msg, WithLog(err))
}
