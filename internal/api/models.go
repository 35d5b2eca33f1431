package api

import (
	"context"
	"time"

	"github.com/luispater/webdriverkit/internal/runner"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// RequestTask represents a queued scenario run
type RequestTask struct {
	ID        string
	Scenario  string
	Variables map[string]any
	Response  chan *TaskResponse
	CreatedAt time.Time
	// Context ends the run early when the caller goes away.
	Context context.Context
}

// TaskResponse represents the outcome of one run
type TaskResponse struct {
	Success  bool
	Error    error
	Results  map[string]runner.RunnerResult
	Duration time.Duration
}
