package server

import (
	"time"

	"github.com/danshapiro/murderparty/internal/mystery/model"
)

// RunStatus is returned by GET /api/runs/{id}.
type RunStatus struct {
	RunID           string           `json:"run_id"`
	State           string           `json:"state"`
	StartedAt       time.Time        `json:"started_at"`
	LastEvent       string           `json:"last_event,omitempty"`
	LastEventAt     *time.Time       `json:"last_event_at,omitempty"`
	EngineState     string           `json:"engine_state,omitempty"`
	Calls           int              `json:"calls"`
	StructureDigest string           `json:"structure_digest,omitempty"`
	FailureReason   string           `json:"failure_reason,omitempty"`
	Issues          []string         `json:"issues,omitempty"`
	Upstream        *UpstreamFailure `json:"upstream,omitempty"`
	Package         *model.Package   `json:"package,omitempty"`
}

// ValidateResponse is the POST /api/validate body.
type ValidateResponse struct {
	Issues []string `json:"issues"`
}

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	Error    string           `json:"error"`
	Issues   []string         `json:"issues,omitempty"`
	Upstream *UpstreamFailure `json:"upstream,omitempty"`
}

// UpstreamFailure tells a caller whether resubmitting a request that failed on the model
// provider is worth it. Generation itself never retries these.
type UpstreamFailure struct {
	Provider          string `json:"provider,omitempty"`
	Kind              string `json:"kind"`
	Status            int    `json:"status,omitempty"`
	Retryable         bool   `json:"retryable"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}
