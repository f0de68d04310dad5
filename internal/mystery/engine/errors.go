package engine

import (
	"fmt"
	"strings"
)

// ConfigError rejects a request before any generation work starts.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Message
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}

// UpstreamError wraps a failed collaborator call. Err is usually an *llm.CallError.
type UpstreamError struct {
	Purpose string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s call failed: %v", e.Purpose, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ValidationFailedError carries the issues left after the single repair attempt, or the
// schema issues of an otherwise accepted package.
type ValidationFailedError struct {
	Issues []string
}

func (e *ValidationFailedError) Error() string {
	return "validation failed after repair: " + strings.Join(e.Issues, "; ")
}

// SafetyRejectedError is never retried.
type SafetyRejectedError struct {
	Matches []string
}

func (e *SafetyRejectedError) Error() string {
	return "content rejected by safety filter: " + strings.Join(e.Matches, ", ")
}
