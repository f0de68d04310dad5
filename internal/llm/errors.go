package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ConfigurationError means the call never left the process: no provider, no key, or
// sampling parameters out of range.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + strings.TrimSpace(e.Message)
}

// Kind groups upstream failures by what a caller can do about them.
type Kind string

const (
	KindAuth          Kind = "auth"           // bad or missing credentials, access denied
	KindRejected      Kind = "rejected"       // the provider refused this request as written
	KindContentFilter Kind = "content_filter" // the provider's own moderation blocked it
	KindQuota         Kind = "quota"          // billing or hard quota, not a short-term limit
	KindRateLimit     Kind = "rate_limit"
	KindTimeout       Kind = "timeout"
	KindUnavailable   Kind = "unavailable" // 5xx, unknown status or transport failure
	KindBadResponse   Kind = "bad_response"
)

// CallError is a failed collaborator call. Generation never retries one; Resubmittable and
// RetryAfter are surfaced to API callers so they can decide whether to send the request again.
type CallError struct {
	Kind     Kind
	Provider string
	Status   int // HTTP status, 0 when the failure was not an HTTP response
	Message  string
	// RetryAfter is the provider's backoff hint; zero when none was given.
	RetryAfter time.Duration
}

func (e *CallError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "call failed"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s (status %d): %s", e.Provider, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Kind, msg)
}

// Resubmittable reports whether the same request may succeed if sent again later.
func (e *CallError) Resubmittable() bool {
	switch e.Kind {
	case KindRateLimit, KindTimeout, KindUnavailable, KindBadResponse:
		return true
	default:
		return false
	}
}

// AsCallError finds a *CallError in err's chain.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// FromStatus classifies a non-2xx provider response. 400 and 422 are refined by message
// text because providers report moderation and billing failures under them.
func FromStatus(provider string, status int, message string, retryAfter time.Duration) *CallError {
	e := &CallError{Provider: strings.TrimSpace(provider), Status: status, Message: message, RetryAfter: retryAfter}
	switch {
	case status == 400 || status == 422:
		e.Kind = kindFromMessage(message)
	case status == 401 || status == 403:
		e.Kind = KindAuth
	case status == 404 || status == 413:
		e.Kind = KindRejected
	case status == 408:
		e.Kind = KindTimeout
	case status == 429:
		e.Kind = KindRateLimit
	default:
		e.Kind = KindUnavailable
	}
	return e
}

func kindFromMessage(message string) Kind {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "content filter"), strings.Contains(lower, "safety"):
		return KindContentFilter
	case strings.Contains(lower, "quota"), strings.Contains(lower, "billing"):
		return KindQuota
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "invalid key"):
		return KindAuth
	default:
		return KindRejected
	}
}

// BadResponse reports a 2xx reply without usable text.
func BadResponse(provider, message string) *CallError {
	return &CallError{Kind: KindBadResponse, Provider: strings.TrimSpace(provider), Message: message}
}

// FromTransport maps a failure that produced no HTTP response. Cancellation comes back
// unchanged so the engine can tell a withdrawn request from an upstream failure.
func FromTransport(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if _, ok := AsCallError(err); ok {
		return err
	}
	kind := KindUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &CallError{Kind: kind, Provider: strings.TrimSpace(provider), Message: err.Error()}
}

// RetryAfterHeader reads a Retry-After value given as seconds or as an HTTP date.
// Unparseable or absent values yield zero.
func RetryAfterHeader(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
