package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danshapiro/murderparty/internal/llm"
)

func TestAdapter_Complete_SendsChatCompletionsBody(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer k" {
			t.Errorf("auth: %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"c1","model":"served-model","choices":[{"finish_reason":"length","message":{"role":"assistant","content":"{\"title\": \"x\""}}],"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`))
	}))
	defer srv.Close()

	a := NewAdapter(Config{Provider: "Together", APIKey: "k", BaseURL: srv.URL + "/"})
	resp, err := a.Complete(context.Background(), llm.Request{
		Model:        "meta-llama/x",
		SystemPrompt: "sys",
		Prompt:       "hi",
		Temperature:  0.1,
		TopP:         0.85,
		MaxTokens:    4000,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != `{"title": "x"` || !resp.Truncated() || resp.Usage.TotalTokens != 13 {
		t.Fatalf("resp: %+v", resp)
	}
	if resp.Provider != "together" || resp.Model != "meta-llama/x" {
		t.Fatalf("provider/model: %q %q", resp.Provider, resp.Model)
	}

	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages: %v", got["messages"])
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" || first["content"] != "sys" {
		t.Fatalf("system message: %v", first)
	}
	if got["temperature"] != 0.1 || got["top_p"] != 0.85 || got["max_tokens"] != float64(4000) {
		t.Fatalf("sampling: %v %v %v", got["temperature"], got["top_p"], got["max_tokens"])
	}
}

func TestAdapter_Complete_OmitsEmptySystemPrompt(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"stop","message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	a := NewAdapter(Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL})
	if _, err := a.Complete(context.Background(), llm.Request{Model: "m", Prompt: "hi"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if msgs, _ := got["messages"].([]any); len(msgs) != 1 {
		t.Fatalf("messages: %v", got["messages"])
	}
}

func TestAdapter_Complete_HTTPErrorsMapToTaxonomy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	a := NewAdapter(Config{Provider: "together", APIKey: "k", BaseURL: srv.URL})
	_, err := a.Complete(context.Background(), llm.Request{Model: "m", Prompt: "hi"})
	rl, ok := llm.AsCallError(err)
	if !ok || rl.Kind != llm.KindRateLimit || !rl.Resubmittable() {
		t.Fatalf("want rate_limit call error, got %T %v", err, err)
	}
	if rl.RetryAfter != 7*time.Second {
		t.Fatalf("retry-after: %v", rl.RetryAfter)
	}
	if rl.Error() != "together rate_limit (status 429): slow down" {
		t.Fatalf("message: %q", rl.Error())
	}
}

func TestAdapter_Complete_UnexpectedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	a := NewAdapter(Config{Provider: "together", APIKey: "k", BaseURL: srv.URL})
	_, err := a.Complete(context.Background(), llm.Request{Model: "m", Prompt: "hi"})
	if ce, ok := llm.AsCallError(err); !ok || ce.Kind != llm.KindBadResponse {
		t.Fatalf("want bad_response call error, got %T %v", err, err)
	}
}

func TestAdapter_Complete_MissingKey(t *testing.T) {
	a := NewAdapter(Config{Provider: "together", BaseURL: "http://127.0.0.1:1"})
	_, err := a.Complete(context.Background(), llm.Request{Model: "m", Prompt: "hi"})
	var ce *llm.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConfigurationError, got %T %v", err, err)
	}
}

func TestAdapter_Complete_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	a := NewAdapter(Config{Provider: "together", APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := a.Complete(context.Background(), llm.Request{Model: "m", Prompt: "hi"})
	if ce, ok := llm.AsCallError(err); !ok || ce.Kind != llm.KindTimeout {
		t.Fatalf("want timeout call error, got %T %v", err, err)
	}
}

func TestWithDefaultRequestDeadline_AddsDeadlineWhenMissing(t *testing.T) {
	ctx, cancel := withDefaultRequestDeadline(context.Background(), time.Minute)
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Fatalf("expected deadline")
	}
}

func TestWithDefaultRequestDeadline_PreservesExistingDeadline(t *testing.T) {
	parent, cancelParent := context.WithTimeout(context.Background(), time.Second)
	defer cancelParent()
	want, _ := parent.Deadline()
	ctx, cancel := withDefaultRequestDeadline(parent, time.Minute)
	defer cancel()
	got, _ := ctx.Deadline()
	if !got.Equal(want) {
		t.Fatalf("deadline changed: %v -> %v", want, got)
	}
}
