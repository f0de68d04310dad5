package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/danshapiro/murderparty/internal/config"
	"github.com/danshapiro/murderparty/internal/llm"
)

func env(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

func TestNew_RoutesDefaultProviderWithConfiguredModel(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"stop","message":{"content":"{}"}}]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.LLM.Model = "meta-llama/custom"
	cfg.LLM.Providers["together"] = config.ProviderConfig{BaseURL: srv.URL}

	core, logs := observer.New(zap.DebugLevel)
	c, err := New(cfg, env(map[string]string{"TOGETHER_API_KEY": "k"}), zap.New(core))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := c.Complete(context.Background(), llm.Request{Prompt: "hi", Purpose: "generate"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Provider != "together" || body["model"] != "meta-llama/custom" {
		t.Fatalf("provider=%q model=%v", resp.Provider, body["model"])
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one call log, got %d", logs.Len())
	}
}

func TestNew_MissingDefaultKey(t *testing.T) {
	_, err := New(config.Default(), env(nil), nil)
	var ce *llm.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
}

func TestNew_RegistersBuiltinsAndCustomProviders(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "google"
	cfg.LLM.Providers["local"] = config.ProviderConfig{BaseURL: "http://127.0.0.1:1", APIKeyEnv: "LOCAL_KEY"}
	c, err := New(cfg, env(map[string]string{"GEMINI_API_KEY": "g"}), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := map[string]bool{"google": true, "local": true, "openai": true, "together": true, "zai": true}
	got := c.ProviderNames()
	if len(got) != len(want) {
		t.Fatalf("providers: %v", got)
	}
	for _, n := range got {
		if !want[n] {
			t.Fatalf("unexpected provider %q in %v", n, got)
		}
	}
	if c.DefaultProvider() != "google" || c.ModelFor("") != "gemini-2.0-flash" {
		t.Fatalf("default=%q model=%q", c.DefaultProvider(), c.ModelFor(""))
	}

	// A registered provider without a key fails at call time, not at construction.
	_, err = c.Complete(context.Background(), llm.Request{Provider: "openai", Prompt: "hi"})
	var ce *llm.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
}
