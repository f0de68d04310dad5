// Package llmclient assembles an *llm.Client from the run configuration.
package llmclient

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danshapiro/murderparty/internal/config"
	"github.com/danshapiro/murderparty/internal/llm"
	"github.com/danshapiro/murderparty/internal/llm/providers/google"
	"github.com/danshapiro/murderparty/internal/llm/providers/openaicompat"
	"github.com/danshapiro/murderparty/internal/providerspec"
)

// New registers an adapter for every builtin provider and every provider named under
// llm.providers, makes llm.provider the default and installs call logging. The API key of
// the default provider must be present; other providers fail on first use if theirs is not.
func New(cfg *config.Config, lookup func(string) (string, bool), logger *zap.Logger) (*llm.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.LLM.CallTimeoutMS) * time.Millisecond

	keys := map[string]bool{}
	for k := range providerspec.Builtins() {
		keys[k] = true
	}
	for k := range cfg.LLM.Providers {
		keys[providerspec.CanonicalProviderKey(k)] = true
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	c := llm.NewClient()
	for _, name := range names {
		adapter, err := newAdapter(cfg, name, lookupKey(lookup, cfg.APIKeyEnv(name)), timeout)
		if err != nil {
			return nil, err
		}
		c.Register(adapter)
	}

	def := cfg.LLM.Provider
	if lookupKey(lookup, cfg.APIKeyEnv(def)) == "" {
		return nil, &llm.ConfigurationError{Message: fmt.Sprintf("%s: %s is not set", def, cfg.APIKeyEnv(def))}
	}
	c.SetDefaultProvider(def)
	if cfg.LLM.Model != "" {
		c.SetDefaultModel(def, cfg.LLM.Model)
	}
	c.Use(llm.LogCalls(logger.With(zap.String("component", "llm"))))
	logger.Debug("llm client ready", zap.String("default_provider", def), zap.Strings("providers", c.ProviderNames()))
	return c, nil
}

func newAdapter(cfg *config.Config, name, apiKey string, timeout time.Duration) (llm.ProviderAdapter, error) {
	override := cfg.LLM.Providers[name]
	spec, builtin := providerspec.Builtin(name)
	if !builtin || spec.API == nil {
		if strings.TrimSpace(override.BaseURL) == "" {
			return nil, &llm.ConfigurationError{Message: fmt.Sprintf("provider %s has no base_url", name)}
		}
		return openaicompat.NewAdapter(openaicompat.Config{
			Provider: name,
			APIKey:   apiKey,
			BaseURL:  override.BaseURL,
			Path:     override.Path,
			Timeout:  timeout,
		}), nil
	}

	baseURL := firstNonEmpty(override.BaseURL, spec.API.DefaultBaseURL)
	switch spec.API.Protocol {
	case providerspec.ProtocolGoogleGenerateContent:
		return google.NewAdapter(google.Config{
			Provider: name,
			APIKey:   apiKey,
			BaseURL:  strings.TrimSpace(override.BaseURL),
			Timeout:  timeout,
		}), nil
	case providerspec.ProtocolOpenAIChatCompletions:
		return openaicompat.NewAdapter(openaicompat.Config{
			Provider: name,
			APIKey:   apiKey,
			BaseURL:  baseURL,
			Path:     firstNonEmpty(override.Path, spec.API.DefaultPath),
			Timeout:  timeout,
		}), nil
	default:
		return nil, &llm.ConfigurationError{Message: fmt.Sprintf("provider %s: unsupported protocol %q", name, spec.API.Protocol)}
	}
}

func lookupKey(lookup func(string) (string, bool), env string) string {
	if lookup == nil || env == "" {
		return ""
	}
	v, _ := lookup(env)
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
