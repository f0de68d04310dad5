// Package config loads the YAML (or JSON) run configuration for the server and CLI.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danshapiro/murderparty/internal/providerspec"
)

type ProviderConfig struct {
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	APIKeyEnv string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
}

type Config struct {
	Version int `json:"version" yaml:"version"`

	Server struct {
		Addr          string `json:"addr" yaml:"addr"`
		StaticDir     string `json:"static_dir,omitempty" yaml:"static_dir,omitempty"`
		MaxConcurrent int    `json:"max_concurrent" yaml:"max_concurrent"`
		RunRetention  int    `json:"run_retention" yaml:"run_retention"`
	} `json:"server" yaml:"server"`

	LLM struct {
		Provider      string                    `json:"provider" yaml:"provider"`
		Model         string                    `json:"model,omitempty" yaml:"model,omitempty"`
		CallTimeoutMS int                       `json:"call_timeout_ms" yaml:"call_timeout_ms"`
		Providers     map[string]ProviderConfig `json:"providers,omitempty" yaml:"providers,omitempty"`
	} `json:"llm" yaml:"llm"`

	Generation struct {
		Mock             bool   `json:"mock" yaml:"mock"`
		DebugOutput      bool   `json:"debug_output" yaml:"debug_output"`
		DefaultTone      string `json:"default_tone" yaml:"default_tone"`
		DefaultDuration  int    `json:"default_duration" yaml:"default_duration"`
		BaseMaxTokens    int    `json:"base_max_tokens" yaml:"base_max_tokens"`
		PerPlayerTokens  int    `json:"per_player_tokens" yaml:"per_player_tokens"`
		MaxTokensCap     int    `json:"max_tokens_cap" yaml:"max_tokens_cap"`
		RetryExtraTokens int    `json:"retry_extra_tokens" yaml:"retry_extra_tokens"`
	} `json:"generation" yaml:"generation"`

	Prompts struct {
		Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	} `json:"prompts" yaml:"prompts"`

	Safety struct {
		ExtraKeywords []string `json:"extra_keywords,omitempty" yaml:"extra_keywords,omitempty"`
	} `json:"safety" yaml:"safety"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := decodeJSONStrict(b, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		if err := decodeYAMLStrict(b, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeJSONStrict(b []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("json: multiple top-level values are not allowed")
		}
		return err
	}
	return nil
}

func decodeYAMLStrict(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("yaml: multiple documents are not allowed")
		}
		return err
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	cfg.Server.Addr = strings.TrimSpace(cfg.Server.Addr)
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8000"
	}
	if cfg.Server.MaxConcurrent == 0 {
		cfg.Server.MaxConcurrent = 4
	}
	if cfg.Server.RunRetention == 0 {
		cfg.Server.RunRetention = 100
	}

	cfg.LLM.Provider = providerspec.CanonicalProviderKey(cfg.LLM.Provider)
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = providerspec.DefaultProvider
	}
	cfg.LLM.Model = strings.TrimSpace(cfg.LLM.Model)
	if cfg.LLM.CallTimeoutMS == 0 {
		cfg.LLM.CallTimeoutMS = 30000
	}
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = map[string]ProviderConfig{}
	}
	normalized := make(map[string]ProviderConfig, len(cfg.LLM.Providers))
	for k, v := range cfg.LLM.Providers {
		normalized[providerspec.CanonicalProviderKey(k)] = v
	}
	cfg.LLM.Providers = normalized

	g := &cfg.Generation
	g.DefaultTone = strings.TrimSpace(g.DefaultTone)
	if g.DefaultTone == "" {
		g.DefaultTone = "suspense"
	}
	if g.DefaultDuration == 0 {
		g.DefaultDuration = 60
	}
	if g.BaseMaxTokens == 0 {
		g.BaseMaxTokens = 3200
	}
	if g.PerPlayerTokens == 0 {
		g.PerPlayerTokens = 250
	}
	if g.MaxTokensCap == 0 {
		g.MaxTokensCap = 6500
	}
	if g.RetryExtraTokens == 0 {
		g.RetryExtraTokens = 800
	}
	cfg.Prompts.Dir = strings.TrimSpace(cfg.Prompts.Dir)
	cfg.Safety.ExtraKeywords = trimNonEmpty(cfg.Safety.ExtraKeywords)
}

// Validate checks a configuration with defaults already applied.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", cfg.Version)
	}
	if cfg.Server.MaxConcurrent < 0 {
		return fmt.Errorf("server.max_concurrent must be >= 0")
	}
	if cfg.Server.RunRetention < 0 {
		return fmt.Errorf("server.run_retention must be >= 0")
	}
	if _, ok := providerspec.Builtin(cfg.LLM.Provider); !ok {
		if _, custom := cfg.LLM.Providers[cfg.LLM.Provider]; !custom {
			return fmt.Errorf("llm.provider: unknown provider %q", cfg.LLM.Provider)
		}
	}
	for key, pc := range cfg.LLM.Providers {
		if _, ok := providerspec.Builtin(key); !ok && strings.TrimSpace(pc.BaseURL) == "" {
			return fmt.Errorf("llm.providers.%s.base_url is required for a non-builtin provider", key)
		}
	}
	if cfg.LLM.CallTimeoutMS < 0 {
		return fmt.Errorf("llm.call_timeout_ms must be >= 0")
	}
	g := cfg.Generation
	if g.DefaultDuration < 0 {
		return fmt.Errorf("generation.default_duration must be > 0")
	}
	if g.BaseMaxTokens < 0 || g.PerPlayerTokens < 0 || g.MaxTokensCap < 0 || g.RetryExtraTokens < 0 {
		return fmt.Errorf("generation token budgets must be >= 0")
	}
	if g.BaseMaxTokens > g.MaxTokensCap {
		return fmt.Errorf("generation.base_max_tokens (%d) exceeds generation.max_tokens_cap (%d)", g.BaseMaxTokens, g.MaxTokensCap)
	}
	return nil
}

// ApplyEnv overlays environment variables read through lookup (os.LookupEnv in
// production) and revalidates.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("MURDERPARTY_PROVIDER"); ok && strings.TrimSpace(v) != "" {
		cfg.LLM.Provider = providerspec.CanonicalProviderKey(v)
	}
	if v, ok := lookup("TOGETHER_MODEL"); ok && strings.TrimSpace(v) != "" && cfg.LLM.Provider == providerspec.DefaultProvider {
		cfg.LLM.Model = strings.TrimSpace(v)
	}
	if v, ok := lookup("MURDERPARTY_MODEL"); ok && strings.TrimSpace(v) != "" {
		cfg.LLM.Model = strings.TrimSpace(v)
	}
	if v, ok := lookup("USE_MOCK_LLM"); ok {
		cfg.Generation.Mock = envBool(v)
	}
	if v, ok := lookup("DEBUG_LLM_OUTPUT"); ok {
		cfg.Generation.DebugOutput = envBool(v)
	}
	if v, ok := lookup("MURDERPARTY_ADDR"); ok && strings.TrimSpace(v) != "" {
		cfg.Server.Addr = strings.TrimSpace(v)
	}
	if v, ok := lookup("MURDERPARTY_CALL_TIMEOUT_MS"); ok && strings.TrimSpace(v) != "" {
		ms, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("MURDERPARTY_CALL_TIMEOUT_MS: %w", err)
		}
		cfg.LLM.CallTimeoutMS = ms
	}
	return Validate(cfg)
}

// APIKeyEnv names the environment variable holding the key for provider: the configured
// override, else the builtin default.
func (c *Config) APIKeyEnv(provider string) string {
	provider = providerspec.CanonicalProviderKey(provider)
	if pc, ok := c.LLM.Providers[provider]; ok && strings.TrimSpace(pc.APIKeyEnv) != "" {
		return strings.TrimSpace(pc.APIKeyEnv)
	}
	if spec, ok := providerspec.Builtin(provider); ok && spec.API != nil {
		return spec.API.DefaultAPIKeyEnv
	}
	return ""
}

func envBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func trimNonEmpty(parts []string) []string {
	if len(parts) == 0 {
		return nil
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
