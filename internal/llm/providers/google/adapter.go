// Package google adapts the Gemini generateContent API through the genai SDK.
package google

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/danshapiro/murderparty/internal/llm"
)

type Config struct {
	Provider string
	APIKey   string
	// BaseURL overrides the Gemini endpoint; empty uses the SDK default.
	BaseURL string
	Timeout time.Duration
}

type Adapter struct {
	cfg    Config
	client func() (*genai.Client, error)
}

const defaultRequestTimeout = 30 * time.Second

func NewAdapter(cfg Config) *Adapter {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = "google"
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	a := &Adapter{cfg: cfg}
	a.client = sync.OnceValues(func() (*genai.Client, error) {
		cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
		if cfg.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
		}
		return genai.NewClient(context.Background(), cc)
	})
	return a
}

func (a *Adapter) Name() string { return a.cfg.Provider }

func (a *Adapter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if a.cfg.APIKey == "" {
		return llm.Response{}, &llm.ConfigurationError{Message: a.cfg.Provider + ": missing API key"}
	}
	client, err := a.client()
	if err != nil {
		return llm.Response{}, &llm.ConfigurationError{Message: a.cfg.Provider + ": " + err.Error()}
	}

	requestCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	if _, ok := ctx.Deadline(); ok {
		requestCtx, cancel = ctx, func() {}
	}
	defer cancel()

	resp, err := client.Models.GenerateContent(requestCtx, req.Model, genai.Text(req.Prompt), generateConfig(req))
	if err != nil {
		return llm.Response{}, a.mapError(err)
	}
	return fromGenerateContent(a.cfg.Provider, req.Model, resp)
}

func generateConfig(req llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		TopP:            genai.Ptr(float32(req.TopP)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	return cfg
}

func (a *Adapter) mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.FromStatus(a.cfg.Provider, apiErr.Code, apiErr.Message, retryDelay(apiErr.Details))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return llm.FromStatus(a.cfg.Provider, apiErrPtr.Code, apiErrPtr.Message, retryDelay(apiErrPtr.Details))
	}
	return llm.FromTransport(a.cfg.Provider, err)
}

// retryDelay reads the google.rpc.RetryInfo detail Gemini attaches to quota errors.
func retryDelay(details []map[string]any) time.Duration {
	for _, d := range details {
		if t, _ := d["@type"].(string); !strings.HasSuffix(t, "google.rpc.RetryInfo") {
			continue
		}
		if s, ok := d["retryDelay"].(string); ok {
			if v, err := time.ParseDuration(s); err == nil && v > 0 {
				return v
			}
		}
	}
	return 0
}

func fromGenerateContent(provider, model string, resp *genai.GenerateContentResponse) (llm.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return llm.Response{}, llm.BadResponse(provider, "generateContent response has no candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return llm.Response{}, llm.BadResponse(provider, "generateContent candidate has no content (finish reason "+string(cand.FinishReason)+")")
	}
	out := llm.Response{
		ID:           resp.ResponseID,
		Provider:     provider,
		Model:        model,
		Text:         resp.Text(),
		FinishReason: normalizeFinishReason(string(cand.FinishReason)),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func normalizeFinishReason(in string) string {
	switch strings.ToUpper(strings.TrimSpace(in)) {
	case "MAX_TOKENS":
		return "max_tokens"
	case "STOP":
		return "stop"
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return "content_filter"
	default:
		return strings.ToLower(strings.TrimSpace(in))
	}
}
