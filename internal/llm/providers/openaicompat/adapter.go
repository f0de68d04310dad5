// Package openaicompat talks to any chat-completions endpoint that follows the OpenAI
// wire format. Together, OpenAI and Z.ai are configured through it.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danshapiro/murderparty/internal/llm"
)

type Config struct {
	Provider     string
	APIKey       string
	BaseURL      string
	Path         string
	ExtraHeaders map[string]string
	// Timeout bounds a single call when the caller's context carries no deadline.
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

type Adapter struct {
	cfg    Config
	client *http.Client
}

const (
	defaultRequestTimeout = 30 * time.Second
	maxResponseBytes      = 8 << 20
)

func NewAdapter(cfg Config) *Adapter {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = "/v1/chat/completions"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 0}
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Provider }

func (a *Adapter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if strings.TrimSpace(a.cfg.APIKey) == "" {
		return llm.Response{}, &llm.ConfigurationError{Message: a.cfg.Provider + ": missing API key"}
	}
	requestCtx, cancel := withDefaultRequestDeadline(ctx, a.cfg.Timeout)
	defer cancel()

	body, err := toChatCompletionsBody(req)
	if err != nil {
		return llm.Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodPost, a.cfg.BaseURL+a.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return llm.Response{}, llm.FromTransport(a.cfg.Provider, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range a.cfg.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return llm.Response{}, llm.FromTransport(a.cfg.Provider, err)
	}
	defer resp.Body.Close()

	return parseChatCompletionsResponse(a.cfg.Provider, req.Model, resp)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsBody struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

func toChatCompletionsBody(req llm.Request) ([]byte, error) {
	var msgs []chatMessage
	if strings.TrimSpace(req.SystemPrompt) != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})
	return json.Marshal(chatCompletionsBody{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
}

func parseChatCompletionsResponse(provider, model string, resp *http.Response) (llm.Response, error) {
	rawBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return llm.Response{}, llm.FromTransport(provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw := map[string]any{}
		dec := json.NewDecoder(bytes.NewReader(rawBytes))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			raw["raw_body"] = string(rawBytes)
		}
		ra := llm.RetryAfterHeader(resp.Header.Get("Retry-After"), time.Now())
		return llm.Response{}, llm.FromStatus(provider, resp.StatusCode, errorMessage(raw), ra)
	}
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(rawBytes))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return llm.Response{}, llm.BadResponse(provider, "chat.completions body is not JSON: "+err.Error())
	}
	return fromChatCompletions(provider, model, raw)
}

// errorMessage digs the human-readable message out of the common error envelopes.
func errorMessage(raw map[string]any) string {
	switch e := raw["error"].(type) {
	case map[string]any:
		if msg := asString(e["message"]); msg != "" {
			return msg
		}
	case string:
		if e != "" {
			return e
		}
	}
	if msg := asString(raw["message"]); msg != "" {
		return msg
	}
	return "chat.completions failed"
}

func fromChatCompletions(provider, model string, raw map[string]any) (llm.Response, error) {
	choicesAny, ok := raw["choices"].([]any)
	if !ok || len(choicesAny) == 0 {
		return llm.Response{}, llm.BadResponse(provider, "chat.completions response missing choices")
	}
	choice, ok := choicesAny[0].(map[string]any)
	if !ok {
		return llm.Response{}, llm.BadResponse(provider, "chat.completions first choice malformed")
	}
	msgMap, ok := choice["message"].(map[string]any)
	if !ok {
		return llm.Response{}, llm.BadResponse(provider, "chat.completions choice has no message")
	}
	content, ok := msgMap["content"].(string)
	if !ok {
		return llm.Response{}, llm.BadResponse(provider, fmt.Sprintf("chat.completions content is %T, want string", msgMap["content"]))
	}

	usageMap, _ := raw["usage"].(map[string]any)
	return llm.Response{
		ID:           asString(raw["id"]),
		Model:        firstNonEmpty(model, asString(raw["model"])),
		Provider:     provider,
		Text:         content,
		FinishReason: normalizeFinishReason(asString(choice["finish_reason"])),
		Usage: llm.Usage{
			InputTokens:  intFromAny(usageMap["prompt_tokens"]),
			OutputTokens: intFromAny(usageMap["completion_tokens"]),
			TotalTokens:  intFromAny(usageMap["total_tokens"]),
		},
	}, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

func intFromAny(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case float64:
		return int(x)
	case json.Number:
		i, _ := x.Int64()
		return int(i)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(x))
		return n
	default:
		return 0
	}
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return strings.TrimSpace(b)
}

func normalizeFinishReason(in string) string {
	switch strings.ToLower(strings.TrimSpace(in)) {
	case "length":
		return "max_tokens"
	default:
		return strings.ToLower(strings.TrimSpace(in))
	}
}

func withDefaultRequestDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), timeout)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
