package llm

import (
	"fmt"
	"strings"
)

// Request is a single non-streaming text generation call. Sampling parameters are always
// sent; callers pick them per purpose.
type Request struct {
	Provider     string
	Model        string
	SystemPrompt string
	Prompt       string
	Temperature  float64
	TopP         float64
	MaxTokens    int

	// Purpose labels the call in logs ("generate", "truncation_retry", ...).
	Purpose string
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &ConfigurationError{Message: "prompt is required"}
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return &ConfigurationError{Message: fmt.Sprintf("temperature %.2f out of range [0,2]", r.Temperature)}
	}
	if r.TopP < 0 || r.TopP > 1 {
		return &ConfigurationError{Message: fmt.Sprintf("top_p %.2f out of range [0,1]", r.TopP)}
	}
	if r.MaxTokens < 0 {
		return &ConfigurationError{Message: "max_tokens must be >= 0"}
	}
	return nil
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Response struct {
	ID           string
	Provider     string
	Model        string
	Text         string
	FinishReason string
	Usage        Usage
}

// Truncated reports whether the provider stopped because it hit the output limit.
func (r Response) Truncated() bool {
	return r.FinishReason == "max_tokens"
}
