// Package providerspec is the table of model providers the generator can call: wire
// protocol, endpoint defaults, key variable and default model for each.
package providerspec

import (
	"strings"
	"sync"
)

// APIProtocol names the request and response shape a provider speaks.
type APIProtocol string

const (
	ProtocolOpenAIChatCompletions APIProtocol = "openai_chat_completions"
	ProtocolGoogleGenerateContent APIProtocol = "google_generate_content"
)

// APISpec holds the defaults a provider starts from. Config may override base URL and path.
type APISpec struct {
	Protocol         APIProtocol
	DefaultBaseURL   string
	DefaultPath      string
	DefaultAPIKeyEnv string
	DefaultModel     string
}

// Spec is one provider entry. Aliases let config and env name it loosely, "gemini" for google.
type Spec struct {
	Key     string
	Aliases []string
	API     *APISpec
}

var aliasIndex = sync.OnceValue(func() map[string]string {
	return buildAliasIndex(Builtins())
})

func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func buildAliasIndex(specs map[string]Spec) map[string]string {
	index := make(map[string]string, len(specs))
	for name, spec := range specs {
		key := normalizeKey(name)
		if key == "" {
			continue
		}
		index[key] = key
		for _, a := range spec.Aliases {
			if alias := normalizeKey(a); alias != "" {
				index[alias] = key
			}
		}
	}
	return index
}

// CanonicalProviderKey maps a configured provider name to its table key. Names outside the
// table come back normalized so custom providers under llm.providers still resolve.
func CanonicalProviderKey(in string) string {
	key := normalizeKey(in)
	if canonical, ok := aliasIndex()[key]; ok {
		return canonical
	}
	return key
}
