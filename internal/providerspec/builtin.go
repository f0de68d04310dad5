package providerspec

// DefaultProvider is used when configuration names none.
const DefaultProvider = "together"

var builtinSpecs = map[string]Spec{
	"together": {
		Key:     "together",
		Aliases: []string{"togetherai", "together_ai", "together.ai"},
		API: &APISpec{
			Protocol:         ProtocolOpenAIChatCompletions,
			DefaultBaseURL:   "https://api.together.xyz",
			DefaultPath:      "/v1/chat/completions",
			DefaultAPIKeyEnv: "TOGETHER_API_KEY",
			DefaultModel:     "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo",
		},
	},
	"openai": {
		Key: "openai",
		API: &APISpec{
			Protocol:         ProtocolOpenAIChatCompletions,
			DefaultBaseURL:   "https://api.openai.com",
			DefaultPath:      "/v1/chat/completions",
			DefaultAPIKeyEnv: "OPENAI_API_KEY",
			DefaultModel:     "gpt-4o-mini",
		},
	},
	"zai": {
		Key:     "zai",
		Aliases: []string{"z-ai", "z.ai"},
		API: &APISpec{
			Protocol:         ProtocolOpenAIChatCompletions,
			DefaultBaseURL:   "https://api.z.ai",
			DefaultPath:      "/api/paas/v4/chat/completions",
			DefaultAPIKeyEnv: "ZAI_API_KEY",
			DefaultModel:     "glm-4.5-air",
		},
	},
	"google": {
		Key:     "google",
		Aliases: []string{"gemini", "google_ai_studio"},
		API: &APISpec{
			Protocol:         ProtocolGoogleGenerateContent,
			DefaultBaseURL:   "https://generativelanguage.googleapis.com",
			DefaultAPIKeyEnv: "GEMINI_API_KEY",
			DefaultModel:     "gemini-2.0-flash",
		},
	},
}

func Builtin(key string) (Spec, bool) {
	s, ok := builtinSpecs[CanonicalProviderKey(key)]
	if !ok {
		return Spec{}, false
	}
	return cloneSpec(s), true
}

func Builtins() map[string]Spec {
	out := make(map[string]Spec, len(builtinSpecs))
	for key, spec := range builtinSpecs {
		out[key] = cloneSpec(spec)
	}
	return out
}

func cloneSpec(in Spec) Spec {
	out := in
	if in.API != nil {
		api := *in.API
		out.API = &api
	}
	out.Aliases = append([]string{}, in.Aliases...)
	return out
}
