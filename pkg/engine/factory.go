package engine

import (
	"parley/pkg/chat"
	"parley/pkg/chat/chaterrors"
	"parley/pkg/engine/internal/provider/anthropic"
	"parley/pkg/engine/internal/provider/google"
	"parley/pkg/engine/internal/provider/ollama"
	"parley/pkg/engine/internal/provider/openai"
)

// EnvVar returns the environment variable a provider's credential is
// read from. Ollama has no key; its variable names the server address.
func (p Provider) EnvVar() string {
	switch p {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GEMINI_API_KEY"
	case ProviderOllama:
		return "OLLAMA_HOST"
	default:
		return ""
	}
}

// Keyed reports whether the provider requires an API key.
func (p Provider) Keyed() bool {
	return p != ProviderOllama
}

// Credentials carries the resolved secrets a client construction needs.
// Keyed providers use APIKey; ollama uses Host (empty means the local
// default server).
type Credentials struct {
	APIKey string
	Host   string
}

// NewClient constructs a completion client for eng. A missing key for a
// keyed provider is a configuration error naming the variable that was
// consulted.
func NewClient(eng Engine, creds Credentials) (chat.Client, error) {
	if eng.Provider.Keyed() && creds.APIKey == "" {
		return nil, chaterrors.NewErrorf(chaterrors.ErrorTypeConfiguration,
			"no API key for provider %s (set %s)", eng.Provider, eng.Provider.EnvVar())
	}

	switch eng.Provider {
	case ProviderAnthropic:
		return anthropic.New(creds.APIKey, eng.Name), nil
	case ProviderOpenAI:
		return openai.New(creds.APIKey, eng.Name), nil
	case ProviderGoogle:
		return google.New(creds.APIKey, eng.Name), nil
	case ProviderOllama:
		return ollama.New(creds.Host, eng.Name), nil
	default:
		return nil, chaterrors.NewErrorf(chaterrors.ErrorTypeConfiguration,
			"unsupported provider: %s", eng.Provider)
	}
}
