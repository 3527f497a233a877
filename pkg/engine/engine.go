// Package engine maps model names onto the fixed set of supported
// completion engines and constructs clients for them. Resolution is pure:
// it never touches the network or the filesystem, so a bad model name
// fails before any credential lookup or store write.
package engine

import (
	"sort"

	"parley/pkg/chat/chaterrors"
)

// Provider identifies the API family that serves an engine.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderOllama    Provider = "ollama"
)

// DefaultModel is the engine the "default" alias resolves to.
const DefaultModel = "claude-sonnet-4-5"

// Engine is a validated engine descriptor: the canonical model name, the
// provider that serves it, and the default output budget for requests.
type Engine struct {
	Name            string
	Provider        Provider
	MaxOutputTokens int
}

// knownEngines is the allow-list. Conversations pin the model name at
// creation, so names here must stay resolvable for old records to keep
// loading.
var knownEngines = map[string]Engine{
	// Claude models (Anthropic)
	"claude-sonnet-4-5": {
		Name:            "claude-sonnet-4-5",
		Provider:        ProviderAnthropic,
		MaxOutputTokens: 8192,
	},
	"claude-opus-4-5": {
		Name:            "claude-opus-4-5",
		Provider:        ProviderAnthropic,
		MaxOutputTokens: 16384,
	},
	"claude-haiku-4-5": {
		Name:            "claude-haiku-4-5",
		Provider:        ProviderAnthropic,
		MaxOutputTokens: 8192,
	},

	// OpenAI GPT and o-series models
	"gpt-4o": {
		Name:            "gpt-4o",
		Provider:        ProviderOpenAI,
		MaxOutputTokens: 4096,
	},
	"gpt-4o-mini": {
		Name:            "gpt-4o-mini",
		Provider:        ProviderOpenAI,
		MaxOutputTokens: 4096,
	},
	"gpt-5": {
		Name:            "gpt-5",
		Provider:        ProviderOpenAI,
		MaxOutputTokens: 4096,
	},
	"o3": {
		Name:            "o3",
		Provider:        ProviderOpenAI,
		MaxOutputTokens: 16384,
	},
	"o4-mini": {
		Name:            "o4-mini",
		Provider:        ProviderOpenAI,
		MaxOutputTokens: 16384,
	},

	// Google Gemini models
	"gemini-2.5-flash": {
		Name:            "gemini-2.5-flash",
		Provider:        ProviderGoogle,
		MaxOutputTokens: 65536,
	},
	"gemini-2.5-pro": {
		Name:            "gemini-2.5-pro",
		Provider:        ProviderGoogle,
		MaxOutputTokens: 65536,
	},
	"gemini-3-pro-preview": {
		Name:            "gemini-3-pro-preview",
		Provider:        ProviderGoogle,
		MaxOutputTokens: 65536,
	},

	// Local models served by Ollama
	"llama3.1:8b": {
		Name:            "llama3.1:8b",
		Provider:        ProviderOllama,
		MaxOutputTokens: 4096,
	},
	"phi4:latest": {
		Name:            "phi4:latest",
		Provider:        ProviderOllama,
		MaxOutputTokens: 4096,
	},
	"mistral:7b": {
		Name:            "mistral:7b",
		Provider:        ProviderOllama,
		MaxOutputTokens: 4096,
	},
}

// Resolve maps a model name to its engine descriptor. The alias "default"
// resolves to DefaultModel. Any name outside the allow-list fails with an
// UnknownModel error carrying the offending name.
func Resolve(name string) (Engine, error) {
	if name == "default" {
		name = DefaultModel
	}
	eng, ok := knownEngines[name]
	if !ok {
		return Engine{}, chaterrors.NewErrorf(chaterrors.ErrorTypeUnknownModel,
			"invalid model: %s", name)
	}
	return eng, nil
}

// Known reports whether name resolves without returning the descriptor.
func Known(name string) bool {
	_, err := Resolve(name)
	return err == nil
}

// Names returns the allow-list sorted, for usage text and the interactive
// model prompt. The "default" alias is not included.
func Names() []string {
	names := make([]string, 0, len(knownEngines))
	for name := range knownEngines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
