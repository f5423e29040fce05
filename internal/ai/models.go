package ai

import (
	"sort"
)

// ModelPair names the two model identities a request uses: a
// low-temperature translator and a higher-temperature answer composer.
type ModelPair struct {
	Translate string
	Compose   string
}

// ModelInfo carries the approximate context window. Translators warn when a
// prompt estimate does not fit.
type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int
}

var defaultPairs = map[string]ModelPair{
	ProviderGemini:     {Translate: "gemini-2.0-flash", Compose: "gemini-1.5-flash"},
	ProviderOpenRouter: {Translate: "google/gemini-2.0-flash-001", Compose: "google/gemini-flash-1.5"},
	ProviderOllama:     {Translate: "llama3.1:8b-instruct", Compose: "llama3.1:8b-instruct"},
}

var models = map[string]ModelInfo{
	"gemini-2.0-flash":                 {Name: "gemini-2.0-flash", Provider: ProviderGemini, ContextTokens: 1048576},
	"gemini-1.5-flash":                 {Name: "gemini-1.5-flash", Provider: ProviderGemini, ContextTokens: 1048576},
	"gemini-1.5-pro":                   {Name: "gemini-1.5-pro", Provider: ProviderGemini, ContextTokens: 2097152},
	"google/gemini-2.0-flash-001":      {Name: "google/gemini-2.0-flash-001", Provider: ProviderOpenRouter, ContextTokens: 1048576},
	"google/gemini-flash-1.5":          {Name: "google/gemini-flash-1.5", Provider: ProviderOpenRouter, ContextTokens: 1000000},
	"openai/gpt-4o-mini":               {Name: "openai/gpt-4o-mini", Provider: ProviderOpenRouter, ContextTokens: 128000},
	"meta-llama/llama-3.1-8b-instruct": {Name: "meta-llama/llama-3.1-8b-instruct", Provider: ProviderOpenRouter, ContextTokens: 131072},
	"llama3.1:8b-instruct":             {Name: "llama3.1:8b-instruct", Provider: ProviderOllama, ContextTokens: 8192},
	"mistral:7b-instruct":              {Name: "mistral:7b-instruct", Provider: ProviderOllama, ContextTokens: 8192},
	"phi3:mini-4k-instruct":            {Name: "phi3:mini-4k-instruct", Provider: ProviderOllama, ContextTokens: 4096},
}

// DefaultModels returns the translate/compose pair for a provider.
// Unknown providers fall back to the Gemini pair.
func DefaultModels(provider string) ModelPair {
	if p, ok := defaultPairs[provider]; ok {
		return p
	}
	return defaultPairs[ProviderGemini]
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// CatalogFor lists the known models of a provider sorted by name.
// An empty provider lists every entry.
func CatalogFor(provider string) []ModelInfo {
	var out []ModelInfo
	for _, mi := range models {
		if provider == "" || mi.Provider == provider {
			out = append(out, mi)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Providers returns the registered runtime names sorted.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
