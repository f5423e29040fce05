package ai

import "context"

// Runtime is a minimal interface implemented by AI backends/runtimes
// such as Gemini, OpenRouter and local runtimes (e.g., Ollama).
// It aligns to the shared request/response types in this package.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ResponseFormat selects between free text and a machine-parseable reply.
type ResponseFormat int

const (
	FormatText ResponseFormat = iota
	FormatJSON
)

// SplitSystem separates system instructions from the conversation turns.
// Multiple system messages are joined with a blank line.
func SplitSystem(msgs []Message) (system string, rest []Message) {
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
