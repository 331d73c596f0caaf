package ai

import "context"

// Runtime is implemented by every chat backend: the hosted Anthropic
// completion API, OpenRouter and a local Ollama.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers accepted by the provider config key.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// RuntimeFunc adapts a function to Runtime.
type RuntimeFunc func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

func (f RuntimeFunc) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	return f(ctx, req)
}
