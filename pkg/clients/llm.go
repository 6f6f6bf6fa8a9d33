package clients

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Provider identifiers for the chat model.
const (
	ProviderOllama   = "ollama"
	ProviderGoogleAI = "googleai"
)

// Options select and configure the chat model backing the agent.
type Options struct {
	Provider      string
	OllamaBaseURL string
	OllamaModel   string
	GoogleApiKey  string
	GoogleModel   string
}

// NewChatModel constructs the llms.Model for the configured provider.
// Ollama is the default: the bot usually runs against a local model.
func NewChatModel(ctx context.Context, opts Options) (llms.Model, error) {
	switch opts.Provider {
	case ProviderOllama, "":
		llm, err := ollama.New(
			ollama.WithServerURL(opts.OllamaBaseURL),
			ollama.WithModel(opts.OllamaModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to init ollama model: %w", err)
		}
		return llm, nil

	case ProviderGoogleAI:
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(opts.GoogleApiKey),
			googleai.WithDefaultModel(opts.GoogleModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to init googleai model: %w", err)
		}
		return llm, nil

	default:
		return nil, fmt.Errorf("invalid llm provider: %s", opts.Provider)
	}
}
