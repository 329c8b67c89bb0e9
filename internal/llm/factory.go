package llm

import (
	"context"
	"fmt"
)

// ClientConfig selects and configures the agent model provider.
type ClientConfig struct {
	Provider string
	APIKey   string
	// BaseURL overrides the provider endpoint. Ignored by Gemini.
	BaseURL string
}

// New builds the LLMClient for cfg.Provider. An empty provider means OpenAI.
func New(ctx context.Context, cfg ClientConfig) (LLMClient, error) {
	var (
		client LLMClient
		err    error
	)
	switch cfg.Provider {
	case "", ProviderOpenAI:
		client, err = NewOpenAIClient(cfg.APIKey, cfg.BaseURL)
	case ProviderGemini:
		client, err = NewGeminiClient(ctx, cfg.APIKey)
	case ProviderAnthropic:
		client, err = NewAnthropicClient(cfg.APIKey, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}
	return client, nil
}

// APIKeyEnv names the environment variable holding the provider's key.
func APIKeyEnv(provider string) string {
	switch provider {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
