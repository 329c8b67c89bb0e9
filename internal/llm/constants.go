// In file: internal/llm/constants.go
package llm

import "time"

// Shared by every provider client.
const (
	defaultTimeout    = 120 * time.Second
	maxRetries        = 3
	initialRetryDelay = 2 * time.Second
	defaultMaxTokens  = 4096
)

// Provider names accepted by New.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)
