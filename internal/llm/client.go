// In file: internal/llm/client.go

// Package llm holds the clients for the model that drives the agent loop.
// Unlike the PMO tools, which each make one JSON-mode completions call, the
// agent model sees the whole conversation plus every tool declaration and
// decides which tools to call.
package llm

import (
	"context"

	"github.com/dileep-u-k/pmo-assistant/internal/api"
	"github.com/dileep-u-k/pmo-assistant/internal/tools"
)

// Role represents the originator of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// ToolCallID and ToolName identify the call a RoleTool message answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	// ToolCalls are the calls requested by a RoleAssistant message.
	ToolCalls []*tools.ToolCall `json:"tool_calls,omitempty"`
}

// GenerationConfig holds the parameters that control one generation.
type GenerationConfig struct {
	Model string
	// Temperature is left to the provider default when nil.
	Temperature *float32
	MaxTokens   int
	TopP        *float32
}

// GenerationResult holds the complete output of one model turn.
type GenerationResult struct {
	Content string
	// ToolCalls requested by the model. Several may be requested at once.
	ToolCalls []*tools.ToolCall
	Usage     api.Usage
}

// LLMClient is implemented by every agent model provider.
type LLMClient interface {
	// Generate sends the conversation and the available tools and returns
	// the model's next turn.
	Generate(
		ctx context.Context,
		messages []Message,
		config *GenerationConfig,
		availableTools []tools.Tool,
	) (*GenerationResult, error)
}

// splitSystem separates the system prompt from the rest of the conversation
// for providers that take it as a separate field.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
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
