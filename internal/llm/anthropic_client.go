// In file: internal/llm/anthropic_client.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dileep-u-k/pmo-assistant/internal/api"
	"github.com/dileep-u-k/pmo-assistant/internal/tools"
)

// AnthropicClient drives the agent with Claude models through the official SDK.
type AnthropicClient struct {
	client *anthropic.Client
}

var _ LLMClient = (*AnthropicClient)(nil)

// NewAnthropicClient creates a client. A non-empty baseURL points the SDK at
// an Anthropic-compatible endpoint.
func NewAnthropicClient(apiKey, baseURL string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key cannot be empty")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(defaultTimeout),
		option.WithMaxRetries(maxRetries),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &client}, nil
}

// Generate sends one Messages API request and returns the model's turn.
func (c *AnthropicClient) Generate(
	ctx context.Context,
	messages []Message,
	config *GenerationConfig,
	availableTools []tools.Tool,
) (*GenerationResult, error) {
	system, rest := splitSystem(messages)

	maxTokens := int64(config.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(config.Model),
		MaxTokens: maxTokens,
		Messages:  toAnthropicMessages(rest),
		Tools:     toAnthropicTools(availableTools),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if config.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*config.Temperature))
	}
	if config.TopP != nil {
		params.TopP = anthropic.Float(float64(*config.TopP))
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}
	return parseAnthropicMessage(message)
}

func toAnthropicTools(available []tools.Tool) []anthropic.ToolUnionParam {
	if len(available) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(available))
	for _, t := range available {
		input := anthropic.ToolInputSchemaParam{}
		if p := t.Function.Parameters; p != nil {
			input.Properties = p.Properties
			input.Required = p.Required
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Function.Name,
				Description: anthropic.String(t.Function.Description),
				InputSchema: input,
			},
		})
	}
	return out
}

// toAnthropicMessages maps the conversation onto user/assistant turns. Tool
// results travel as tool_result blocks in a user turn, and consecutive
// results share one turn.
func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	pendingResults := false
	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, decodeArgs(tc.Function.Arguments), tc.Function.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
			pendingResults = false
		case RoleTool:
			block := anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)
			if pendingResults {
				last := &out[len(out)-1]
				last.Content = append(last.Content, block)
				continue
			}
			out = append(out, anthropic.NewUserMessage(block))
			pendingResults = true
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			pendingResults = false
		}
	}
	return out
}

func parseAnthropicMessage(message *anthropic.Message) (*GenerationResult, error) {
	if message == nil {
		return nil, errors.New("anthropic returned no message")
	}
	result := &GenerationResult{}
	for _, block := range message.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			result.Content += v.Text
		case anthropic.ToolUseBlock:
			args, err := json.Marshal(v.Input)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal anthropic tool input: %w", err)
			}
			result.ToolCalls = append(result.ToolCalls, &tools.ToolCall{
				ID:   v.ID,
				Type: tools.ToolTypeFunction,
				Function: tools.ToolCallFunction{
					Name:      v.Name,
					Arguments: string(args),
				},
			})
		}
	}
	in := int(message.Usage.InputTokens)
	outTokens := int(message.Usage.OutputTokens)
	result.Usage = api.Usage{PromptTokens: in, CompletionTokens: outTokens, TotalTokens: in + outTokens}
	return result, nil
}
