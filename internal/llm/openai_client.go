// In file: internal/llm/openai_client.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dileep-u-k/pmo-assistant/internal/api"
	"github.com/dileep-u-k/pmo-assistant/internal/tools"
)

// DefaultOpenAIURL is the chat completions endpoint of the OpenAI API.
const DefaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// openAIRequest defines the top-level structure for an OpenAI API call.
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []tools.Tool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	MaxTokens   int             `json:"max_completion_tokens,omitempty"`
	Temperature *float32        `json:"temperature,omitempty"`
	TopP        *float32        `json:"top_p,omitempty"`
}

// openAIMessage represents a single message in a conversation.
type openAIMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	ToolCalls  []tools.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

// openAIResponse is the structure of a successful response from the API.
type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage api.Usage `json:"usage"`
}

// OpenAIClient drives the agent with an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	apiKey     string
	url        string
	httpClient *http.Client
	retryDelay time.Duration
}

// Statically verify that OpenAIClient implements the LLMClient interface.
var _ LLMClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client. An empty url means DefaultOpenAIURL.
func NewOpenAIClient(apiKey, url string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key cannot be empty")
	}
	if url == "" {
		url = DefaultOpenAIURL
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryDelay: initialRetryDelay,
	}, nil
}

// Generate performs a standard, blocking request to the OpenAI API.
func (c *OpenAIClient) Generate(
	ctx context.Context,
	messages []Message,
	config *GenerationConfig,
	availableTools []tools.Tool,
) (*GenerationResult, error) {
	payload, err := c.buildRequestPayload(messages, config, availableTools)
	if err != nil {
		return nil, fmt.Errorf("failed to build openai request payload: %w", err)
	}

	respBody, err := c.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	return parseOpenAIResponse(respBody)
}

// buildRequestPayload constructs the JSON body for the OpenAI API call.
func (c *OpenAIClient) buildRequestPayload(messages []Message, config *GenerationConfig, availableTools []tools.Tool) ([]byte, error) {
	req := openAIRequest{
		Model:    config.Model,
		Messages: toOpenAIMessages(messages),
	}
	if len(availableTools) > 0 {
		req.Tools = availableTools
		req.ToolChoice = "auto"
	}
	if config.MaxTokens > 0 {
		req.MaxTokens = config.MaxTokens
	}
	req.Temperature = config.Temperature
	req.TopP = config.TopP

	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return payloadBytes, nil
}

// doRequest performs the HTTP call with retries. Transport errors and 5xx
// replies are retried with exponential backoff; 4xx replies are not.
func (c *OpenAIClient) doRequest(ctx context.Context, payload []byte) ([]byte, error) {
	var lastErr error
	delay := c.retryDelay

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("openai request cancelled: %w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create http request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", i+1, maxRetries, err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response body: %w", readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		lastErr = fmt.Errorf("openai API error (attempt %d/%d): status %d, body: %s", i+1, maxRetries, resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// toOpenAIMessages converts our internal message slice to the OpenAI API format.
func toOpenAIMessages(messages []Message) []openAIMessage {
	openAIMsgs := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		content := msg.Content
		m := openAIMessage{Role: string(msg.Role), Content: &content}

		switch msg.Role {
		case RoleTool:
			m.ToolCallID = msg.ToolCallID
		case RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				m.ToolCalls = make([]tools.ToolCall, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					m.ToolCalls[i] = *tc
				}
				if content == "" {
					m.Content = nil
				}
			}
		}
		openAIMsgs = append(openAIMsgs, m)
	}
	return openAIMsgs
}

// parseOpenAIResponse converts a full OpenAI API response to our internal GenerationResult.
func parseOpenAIResponse(body []byte) (*GenerationResult, error) {
	var openAIResp openAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal openai response: %w", err)
	}
	if len(openAIResp.Choices) == 0 {
		return nil, errors.New("no choices returned from OpenAI")
	}

	choice := openAIResp.Choices[0]
	result := &GenerationResult{Usage: openAIResp.Usage}
	if choice.Message.Content != nil {
		result.Content = *choice.Message.Content
	}

	if len(choice.Message.ToolCalls) > 0 {
		result.ToolCalls = make([]*tools.ToolCall, 0, len(choice.Message.ToolCalls))
		for _, tc := range choice.Message.ToolCalls {
			result.ToolCalls = append(result.ToolCalls, &tools.ToolCall{
				ID:   tc.ID,
				Type: tools.ToolTypeFunction,
				Function: tools.ToolCallFunction{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
	}
	return result, nil
}
