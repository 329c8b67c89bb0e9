// Package completion sends one prompt to an OpenAI-compatible completions
// endpoint and turns the reply into a JSON object.
//
// There are no retries: every failure surfaces as one of the typed errors in
// this package so callers can tell configuration problems, upstream
// rejections, timeouts and malformed replies apart.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dileep-u-k/pmo-assistant/internal/logging"
)

const (
	// DefaultEndpoint is the chat completions URL used when none is configured.
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"
	// DefaultAPIKeyEnv names the environment variable holding the API key.
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
	// DefaultTimeout bounds a single completions request.
	DefaultTimeout = 120 * time.Second
)

// Request is a single system+user prompt sent to the model.
type Request struct {
	Model  string
	System string
	Prompt string
	// Temperature is omitted from the request when nil.
	Temperature *float64
}

// Completer sends a Request and returns the raw response body of a 2xx reply.
type Completer interface {
	Complete(ctx context.Context, req Request) ([]byte, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    *float64       `json:"temperature,omitempty"`
}

// InvokerConfig configures an Invoker. Zero values fall back to the defaults.
type InvokerConfig struct {
	Endpoint  string
	APIKeyEnv string
	Timeout   time.Duration
	Logger    *logging.Logger
}

// Invoker is the Completer backed by an HTTP completions endpoint.
type Invoker struct {
	endpoint   string
	apiKeyEnv  string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logging.Logger
}

var _ Completer = (*Invoker)(nil)

// NewInvoker creates an Invoker. The API key is not read here; it is looked
// up in the environment on every call.
func NewInvoker(cfg InvokerConfig) *Invoker {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Invoker{
		endpoint:   cfg.Endpoint,
		apiKeyEnv:  cfg.APIKeyEnv,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.OrSilent(cfg.Logger),
	}
}

// Complete performs exactly one POST to the completions endpoint.
func (i *Invoker) Complete(ctx context.Context, req Request) ([]byte, error) {
	apiKey := strings.TrimSpace(os.Getenv(i.apiKeyEnv))
	if apiKey == "" {
		return nil, &ConfigurationError{Variable: i.apiKeyEnv}
	}

	payload, err := json.Marshal(chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completions request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create completions request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := i.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{After: i.timeout, Err: err}
		}
		return nil, fmt.Errorf("completions request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{After: i.timeout, Err: err}
		}
		return nil, fmt.Errorf("failed to read completions response: %w", err)
	}

	i.logger.Debug().
		Str("model", req.Model).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("completions request finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
