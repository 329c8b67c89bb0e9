// Package app is the composition root shared by the binaries: it turns a
// Config into the tool registry and the agent.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dileep-u-k/pmo-assistant/internal/agent"
	"github.com/dileep-u-k/pmo-assistant/internal/completion"
	"github.com/dileep-u-k/pmo-assistant/internal/config"
	"github.com/dileep-u-k/pmo-assistant/internal/llm"
	"github.com/dileep-u-k/pmo-assistant/internal/logging"
	"github.com/dileep-u-k/pmo-assistant/internal/memory"
	"github.com/dileep-u-k/pmo-assistant/internal/tools"
)

// BuildRegistry registers the PMO tools against the configured completions
// endpoint. dify-rag is added only when DIFY_API_KEY is set.
func BuildRegistry(cfg *config.Config, logger *logging.Logger) (*tools.Registry, error) {
	backend := tools.Backend{
		Completer: completion.NewInvoker(completion.InvokerConfig{
			Endpoint: cfg.Tools.Endpoint,
			Timeout:  cfg.Tools.Timeout,
			Logger:   logger,
		}),
		Model:  cfg.Tools.Model,
		Logger: logger,
	}

	opts := tools.Options{
		Backend: backend,
		Brave:   webConfig(cfg.Tools.Brave, logger),
		Jina:    webConfig(cfg.Tools.Jina, logger),
	}
	if os.Getenv(tools.DifyAPIKeyEnv) != "" {
		dify := webConfig(cfg.Tools.Dify, logger)
		opts.Dify = &dify
	}

	registry, err := tools.NewPMORegistry(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}
	logger.Info().Int("tools", registry.Count()).Strs("ids", registry.IDs()).Msg("tool registry initialized")
	return registry, nil
}

func webConfig(e config.WebEndpoint, logger *logging.Logger) tools.WebConfig {
	return tools.WebConfig{BaseURL: e.BaseURL, Timeout: e.Timeout, Logger: logger}
}

// Assistant bundles the agent with the resources it owns.
type Assistant struct {
	Agent    *agent.Agent
	Registry *tools.Registry
	Memory   memory.Store
	model    llm.LLMClient
}

// Close releases the memory store and, when it holds one, the model connection.
func (a *Assistant) Close() error {
	var errs []error
	if c, ok := a.model.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.Memory.Close())
	return errors.Join(errs...)
}

// BuildAssistant opens memory, creates the agent model client and wires the agent.
func BuildAssistant(ctx context.Context, cfg *config.Config, registry *tools.Registry, logger *logging.Logger) (*Assistant, error) {
	if err := cfg.RequireAgentKey(); err != nil {
		return nil, err
	}

	model, err := llm.New(ctx, llm.ClientConfig{
		Provider: cfg.Agent.Provider,
		APIKey:   cfg.Agent.APIKey,
		BaseURL:  cfg.Agent.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	store, err := memory.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		if c, ok := model.(io.Closer); ok {
			c.Close()
		}
		return nil, fmt.Errorf("failed to open memory: %w", err)
	}

	a, err := agent.New(agent.Config{
		Model:            model,
		ModelID:          cfg.Agent.Model,
		Registry:         registry,
		Memory:           store,
		Logger:           logger,
		Temperature:      cfg.Agent.Temperature,
		MaxSteps:         cfg.Agent.MaxSteps,
		MaxParallelTools: cfg.Agent.MaxParallelTools,
		LastMessages:     cfg.Agent.LastMessages,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	logger.Info().
		Str("provider", cfg.Agent.Provider).
		Str("model", cfg.Agent.Model).
		Msg("agent initialized")
	return &Assistant{Agent: a, Registry: registry, Memory: store, model: model}, nil
}
