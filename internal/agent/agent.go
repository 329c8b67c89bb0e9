// Package agent runs the PMO assistant's tool loop: the model sees the
// conversation and every registered tool, the requested tools run, and their
// results go back to the model until it answers in plain text.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dileep-u-k/pmo-assistant/internal/api"
	"github.com/dileep-u-k/pmo-assistant/internal/llm"
	"github.com/dileep-u-k/pmo-assistant/internal/logging"
	"github.com/dileep-u-k/pmo-assistant/internal/memory"
	"github.com/dileep-u-k/pmo-assistant/internal/tools"
)

const (
	DefaultModel            = "gpt-5-nano"
	DefaultMaxSteps         = 8
	DefaultMaxParallelTools = 4
	DefaultLastMessages     = 40
)

// ErrNoMessages is returned by Stream when the request carries no message.
var ErrNoMessages = errors.New("agent: no messages")

// Config wires an Agent. Model, Registry and Memory are required.
type Config struct {
	Model    llm.LLMClient
	ModelID  string
	Registry *tools.Registry
	Memory   memory.Store
	Logger   *logging.Logger

	Instructions string
	Temperature  *float32
	MaxSteps     int
	// MaxParallelTools bounds the tool calls of one step that run at once.
	MaxParallelTools int
	// LastMessages is how much thread history is loaded per turn.
	LastMessages int
}

// Agent is the configured PMO assistant. It is safe for concurrent use;
// every turn keeps its own conversation state.
type Agent struct {
	ID          string
	Name        string
	Description string

	instructions     string
	model            llm.LLMClient
	modelID          string
	temperature      *float32
	registry         *tools.Registry
	memory           memory.Store
	logger           *logging.Logger
	maxSteps         int
	maxParallelTools int
	lastMessages     int
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Agent, error) {
	if cfg.Model == nil {
		return nil, errors.New("agent: model client is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("agent: tool registry is required")
	}
	if cfg.Memory == nil {
		return nil, errors.New("agent: memory store is required")
	}
	a := &Agent{
		ID:               ID,
		Name:             Name,
		Description:      Description,
		instructions:     cfg.Instructions,
		model:            cfg.Model,
		modelID:          cfg.ModelID,
		temperature:      cfg.Temperature,
		registry:         cfg.Registry,
		memory:           cfg.Memory,
		logger:           logging.OrSilent(cfg.Logger),
		maxSteps:         cfg.MaxSteps,
		maxParallelTools: cfg.MaxParallelTools,
		lastMessages:     cfg.LastMessages,
	}
	if a.instructions == "" {
		a.instructions = DefaultInstructions
	}
	if a.modelID == "" {
		a.modelID = DefaultModel
	}
	if a.maxSteps <= 0 {
		a.maxSteps = DefaultMaxSteps
	}
	if a.maxParallelTools <= 0 {
		a.maxParallelTools = DefaultMaxParallelTools
	}
	if a.lastMessages <= 0 {
		a.lastMessages = DefaultLastMessages
	}
	return a, nil
}

// Instructions returns the system prompt in use.
func (a *Agent) Instructions() string { return a.instructions }

// History returns the stored messages of a thread.
func (a *Agent) History(ctx context.Context, threadID string) ([]llm.Message, error) {
	return a.memory.Messages(ctx, threadID, 0)
}

// Stream starts one agent turn and returns its events. History loading
// happens before Stream returns, so storage failures surface as an error
// rather than as an event. The channel is closed when the turn ends or ctx
// is cancelled. An empty threadID starts a new thread.
func (a *Agent) Stream(ctx context.Context, threadID string, msgs []api.ChatMessage) (<-chan Event, error) {
	incoming := toMessages(msgs)
	if len(incoming) == 0 {
		return nil, ErrNoMessages
	}
	if threadID == "" {
		threadID = uuid.NewString()
	}

	history, err := a.memory.Messages(ctx, threadID, a.lastMessages)
	if err != nil {
		return nil, fmt.Errorf("load thread %s: %w", threadID, err)
	}
	history = trimToUserTurn(history)
	// A known thread already holds the earlier turns; the client resends them.
	if len(history) > 0 {
		incoming = incoming[len(incoming)-1:]
	}

	t := &turn{
		agent:    a,
		threadID: threadID,
		events:   make(chan Event, 16),
		logger:   a.logger.WithCorrelationId(threadID),
	}
	t.conversation = append([]llm.Message{{Role: llm.RoleSystem, Content: a.instructions}}, history...)
	t.conversation = append(t.conversation, incoming...)
	t.pending = append(t.pending, incoming...)

	go t.run(ctx)
	return t.events, nil
}

// turn is the state of one Stream call.
type turn struct {
	agent        *Agent
	threadID     string
	events       chan Event
	logger       *logging.Logger
	conversation []llm.Message
	// pending are the messages of this turn not yet persisted.
	pending []llm.Message
	usage   api.Usage
}

func (t *turn) run(ctx context.Context) {
	defer close(t.events)
	defer t.persist(ctx)

	start := time.Now()
	functions := t.agent.registry.Functions()

	for step := 1; step <= t.agent.maxSteps; step++ {
		res, err := t.agent.model.Generate(ctx, t.conversation, &llm.GenerationConfig{
			Model:       t.agent.modelID,
			Temperature: t.agent.temperature,
		}, functions)
		if err != nil {
			t.logger.Error().Err(err).Int("step", step).Msg("model generation failed")
			t.emit(ctx, Event{Type: EventError, Error: err.Error()})
			return
		}
		t.usage.Add(res.Usage)

		reply := llm.Message{Role: llm.RoleAssistant, Content: res.Content, ToolCalls: res.ToolCalls}
		t.record(reply)
		if res.Content != "" && !t.emit(ctx, Event{Type: EventText, Text: res.Content}) {
			return
		}

		if len(res.ToolCalls) == 0 {
			t.logger.Info().
				Int("steps", step).
				Int("total_tokens", t.usage.TotalTokens).
				Dur("elapsed", time.Since(start)).
				Msg("agent turn finished")
			usage := t.usage
			t.emit(ctx, Event{Type: EventFinish, Usage: &usage})
			return
		}

		for _, call := range res.ToolCalls {
			ev := Event{
				Type:       EventToolCall,
				ToolCallID: call.ID,
				Tool:       call.Function.Name,
				State:      StatePending,
				Args:       rawArgs(call.Function.Arguments),
			}
			if !t.emit(ctx, ev) {
				return
			}
		}

		// Results are recorded before any is emitted so the step is stored
		// whole even if the consumer leaves halfway through.
		outcomes := t.agent.runTools(ctx, t.logger, res.ToolCalls)
		for i, out := range outcomes {
			call := res.ToolCalls[i]
			t.record(llm.Message{
				Role:       llm.RoleTool,
				Content:    out.content,
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
			})
		}
		for i, out := range outcomes {
			call := res.ToolCalls[i]
			ev := Event{
				Type:       EventToolResult,
				ToolCallID: call.ID,
				Tool:       call.Function.Name,
				State:      StateSettled,
				Result:     out.value,
			}
			if out.err != nil {
				ev.Error = out.content
			}
			if !t.emit(ctx, ev) {
				return
			}
		}
	}

	t.logger.Warn().Int("max_steps", t.agent.maxSteps).Msg("agent stopped before a final answer")
	t.emit(ctx, Event{Type: EventError, Error: fmt.Sprintf("stopped after %d steps without a final answer", t.agent.maxSteps)})
}

func (t *turn) record(m llm.Message) {
	t.conversation = append(t.conversation, m)
	t.pending = append(t.pending, m)
}

// emit delivers ev unless the consumer has gone away.
func (t *turn) emit(ctx context.Context, ev Event) bool {
	ev.ThreadID = t.threadID
	select {
	case t.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// persist saves the turn even when the client disconnected mid-stream.
func (t *turn) persist(ctx context.Context) {
	t.closeOpenCalls()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := t.agent.memory.Append(ctx, t.threadID, t.pending...); err != nil {
		t.logger.Error().Err(err).Int("messages", len(t.pending)).Msg("failed to persist turn")
	}
}

// closeOpenCalls answers every tool call of the last assistant message that
// has no result yet. Providers reject a history with unanswered calls.
func (t *turn) closeOpenCalls() {
	answered := make(map[string]bool)
	for i := len(t.pending) - 1; i >= 0; i-- {
		m := t.pending[i]
		switch m.Role {
		case llm.RoleTool:
			answered[m.ToolCallID] = true
		case llm.RoleAssistant:
			for _, call := range m.ToolCalls {
				if answered[call.ID] {
					continue
				}
				t.pending = append(t.pending, llm.Message{
					Role:       llm.RoleTool,
					Content:    fmt.Sprintf("Tool %s was cancelled before it ran.", call.Function.Name),
					ToolCallID: call.ID,
					ToolName:   call.Function.Name,
				})
			}
			return
		}
	}
}

type toolOutcome struct {
	value   any
	content string
	err     error
}

// runTools executes the calls of one step concurrently. A failing tool does
// not cancel the others; its error text becomes the result the model sees.
func (a *Agent) runTools(ctx context.Context, logger *logging.Logger, calls []*tools.ToolCall) []toolOutcome {
	outcomes := make([]toolOutcome, len(calls))

	var g errgroup.Group
	g.SetLimit(a.maxParallelTools)
	for i, call := range calls {
		g.Go(func() error {
			start := time.Now()
			name := call.Function.Name
			value, err := a.registry.Execute(ctx, name, json.RawMessage(call.Function.Arguments))
			if err != nil {
				logger.Warn().Str("tool", name).Err(err).Dur("elapsed", time.Since(start)).Msg("tool failed")
				outcomes[i] = toolOutcome{
					err:     err,
					content: fmt.Sprintf("Error executing tool %s: %v", name, err),
				}
				return nil
			}
			logger.Debug().Str("tool", name).Dur("elapsed", time.Since(start)).Msg("tool finished")
			outcomes[i] = toolOutcome{value: value, content: resultContent(value)}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func resultContent(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// toMessages keeps the user and assistant messages of a chat request.
func toMessages(msgs []api.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		switch llm.Role(m.Role) {
		case llm.RoleUser, llm.RoleAssistant:
			out = append(out, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
		}
	}
	// The turn must end with the user speaking.
	for len(out) > 0 && out[len(out)-1].Role != llm.RoleUser {
		out = out[:len(out)-1]
	}
	return out
}

// trimToUserTurn drops leading messages until the first user message so a
// truncated history never starts with an orphaned tool result.
func trimToUserTurn(history []llm.Message) []llm.Message {
	for i, m := range history {
		if m.Role == llm.RoleUser {
			return history[i:]
		}
	}
	return nil
}
