package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dileep-u-k/pmo-assistant/internal/api"
	"github.com/dileep-u-k/pmo-assistant/internal/llm"
	"github.com/dileep-u-k/pmo-assistant/internal/memory"
	"github.com/dileep-u-k/pmo-assistant/internal/schema"
	"github.com/dileep-u-k/pmo-assistant/internal/tools"
)

// scriptedModel replays one result per Generate call and records what it saw.
type scriptedModel struct {
	mu      sync.Mutex
	replies []*llm.GenerationResult
	err     error
	seen    [][]llm.Message
	tools   []tools.Tool
}

func (m *scriptedModel) Generate(_ context.Context, msgs []llm.Message, _ *llm.GenerationConfig, available []tools.Tool) (*llm.GenerationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, append([]llm.Message(nil), msgs...))
	m.tools = available
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return &llm.GenerationResult{Content: "done"}, nil
	}
	r := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return r, nil
}

type fakeTool struct {
	id     string
	result any
	err    error
}

func (f *fakeTool) Definition() tools.Definition {
	return tools.Definition{
		ID:          f.id,
		Description: "test tool " + f.id,
		InputSchema: schema.Object(map[string]*schema.JSONSchema{
			"project_context": schema.String("context"),
		}),
	}
}

func (f *fakeTool) Execute(context.Context, json.RawMessage) (any, error) {
	return f.result, f.err
}

func call(id, name, args string) *tools.ToolCall {
	return &tools.ToolCall{ID: id, Type: tools.ToolTypeFunction, Function: tools.ToolCallFunction{Name: name, Arguments: args}}
}

func newTestAgent(t *testing.T, model llm.LLMClient) (*Agent, memory.Store) {
	t.Helper()
	store, err := memory.NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := tools.NewRegistry()
	registry.MustRegister(
		&fakeTool{id: "risk-analyzer", result: map[string]any{"risk_matrix": map[string]any{"critical_risks": []any{}}}},
		&fakeTool{id: "brave-search", err: errors.New("BRAVE_API_KEY is not set")},
	)

	a, err := New(Config{Model: model, Registry: registry, Memory: store, MaxSteps: 3})
	require.NoError(t, err)
	return a, store
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func types(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestStreamRunsToolsAndFinishes(t *testing.T) {
	model := &scriptedModel{replies: []*llm.GenerationResult{
		{ToolCalls: []*tools.ToolCall{
			call("c1", "risk-analyzer", `{"project_context":"ERP rollout"}`),
			call("c2", "brave-search", `{"project_context":"ERP"}`),
		}, Usage: api.Usage{TotalTokens: 10}},
		{Content: "Here are the risks.", Usage: api.Usage{TotalTokens: 5}},
	}}
	a, store := newTestAgent(t, model)

	ch, err := a.Stream(context.Background(), "thread-1", []api.ChatMessage{{Role: "user", Content: "List the risks"}})
	require.NoError(t, err)
	events := drain(ch)

	assert.Equal(t, []EventType{
		EventToolCall, EventToolCall, EventToolResult, EventToolResult, EventText, EventFinish,
	}, types(events))

	assert.Equal(t, StatePending, events[0].State)
	assert.Equal(t, "risk-analyzer", events[0].Tool)
	assert.JSONEq(t, `{"project_context":"ERP rollout"}`, string(events[0].Args))

	assert.Equal(t, StateSettled, events[2].State)
	assert.Equal(t, "c1", events[2].ToolCallID)
	assert.NotNil(t, events[2].Result)
	assert.Empty(t, events[2].Error)

	assert.Equal(t, "c2", events[3].ToolCallID)
	assert.Equal(t, "Error executing tool brave-search: BRAVE_API_KEY is not set", events[3].Error)

	assert.Equal(t, "Here are the risks.", events[4].Text)
	require.NotNil(t, events[5].Usage)
	assert.Equal(t, 15, events[5].Usage.TotalTokens)
	for _, ev := range events {
		assert.Equal(t, "thread-1", ev.ThreadID)
	}

	// The second model call sees both tool results in call order.
	require.Len(t, model.seen, 2)
	second := model.seen[1]
	require.Len(t, second, 5)
	assert.Equal(t, llm.RoleSystem, second[0].Role)
	assert.Equal(t, DefaultInstructions, second[0].Content)
	assert.Equal(t, "c1", second[3].ToolCallID)
	assert.JSONEq(t, `{"risk_matrix":{"critical_risks":[]}}`, second[3].Content)
	assert.Equal(t, "c2", second[4].ToolCallID)
	assert.Len(t, model.tools, 2)

	stored, err := store.Messages(context.Background(), "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, stored, 5)
	assert.Equal(t, llm.RoleUser, stored[0].Role)
	assert.Len(t, stored[1].ToolCalls, 2)
	assert.Equal(t, "Here are the risks.", stored[4].Content)
}

func TestStreamAppendsOnlyTheNewMessageToAKnownThread(t *testing.T) {
	model := &scriptedModel{}
	a, store := newTestAgent(t, model)
	ctx := context.Background()

	ch, err := a.Stream(ctx, "t", []api.ChatMessage{{Role: "user", Content: "first"}})
	require.NoError(t, err)
	drain(ch)

	ch, err = a.Stream(ctx, "t", []api.ChatMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "done"},
		{Role: "user", Content: "second"},
	})
	require.NoError(t, err)
	drain(ch)

	stored, err := store.Messages(ctx, "t", 0)
	require.NoError(t, err)
	contents := make([]string, len(stored))
	for i, m := range stored {
		contents[i] = m.Content
	}
	assert.Equal(t, []string{"first", "done", "second", "done"}, contents)

	last := model.seen[len(model.seen)-1]
	assert.Len(t, last, 4, "system prompt, two stored messages and the new one")
}

func TestStreamStopsAfterMaxSteps(t *testing.T) {
	model := &scriptedModel{replies: []*llm.GenerationResult{
		{ToolCalls: []*tools.ToolCall{call("c", "risk-analyzer", `{}`)}},
	}}
	a, _ := newTestAgent(t, model)

	ch, err := a.Stream(context.Background(), "", []api.ChatMessage{{Role: "user", Content: "loop"}})
	require.NoError(t, err)
	events := drain(ch)

	require.NotEmpty(t, events)
	lastEvent := events[len(events)-1]
	assert.Equal(t, EventError, lastEvent.Type)
	assert.Contains(t, lastEvent.Error, "3 steps")
	assert.NotEmpty(t, lastEvent.ThreadID, "a new thread id is generated")
	assert.Len(t, model.seen, 3)
}

func TestStreamReportsModelFailure(t *testing.T) {
	model := &scriptedModel{err: errors.New("provider unavailable")}
	a, store := newTestAgent(t, model)

	ch, err := a.Stream(context.Background(), "t", []api.ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	events := drain(ch)

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Equal(t, "provider unavailable", events[0].Error)

	stored, err := store.Messages(context.Background(), "t", 0)
	require.NoError(t, err)
	require.Len(t, stored, 1, "the user message is kept")
}

func TestStreamRejectsEmptyRequests(t *testing.T) {
	a, _ := newTestAgent(t, &scriptedModel{})

	_, err := a.Stream(context.Background(), "t", nil)
	assert.ErrorIs(t, err, ErrNoMessages)

	_, err = a.Stream(context.Background(), "t", []api.ChatMessage{{Role: "system", Content: "x"}})
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestStreamStopsWhenContextIsCancelled(t *testing.T) {
	// More calls than the event buffer holds, so the turn blocks on emit
	// with nobody reading.
	calls := make([]*tools.ToolCall, 20)
	for i := range calls {
		calls[i] = call(fmt.Sprintf("c%d", i), "risk-analyzer", `{}`)
	}
	model := &scriptedModel{replies: []*llm.GenerationResult{{ToolCalls: calls}}}
	a, store := newTestAgent(t, model)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := a.Stream(ctx, "t", []api.ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	cancel()
	drain(ch) // must terminate

	stored, err := store.Messages(context.Background(), "t", 0)
	require.NoError(t, err)
	requested, answered := map[string]bool{}, map[string]bool{}
	for _, m := range stored {
		for _, c := range m.ToolCalls {
			requested[c.ID] = true
		}
		if m.Role == llm.RoleTool {
			answered[m.ToolCallID] = true
		}
	}
	assert.Len(t, requested, 20)
	assert.Equal(t, requested, answered)
}

func TestCloseOpenCallsAnswersMissingResults(t *testing.T) {
	tr := &turn{pending: []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, ToolCalls: []*tools.ToolCall{
			call("a", "risk-analyzer", `{}`),
			call("b", "brave-search", `{}`),
		}},
		{Role: llm.RoleTool, ToolCallID: "a", ToolName: "risk-analyzer", Content: "{}"},
	}}
	tr.closeOpenCalls()

	require.Len(t, tr.pending, 4)
	last := tr.pending[3]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Equal(t, "b", last.ToolCallID)
	assert.Equal(t, "brave-search", last.ToolName)
	assert.Contains(t, last.Content, "cancelled")

	tr.closeOpenCalls()
	assert.Len(t, tr.pending, 4)
}

func TestTrimToUserTurn(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleTool, ToolCallID: "orphan"},
		{Role: llm.RoleAssistant, Content: "x"},
		{Role: llm.RoleUser, Content: "start"},
		{Role: llm.RoleAssistant, Content: "reply"},
	}
	assert.Equal(t, history[2:], trimToUserTurn(history))
	assert.Nil(t, trimToUserTurn(history[:2]))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	a, _ := newTestAgent(t, &scriptedModel{})
	assert.Equal(t, "pmo-agent", a.ID)
	assert.Equal(t, "PMO Agent", a.Name)
	assert.Equal(t, DefaultInstructions, a.Instructions())
}
