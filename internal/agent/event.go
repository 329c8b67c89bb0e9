package agent

import (
	"encoding/json"

	"github.com/dileep-u-k/pmo-assistant/internal/api"
)

// EventType names the kind of a streamed Event.
type EventType string

const (
	EventText       EventType = "text"
	EventToolCall   EventType = "tool-call"
	EventToolResult EventType = "tool-result"
	EventError      EventType = "error"
	EventFinish     EventType = "finish"
)

// ToolState is the rendering state of a tool call.
type ToolState string

const (
	StatePending ToolState = "pending"
	StateSettled ToolState = "settled"
)

// Event is one item of an agent turn. Tool events carry the registry id in
// Tool so a UI can pick the widget for it.
type Event struct {
	Type       EventType       `json:"type"`
	ThreadID   string          `json:"thread_id,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Tool       string          `json:"tool,omitempty"`
	State      ToolState       `json:"state,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     any             `json:"result,omitempty"`
	Text       string          `json:"text,omitempty"`
	Error      string          `json:"error,omitempty"`
	Usage      *api.Usage      `json:"usage,omitempty"`
}

// rawArgs returns the model's arguments as JSON, quoting them when the model
// produced something that is not valid JSON.
func rawArgs(arguments string) json.RawMessage {
	if arguments == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	b, _ := json.Marshal(arguments)
	return b
}
