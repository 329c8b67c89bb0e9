// In file: internal/tools/types.go

// Package tools holds the PMO assistant's tools and the registry the agent,
// the MCP server and the CLI look them up in.
//
// Each tool publishes a Definition: a stable id, a description for the agent
// model, an input schema and, for tools backed by the completions endpoint,
// an output schema whose defaults are applied to every model reply.
package tools

import "github.com/dileep-u-k/pmo-assistant/internal/schema"

// ToolTypeFunction is the standard type for function-based tools.
const ToolTypeFunction = "function"

// Definition describes a registered tool. It is built once when the tool is
// constructed and never changes afterwards.
type Definition struct {
	// ID is the registry key, also used as the function name shown to the
	// agent model and as the join key for tool events in the chat stream.
	ID          string             `json:"id"`
	Description string             `json:"description"`
	InputSchema *schema.JSONSchema `json:"input_schema"`
	// OutputSchema is nil for tools that pass through an external API reply.
	OutputSchema *schema.JSONSchema `json:"output_schema,omitempty"`
}

// Function converts the definition into what the agent model is told about.
func (d Definition) Function() Tool {
	return NewFunctionTool(d.ID, d.Description, d.InputSchema)
}

// Tool is a function declaration sent *to* the agent model.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function defines the name, description, and parameters of a callable tool.
type Function struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *schema.JSONSchema `json:"parameters"`
}

// ToolCall represents a request *from* the agent model to run a tool.
type ToolCall struct {
	// ID matches the tool result back to the call in the next model turn.
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction holds the name and arguments of a function call. Arguments
// is the JSON text the model produced.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewFunctionTool builds a Tool of type "function".
func NewFunctionTool(name, description string, parameters *schema.JSONSchema) Tool {
	return Tool{
		Type: ToolTypeFunction,
		Function: Function{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}
