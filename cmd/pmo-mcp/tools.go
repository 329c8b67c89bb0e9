package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dileep-u-k/pmo-assistant/internal/logging"
	"github.com/dileep-u-k/pmo-assistant/internal/tools"
)

// registerTools exposes every registry tool as an MCP tool of the same name.
func registerTools(s *server.MCPServer, registry *tools.Registry, logger *logging.Logger) error {
	for _, def := range registry.Definitions() {
		tool, err := mcpTool(def)
		if err != nil {
			return err
		}
		s.AddTool(tool, handleTool(registry, def.ID, logger))
	}
	return nil
}

func mcpTool(def tools.Definition) (mcp.Tool, error) {
	raw, err := json.Marshal(def.InputSchema)
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("marshal input schema of %s: %w", def.ID, err)
	}
	return mcp.NewToolWithRawSchema(def.ID, def.Description, raw), nil
}

// handleTool runs one registry tool. Tool failures are reported as MCP error
// results so the client model can see them; they are not protocol errors.
func handleTool(registry *tools.Registry, id string, logger *logging.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.GetArguments())
		if err != nil {
			return errorResult(fmt.Sprintf("Error: invalid arguments: %v", err)), nil
		}

		start := time.Now()
		result, err := registry.Execute(ctx, id, args)
		if err != nil {
			logger.Warn().Str("tool", id).Err(err).Msg("MCP tool call failed")
			return errorResult(fmt.Sprintf("Error executing tool %s: %v", id, err)), nil
		}
		logger.Info().Str("tool", id).Dur("duration", time.Since(start)).Msg("MCP tool call")

		text, ok := result.(string)
		if !ok {
			b, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return errorResult(fmt.Sprintf("Error encoding result: %v", err)), nil
			}
			text = string(b)
		}
		return textResult(text), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(message)},
		IsError: true,
	}
}
