// In file: internal/tools/executor.go
package tools

import (
	"context"
	"encoding/json"
)

// ToolExecutor is implemented by every tool the registry can run.
type ToolExecutor interface {
	// Definition returns the tool's id and schemas.
	Definition() Definition

	// Execute runs the tool with arguments that already passed validation
	// against the input schema. The result is JSON-serializable.
	Execute(ctx context.Context, arguments json.RawMessage) (any, error)
}
