// In file: internal/tools/manager.go
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrToolNotFound is returned when no tool is registered under an id.
	ErrToolNotFound = errors.New("tool not found")
	// ErrDuplicateTool is returned when an id is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")
)

// ValidationError lists every way the arguments violate a tool's input schema.
type ValidationError struct {
	Tool     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Problems, "; "))
}

type registeredTool struct {
	executor ToolExecutor
	def      Definition
	schema   *gojsonschema.Schema
}

// Registry maps tool ids to tools. It is filled once at start-up by the
// composition root and only read afterwards, so lookups need no locking.
type Registry struct {
	tools map[string]registeredTool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register adds a tool under its definition id. The input schema is compiled
// here so a broken schema fails start-up rather than the first call.
func (r *Registry) Register(tool ToolExecutor) error {
	def := tool.Definition()
	if def.ID == "" {
		return errors.New("tool definition has an empty id")
	}
	if _, exists := r.tools[def.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.ID)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.InputSchema))
	if err != nil {
		return fmt.Errorf("compile input schema for %s: %w", def.ID, err)
	}
	r.tools[def.ID] = registeredTool{executor: tool, def: def, schema: compiled}
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Registry) MustRegister(tools ...ToolExecutor) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id string) (Definition, bool) {
	t, ok := r.tools[id]
	return t.def, ok
}

// IDs returns every registered id in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Definitions returns every definition, sorted by id.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.tools))
	for _, id := range r.IDs() {
		defs = append(defs, r.tools[id].def)
	}
	return defs
}

// Functions returns the function declarations handed to the agent model.
func (r *Registry) Functions() []Tool {
	defs := r.Definitions()
	fns := make([]Tool, 0, len(defs))
	for _, d := range defs {
		fns = append(fns, d.Function())
	}
	return fns
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.tools)
}

// Execute validates arguments against the tool's input schema and runs it.
// Empty arguments are treated as an empty object.
func (r *Registry) Execute(ctx context.Context, id string, arguments json.RawMessage) (any, error) {
	t, ok := r.tools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, id)
	}
	if len(bytes.TrimSpace(arguments)) == 0 {
		arguments = json.RawMessage("{}")
	}

	result, err := t.schema.Validate(gojsonschema.NewBytesLoader(arguments))
	if err != nil {
		return nil, &ValidationError{Tool: id, Problems: []string{err.Error()}}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, &ValidationError{Tool: id, Problems: problems}
	}
	return t.executor.Execute(ctx, arguments)
}
