package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dileep-u-k/pmo-assistant/internal/completion"
	"github.com/dileep-u-k/pmo-assistant/internal/logging"
	"github.com/dileep-u-k/pmo-assistant/internal/schema"
)

// DefaultToolModel is the model the PMO tools ask for unless configured otherwise.
const DefaultToolModel = "gpt-5-nano"

// Backend is the completions access shared by every LLM-backed tool.
type Backend struct {
	Completer completion.Completer
	Model     string
	Logger    *logging.Logger
}

// LLMTool is a tool that turns its input into one prompt, sends it to the
// completions endpoint and returns the reply with its output defaults filled.
// In is the tool's typed input.
type LLMTool[In any] struct {
	def         Definition
	persona     string
	temperature *float64
	newInput    func() In
	prompt      func(In) string
	backend     Backend
	logger      *logging.Logger
}

var _ ToolExecutor = (*LLMTool[struct{}])(nil)

func newLLMTool[In any](def Definition, persona string, temperature *float64, newInput func() In, prompt func(In) string, b Backend) *LLMTool[In] {
	if b.Model == "" {
		b.Model = DefaultToolModel
	}
	return &LLMTool[In]{
		def:         def,
		persona:     persona,
		temperature: temperature,
		newInput:    newInput,
		prompt:      prompt,
		backend:     b,
		logger:      logging.OrSilent(b.Logger),
	}
}

// Definition implements ToolExecutor.
func (t *LLMTool[In]) Definition() Definition { return t.def }

// Execute implements ToolExecutor. Input defaults are set before decoding so
// absent optional fields keep them.
func (t *LLMTool[In]) Execute(ctx context.Context, arguments json.RawMessage) (any, error) {
	in := t.newInput()
	if err := json.Unmarshal(arguments, &in); err != nil {
		return nil, fmt.Errorf("%s: decode arguments: %w", t.def.ID, err)
	}
	return t.Run(ctx, in)
}

// Prompt returns the user prompt the tool sends for in.
func (t *LLMTool[In]) Prompt(in In) string { return t.prompt(in) }

// Run sends one completions request and normalizes the reply.
func (t *LLMTool[In]) Run(ctx context.Context, in In) (map[string]any, error) {
	start := time.Now()
	body, err := t.backend.Completer.Complete(ctx, completion.Request{
		Model:       t.backend.Model,
		System:      t.persona,
		Prompt:      t.prompt(in),
		Temperature: t.temperature,
	})
	if err != nil {
		t.logger.Warn().Str("tool", t.def.ID).Err(err).Msg("tool completion failed")
		return nil, fmt.Errorf("%s: %w", t.def.ID, err)
	}

	result, err := completion.Decode(body, t.def.OutputSchema)
	if err != nil {
		t.logger.Warn().Str("tool", t.def.ID).Err(err).Msg("tool reply could not be decoded")
		return nil, fmt.Errorf("%s: %w", t.def.ID, err)
	}

	t.logger.Debug().Str("tool", t.def.ID).Dur("duration", time.Since(start)).Msg("tool completed")
	return result, nil
}

func temperature(v float64) *float64 { return &v }

// promptBuilder accumulates the markdown-ish prompt text of a tool.
type promptBuilder struct {
	strings.Builder
}

func (b *promptBuilder) line(format string, args ...any) {
	fmt.Fprintf(b, format, args...)
	b.WriteByte('\n')
}

// text writes s verbatim. User supplied values go through here or through
// a %s verb, never as a format string.
func (b *promptBuilder) text(s string) {
	b.WriteString(s)
	b.WriteByte('\n')
}

func (b *promptBuilder) blank() { b.WriteByte('\n') }

func (b *promptBuilder) heading(format string, args ...any) {
	b.blank()
	b.line(format, args...)
}

func (b *promptBuilder) numbered(items []string) {
	for i, item := range items {
		b.line("%d. %s", i+1, item)
	}
}

// finish appends the exact reply shape and returns the prompt.
func (b *promptBuilder) finish(output *schema.JSONSchema) string {
	b.heading("## Output format")
	b.line("Reply with a single JSON object that has exactly this structure:")
	b.text(output.Skeleton())
	return b.String()
}
