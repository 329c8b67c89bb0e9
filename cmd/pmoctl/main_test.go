package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dileep-u-k/pmo-assistant/internal/agent"
	"github.com/dileep-u-k/pmo-assistant/internal/api"
	"github.com/dileep-u-k/pmo-assistant/internal/completion"
	"github.com/dileep-u-k/pmo-assistant/internal/tools"
)

func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "DATABASE_URL", "AGENT_PROVIDER", "AGENT_MODEL", "AGENT_BASE_URL",
		"AGENT_MAX_STEPS", "TOOLS_MODEL", "TOOLS_ENDPOINT", "TOOLS_TIMEOUT", "OPENAI_API_KEY",
		"DIFY_API_KEY",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("GIN_MODE", "release")
	t.Setenv("PMO_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestToolsList(t *testing.T) {
	isolate(t)

	out, err := run(t, "tools", "list")
	require.NoError(t, err)

	assert.Contains(t, out, "Tools (9)")
	for _, id := range []string{tools.RiskAnalyzerID, tools.GoalSettingID, tools.BraveSearchID, tools.JinaScraperID} {
		assert.Contains(t, out, id)
	}
	assert.NotContains(t, out, tools.DifyRAGID)
}

func TestToolsSchema(t *testing.T) {
	isolate(t)

	out, err := run(t, "tools", "schema", tools.RiskAnalyzerID)
	require.NoError(t, err)
	var input map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &input))
	assert.Equal(t, "object", input["type"])
	assert.Contains(t, input["properties"], "project_phase")

	out, err = run(t, "tools", "schema", tools.RiskAnalyzerID, "--output")
	require.NoError(t, err)
	var output map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &output))
	assert.Contains(t, output["properties"], "risk_register")

	_, err = run(t, "tools", "schema", tools.BraveSearchID, "--output")
	assert.ErrorContains(t, err, "no output schema")

	_, err = run(t, "tools", "schema", "nope")
	assert.ErrorIs(t, err, tools.ErrToolNotFound)
}

func TestToolsRun(t *testing.T) {
	isolate(t)

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"risk_register\":[]}"}}]}`))
	}))
	defer srv.Close()
	t.Setenv("TOOLS_ENDPOINT", srv.URL)
	t.Setenv("OPENAI_API_KEY", "test-key")

	out, err := run(t, "tools", "run", tools.RiskAnalyzerID,
		"--input", `{"project_context":"ERP rollout","project_type":"system development","project_phase":"planning"}`)
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []any{}, result["risk_register"])
	assert.Contains(t, result, "overall_risk_assessment")
	assert.Equal(t, "json_object", got["response_format"].(map[string]any)["type"])
}

func TestToolsRunRejectsBadInput(t *testing.T) {
	isolate(t)

	_, err := run(t, "tools", "run", tools.RiskAnalyzerID, "--input", `{"project_context":"x"}`)
	var validation *tools.ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = run(t, "tools", "run", tools.RiskAnalyzerID, "--input", "{}", "--input-file", "x.json")
	assert.ErrorContains(t, err, "not both")
}

func TestToolsRunExplainsMissingKey(t *testing.T) {
	isolate(t)

	_, err := run(t, "tools", "run", tools.RiskAnalyzerID,
		"--input", `{"project_context":"x","project_type":"y","project_phase":"z"}`)
	var cfgErr *completion.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "OPENAI_API_KEY", cfgErr.Variable)
	assert.Contains(t, err.Error(), "export OPENAI_API_KEY")
}

func TestReadInputFromStdin(t *testing.T) {
	raw, err := readInput(strings.NewReader(`{"query":"pmo"}`), "", "-")
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":"pmo"}`, string(raw))

	raw, err = readInput(nil, "", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestRenderEvents(t *testing.T) {
	events := make(chan agent.Event, 5)
	events <- agent.Event{Type: agent.EventToolCall, Tool: "risk-analyzer", Args: json.RawMessage(`{"a":1}`)}
	events <- agent.Event{Type: agent.EventToolResult, Tool: "risk-analyzer", State: agent.StateSettled}
	events <- agent.Event{Type: agent.EventText, Text: "Here is the plan."}
	events <- agent.Event{Type: agent.EventFinish, ThreadID: "t-1", Usage: &api.Usage{TotalTokens: 42}}
	close(events)

	var out bytes.Buffer
	require.NoError(t, renderEvents(&out, events))
	assert.Contains(t, out.String(), "risk-analyzer")
	assert.Contains(t, out.String(), "Here is the plan.")
	assert.Contains(t, out.String(), "thread t-1")
	assert.Contains(t, out.String(), "42 tokens")

	failing := make(chan agent.Event, 1)
	failing <- agent.Event{Type: agent.EventError, Error: "model unavailable"}
	close(failing)
	assert.ErrorContains(t, renderEvents(&out, failing), "model unavailable")
}
