package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dileep-u-k/pmo-assistant/internal/agent"
	"github.com/dileep-u-k/pmo-assistant/internal/api"
	"github.com/dileep-u-k/pmo-assistant/internal/llm"
	"github.com/dileep-u-k/pmo-assistant/internal/logging"
	"github.com/dileep-u-k/pmo-assistant/internal/tools"
)

type fakeAgent struct {
	events    []agent.Event
	streamErr error
	history   []llm.Message

	gotThread   string
	gotMessages []api.ChatMessage
}

func (f *fakeAgent) Stream(_ context.Context, threadID string, msgs []api.ChatMessage) (<-chan agent.Event, error) {
	f.gotThread, f.gotMessages = threadID, msgs
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	ch := make(chan agent.Event, len(f.events))
	for _, ev := range f.events {
		ev.ThreadID = threadID
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (f *fakeAgent) History(context.Context, string) ([]llm.Message, error) {
	return f.history, nil
}

func newTestRouter(t *testing.T, a chatAgent) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registry, err := tools.NewPMORegistry(tools.Options{})
	require.NoError(t, err)
	logger := logging.NewSilent()
	return NewRouter(NewChatHandler(a, registry, logger), logger)
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var out []sseEvent
	var cur sseEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			cur.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			cur.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && cur.name != "":
			out = append(out, cur)
			cur = sseEvent{}
		}
	}
	return out
}

func TestChatRejectsInvalidMessages(t *testing.T) {
	router := newTestRouter(t, &fakeAgent{})
	for _, body := range []string{
		`{}`,
		`{"messages":null}`,
		`{"messages":"hello"}`,
		`{"messages":{"role":"user"}}`,
		`{"messages":[1,2]}`,
		`not json`,
	} {
		w := do(router, http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"Invalid messages format"}`, w.Body.String(), body)
	}
}

func TestChatRejectsEmptyConversation(t *testing.T) {
	router := newTestRouter(t, &fakeAgent{streamErr: agent.ErrNoMessages})
	w := do(router, http.MethodPost, "/api/chat", `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatReportsInternalErrors(t *testing.T) {
	router := newTestRouter(t, &fakeAgent{streamErr: errors.New("database is locked")})
	w := do(router, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Internal server error", resp.Error)
	assert.Contains(t, resp.Details, "database is locked")
}

func TestChatStreamsEvents(t *testing.T) {
	fake := &fakeAgent{events: []agent.Event{
		{Type: agent.EventToolCall, ToolCallID: "c1", Tool: "risk-analyzer", State: agent.StatePending, Args: json.RawMessage(`{"project_context":"x"}`)},
		{Type: agent.EventToolResult, ToolCallID: "c1", Tool: "risk-analyzer", State: agent.StateSettled, Result: map[string]any{"risk_register": []any{}}},
		{Type: agent.EventText, Text: "Done."},
		{Type: agent.EventFinish, Usage: &api.Usage{TotalTokens: 3}},
	}}
	router := newTestRouter(t, fake)

	w := do(router, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"risks?"}],"thread_id":"thread-9"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "thread-9", w.Header().Get(headerThreadID))
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	assert.Equal(t, "thread-9", fake.gotThread)
	assert.Equal(t, []api.ChatMessage{{Role: "user", Content: "risks?"}}, fake.gotMessages)

	events := parseSSE(t, w.Body.String())
	require.Len(t, events, 4)
	assert.Equal(t, "tool-call", events[0].name)
	assert.Equal(t, "tool-result", events[1].name)
	assert.Equal(t, "text", events[2].name)
	assert.Equal(t, "finish", events[3].name)

	var pending agent.Event
	require.NoError(t, json.Unmarshal([]byte(events[0].data), &pending))
	assert.Equal(t, "risk-analyzer", pending.Tool)
	assert.Equal(t, agent.StatePending, pending.State)
	assert.Equal(t, "thread-9", pending.ThreadID)

	var settled map[string]any
	require.NoError(t, json.Unmarshal([]byte(events[1].data), &settled))
	assert.Equal(t, "settled", settled["state"])
	assert.Equal(t, map[string]any{"risk_register": []any{}}, settled["result"])
}

func TestChatGeneratesThreadID(t *testing.T) {
	fake := &fakeAgent{events: []agent.Event{{Type: agent.EventFinish}}}
	router := newTestRouter(t, fake)

	w := do(router, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, fake.gotThread)
	assert.Equal(t, fake.gotThread, w.Header().Get(headerThreadID))
}

func TestToolsEndpoint(t *testing.T) {
	router := newTestRouter(t, &fakeAgent{})
	w := do(router, http.MethodGet, "/api/tools", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tools []api.ToolInfo `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	ids := make([]string, len(resp.Tools))
	for i, info := range resp.Tools {
		ids[i] = info.ID
		assert.NotNil(t, info.InputSchema)
	}
	assert.Equal(t, []string{
		"action-plan-generator", "brave-search", "document-parser", "goal-setting", "jina-scraper",
		"meeting-designer", "milestone-proposer", "risk-analyzer", "stakeholder-identifier",
	}, ids)
}

func TestThreadMessagesEndpoint(t *testing.T) {
	router := newTestRouter(t, &fakeAgent{history: []llm.Message{{Role: llm.RoleUser, Content: "hello"}}})
	w := do(router, http.MethodGet, "/api/threads/abc/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"thread_id":"abc","messages":[{"role":"user","content":"hello"}]}`, w.Body.String())

	empty := newTestRouter(t, &fakeAgent{})
	w = do(empty, http.MethodGet, "/api/threads/none/messages", "")
	assert.JSONEq(t, `{"thread_id":"none","messages":[]}`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &fakeAgent{})
	w := do(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.EqualValues(t, 9, resp["tools"])
}
