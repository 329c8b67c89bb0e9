// In file: cmd/assistant/server.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dileep-u-k/pmo-assistant/internal/agent"
	"github.com/dileep-u-k/pmo-assistant/internal/api"
	"github.com/dileep-u-k/pmo-assistant/internal/llm"
	"github.com/dileep-u-k/pmo-assistant/internal/logging"
	"github.com/dileep-u-k/pmo-assistant/internal/tools"
	"github.com/dileep-u-k/pmo-assistant/internal/version"
)

const (
	errInvalidMessages = "Invalid messages format"
	errInternal        = "Internal server error"

	headerRequestID = "X-Request-Id"
	headerThreadID  = "X-Thread-Id"
)

// chatAgent is what the handlers need from the agent.
type chatAgent interface {
	Stream(ctx context.Context, threadID string, msgs []api.ChatMessage) (<-chan agent.Event, error)
	History(ctx context.Context, threadID string) ([]llm.Message, error)
}

// ChatHandler serves the chat endpoint and its companions.
type ChatHandler struct {
	agent    chatAgent
	registry *tools.Registry
	logger   *logging.Logger
}

func NewChatHandler(a chatAgent, registry *tools.Registry, logger *logging.Logger) *ChatHandler {
	return &ChatHandler{agent: a, registry: registry, logger: logging.OrSilent(logger)}
}

// chatBody keeps messages raw so a non-array value can be told apart from a
// malformed element.
type chatBody struct {
	Messages json.RawMessage `json:"messages"`
	ThreadID string          `json:"thread_id"`
}

// HandleChat runs one agent turn and streams its events as server-sent events.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var body chatBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: errInvalidMessages})
		return
	}
	messages, ok := decodeMessages(body.Messages)
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: errInvalidMessages})
		return
	}

	threadID := body.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}
	logger := requestLogger(c, h.logger)

	events, err := h.agent.Stream(c.Request.Context(), threadID, messages)
	if errors.Is(err, agent.ErrNoMessages) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: errInvalidMessages})
		return
	}
	if err != nil {
		logger.Error().Err(err).Str("thread_id", threadID).Msg("failed to start agent turn")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: errInternal, Details: err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header(headerThreadID, threadID)

	c.Status(http.StatusOK)
	c.Writer.Flush()

	// The agent stops on its own once the request context is cancelled.
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(string(ev.Type), ev)
			c.Writer.Flush()
		}
	}
}

func decodeMessages(raw json.RawMessage) ([]api.ChatMessage, bool) {
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var msgs []api.ChatMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, false
	}
	return msgs, true
}

// HandleTools lists the registered tools. UIs match tool events against these ids.
func (h *ChatHandler) HandleTools(c *gin.Context) {
	defs := h.registry.Definitions()
	infos := make([]api.ToolInfo, 0, len(defs))
	for _, d := range defs {
		info := api.ToolInfo{ID: d.ID, Description: d.Description, InputSchema: d.InputSchema}
		if d.OutputSchema != nil {
			info.OutputSchema = d.OutputSchema
		}
		infos = append(infos, info)
	}
	c.JSON(http.StatusOK, gin.H{"tools": infos})
}

// HandleThreadMessages returns the stored conversation of a thread.
func (h *ChatHandler) HandleThreadMessages(c *gin.Context) {
	threadID := c.Param("id")
	msgs, err := h.agent.History(c.Request.Context(), threadID)
	if err != nil {
		requestLogger(c, h.logger).Error().Err(err).Str("thread_id", threadID).Msg("failed to load thread")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: errInternal, Details: err.Error()})
		return
	}
	if msgs == nil {
		msgs = []llm.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"thread_id": threadID, "messages": msgs})
}

func (h *ChatHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"tools":  h.registry.Count(),
		"build":  version.Get(),
	})
}

// NewRouter builds the gin engine with request logging and JSON panic recovery.
func NewRouter(h *ChatHandler, logger *logging.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(requestID(), accessLog(logger), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:   errInternal,
			Details: fmt.Sprint(recovered),
		})
	}))

	engine.GET("/healthz", h.HandleHealth)
	apiGroup := engine.Group("/api")
	{
		apiGroup.POST("/chat", h.HandleChat)
		apiGroup.GET("/tools", h.HandleTools)
		apiGroup.GET("/threads/:id/messages", h.HandleThreadMessages)
	}
	return engine
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(headerRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestLogger(c *gin.Context, logger *logging.Logger) *logging.Logger {
	return logger.WithCorrelationId(c.GetString(headerRequestID))
}

func accessLog(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		requestLogger(c, logger).Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request completed")
	}
}
