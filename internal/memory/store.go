// Package memory persists agent conversations per thread.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dileep-u-k/pmo-assistant/internal/llm"
)

// DefaultURL is used when DATABASE_URL is empty.
const DefaultURL = "file:pmo.db"

// ErrUnsupportedURL is returned by Open for an unknown scheme.
var ErrUnsupportedURL = errors.New("memory: unsupported database url")

// Store keeps the message history of agent threads.
type Store interface {
	// Messages returns the last limit messages of a thread in conversation
	// order. A limit of zero or less returns the whole thread.
	Messages(ctx context.Context, threadID string, limit int) ([]llm.Message, error)
	// Append adds messages to the end of a thread.
	Append(ctx context.Context, threadID string, msgs ...llm.Message) error
	Close() error
}

// Open selects a backend from the url scheme:
//
//	file:, sqlite: or a plain path  SQLite
//	postgres://, postgresql://      PostgreSQL
//	redis://, rediss://             Redis
func Open(ctx context.Context, url string) (Store, error) {
	if url == "" {
		url = DefaultURL
	}
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgres(ctx, url)
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return NewRedis(ctx, url)
	case strings.HasPrefix(url, "sqlite:"):
		return NewSQLite(ctx, strings.TrimPrefix(strings.TrimPrefix(url, "sqlite:"), "//"))
	case strings.HasPrefix(url, "file:"), !strings.Contains(url, "://"):
		return NewSQLite(ctx, url)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
	}
}

func encodeMessage(m llm.Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return b, nil
}

func decodeMessage(b []byte) (llm.Message, error) {
	var m llm.Message
	if err := json.Unmarshal(b, &m); err != nil {
		return llm.Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

func validThread(threadID string) error {
	if threadID == "" {
		return errors.New("memory: thread id is empty")
	}
	return nil
}
