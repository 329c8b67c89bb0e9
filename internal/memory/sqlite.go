package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/dileep-u-k/pmo-assistant/internal/llm"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_id  TEXT NOT NULL,
	role       TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages (thread_id, id);
`

// SQLite stores threads in a local database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates when needed) the database at dsn. The dsn is
// passed to the modernc driver, so ":memory:" works for tests.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn != ":memory:" && !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; also keeps a ":memory:" database on one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Messages(ctx context.Context, threadID string, limit int) ([]llm.Message, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM (
			SELECT id, body FROM messages WHERE thread_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("query thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var out []llm.Message
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m, err := decodeMessage([]byte(body))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLite) Append(ctx context.Context, threadID string, msgs ...llm.Message) error {
	if err := validThread(threadID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range msgs {
		body, err := encodeMessage(m)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (thread_id, role, body) VALUES (?, ?, ?)`,
			threadID, string(m.Role), string(body),
		); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
