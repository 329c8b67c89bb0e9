package memory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dileep-u-k/pmo-assistant/internal/llm"
)

// Postgres stores threads in a shared PostgreSQL database.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects, verifies the connection and creates the table.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pmo_messages (
			id         BIGSERIAL PRIMARY KEY,
			thread_id  TEXT NOT NULL,
			role       TEXT NOT NULL,
			body       JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create messages table: %w", err)
	}
	_, err = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_pmo_messages_thread ON pmo_messages (thread_id, id)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create messages index: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Messages(ctx context.Context, threadID string, limit int) ([]llm.Message, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	// LIMIT NULL means no limit in PostgreSQL.
	rows, err := p.pool.Query(ctx, `
		SELECT body FROM (
			SELECT id, body FROM pmo_messages WHERE thread_id = $1 ORDER BY id DESC LIMIT $2
		) t ORDER BY id ASC`, threadID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("query thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var out []llm.Message
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m, err := decodeMessage(body)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) Append(ctx context.Context, threadID string, msgs ...llm.Message) error {
	if err := validThread(threadID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, m := range msgs {
		body, err := encodeMessage(m)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO pmo_messages (thread_id, role, body) VALUES ($1, $2, $3)`,
			threadID, string(m.Role), body,
		); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
