package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dileep-u-k/pmo-assistant/internal/llm"
)

// Redis keeps each thread as a list of JSON messages.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// ThreadTTL is how long an idle thread is kept in Redis.
const ThreadTTL = 30 * 24 * time.Hour

// NewRedis connects to the server named by url and pings it.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ThreadTTL}, nil
}

func threadKey(threadID string) string {
	return fmt.Sprintf("pmo:thread:%s:messages", threadID)
}

func (r *Redis) Messages(ctx context.Context, threadID string, limit int) ([]llm.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	items, err := r.rdb.LRange(ctx, threadKey(threadID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read thread %s: %w", threadID, err)
	}

	out := make([]llm.Message, 0, len(items))
	for _, item := range items {
		m, err := decodeMessage([]byte(item))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *Redis) Append(ctx context.Context, threadID string, msgs ...llm.Message) error {
	if err := validThread(threadID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		body, err := encodeMessage(m)
		if err != nil {
			return err
		}
		values = append(values, body)
	}

	key := threadKey(threadID)
	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append to thread %s: %w", threadID, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
