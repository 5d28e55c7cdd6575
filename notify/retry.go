package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Envelope is a message waiting for another delivery attempt.
type Envelope struct {
	Message  Message `json:"message"`
	Attempts int     `json:"attempts"`
}

// RetryQueue holds failed messages in FIFO order.
type RetryQueue interface {
	Push(ctx context.Context, env Envelope) error
	// Pop returns false when the queue is empty.
	Pop(ctx context.Context) (Envelope, bool, error)
	Len(ctx context.Context) (int, error)
}

type MemoryRetryQueue struct {
	mu    sync.Mutex
	items []Envelope
}

func NewMemoryRetryQueue() *MemoryRetryQueue {
	return &MemoryRetryQueue{}
}

func (q *MemoryRetryQueue) Push(_ context.Context, env Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, env)
	return nil
}

func (q *MemoryRetryQueue) Pop(_ context.Context) (Envelope, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Envelope{}, false, nil
	}
	env := q.items[0]
	q.items[0] = Envelope{}
	q.items = q.items[1:]
	return env, true, nil
}

func (q *MemoryRetryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items), nil
}

const DefaultRedisRetryKey = "tour-booking:notify:retry"

// RedisRetryQueue keeps envelopes as JSON in a Redis list so that pending
// emails survive a restart.
type RedisRetryQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisRetryQueue(rdb *redis.Client, key string) *RedisRetryQueue {
	if key == "" {
		key = DefaultRedisRetryKey
	}
	return &RedisRetryQueue{rdb: rdb, key: key}
}

func (q *RedisRetryQueue) Push(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope %v: %w", env.Message.Id, err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redis lpush %s: %w", q.key, err)
	}
	return nil
}

func (q *RedisRetryQueue) Pop(ctx context.Context) (Envelope, bool, error) {
	payload, err := q.rdb.RPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Envelope{}, false, nil
	}
	if err != nil {
		return Envelope{}, false, fmt.Errorf("redis rpop %s: %w", q.key, err)
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, false, fmt.Errorf("decode envelope: %w", err)
	}
	return env, true, nil
}

func (q *RedisRetryQueue) Len(ctx context.Context) (int, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen %s: %w", q.key, err)
	}
	return int(n), nil
}

var (
	_ RetryQueue = (*MemoryRetryQueue)(nil)
	_ RetryQueue = (*RedisRetryQueue)(nil)
)
