package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by Queue.Pop when nothing arrived before the timeout.
var ErrQueueEmpty = errors.New("queue empty")

// Queue is the list a worker consumes.
type Queue interface {
	// Pop blocks up to timeout for the next item.
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	// TryPop returns the next item without blocking.
	TryPop(ctx context.Context) (string, error)
	Push(ctx context.Context, item string) error
}

// RedisQueue is a Queue on a Redis list.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", ErrQueueEmpty
	}
	return res[1], nil
}

func (q *RedisQueue) TryPop(ctx context.Context) (string, error) {
	item, err := q.rdb.LPop(ctx, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	return item, err
}

func (q *RedisQueue) Push(ctx context.Context, item string) error {
	return q.rdb.RPush(ctx, q.key, item).Err()
}

// isPermanent reports database errors that will fail the same way on every
// retry: bad data (SQLSTATE class 22) and constraint violations (class 23).
func isPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) < 2 {
		return false
	}
	switch pgErr.Code[:2] {
	case "22", "23":
		return true
	}
	return false
}

// deadLetter is the record parked on the dead-letter list.
type deadLetter struct {
	Queue   string          `json:"queue"`
	Error   string          `json:"error"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

func parkDead(ctx context.Context, dead Queue, source, item string, cause error) error {
	payload := json.RawMessage(item)
	if !json.Valid(payload) {
		// Unparseable items are kept verbatim as a JSON string.
		payload, _ = json.Marshal(item)
	}
	raw, err := json.Marshal(deadLetter{
		Queue:   source,
		Error:   cause.Error(),
		Payload: payload,
		At:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return dead.Push(ctx, string(raw))
}
