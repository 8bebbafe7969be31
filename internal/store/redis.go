package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayush/social-media-api/internal/models"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// RedisQueue is a FIFO of notifications kept in a Redis list, so pending
// emails survive a restart of this process.
type RedisQueue struct {
	rdb  *redis.Client
	key  string
	wait time.Duration
}

func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key, wait: 2 * time.Second}
}

func (q *RedisQueue) Push(ctx context.Context, n models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return q.rdb.LPush(ctx, q.key, data).Err()
}

// Pop blocks for up to the poll window. It returns nil, nil when nothing
// arrived.
func (q *RedisQueue) Pop(ctx context.Context) (*models.Notification, error) {
	res, err := q.rdb.BRPop(ctx, q.wait, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res is [key, value]
	var n models.Notification
	if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	return &n, nil
}
