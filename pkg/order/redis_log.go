package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLog implements Log on a Redis list, for deployments where
// several bot workers share one order log. RPush serializes concurrent
// appends on the server side.
type RedisLog struct {
	client *redis.Client
	key    string
	mu     sync.RWMutex
	closed bool
}

// RedisLogConfig holds Redis connection configuration for the log.
type RedisLogConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Key is the list key (default: "shopbot:orders").
	Key string
}

// NewRedisLog creates a Redis-backed order log.
func NewRedisLog(cfg RedisLogConfig) (*RedisLog, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisLogFromClient(client, cfg.Key), nil
}

// NewRedisLogFromClient creates a Redis log from an existing client.
// This is useful for testing with miniredis.
func NewRedisLogFromClient(client *redis.Client, key string) *RedisLog {
	if key == "" {
		key = "shopbot:orders"
	}
	return &RedisLog{client: client, key: key}
}

// Append writes one order record to the end of the log.
func (r *RedisLog) Append(ctx context.Context, o *Order) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrLogClosed
	}
	r.mu.RUnlock()

	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	if err := r.client.RPush(ctx, r.key, data).Err(); err != nil {
		return fmt.Errorf("append order: %w", err)
	}

	return nil
}

// List returns all records in append order.
func (r *RedisLog) List(ctx context.Context) ([]*Order, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrLogClosed
	}
	r.mu.RUnlock()

	data, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]*Order, 0, len(data))
	for _, d := range data {
		var o Order
		if err := json.Unmarshal([]byte(d), &o); err != nil {
			return nil, fmt.Errorf("parse order record: %w", err)
		}
		orders = append(orders, &o)
	}

	return orders, nil
}

// Get returns the record with the given order ID.
func (r *RedisLog) Get(ctx context.Context, orderID string) (*Order, error) {
	orders, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return nil, ErrOrderNotFound
}

// UpdateStatus changes one record's status field in place.
func (r *RedisLog) UpdateStatus(ctx context.Context, orderID, status string) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrLogClosed
	}
	r.mu.RUnlock()

	data, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}

	for i, d := range data {
		var o Order
		if err := json.Unmarshal([]byte(d), &o); err != nil {
			return fmt.Errorf("parse order record: %w", err)
		}
		if o.ID != orderID {
			continue
		}

		o.Status = status
		updated, err := json.Marshal(&o)
		if err != nil {
			return fmt.Errorf("marshal order: %w", err)
		}
		if err := r.client.LSet(ctx, r.key, int64(i), updated).Err(); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	}

	return ErrOrderNotFound
}

// Close releases the Redis client.
func (r *RedisLog) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}
