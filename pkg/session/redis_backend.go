package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements StorageBackend using Redis.
// It provides transcript storage suitable for multi-node deployments.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all transcript keys (default: "shopbot:transcript:").
	Prefix string
	// TranscriptTTL is the transcript expiry duration (0 = never expire).
	TranscriptTTL time.Duration
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

// NewRedisBackend creates a new Redis storage backend.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "shopbot:transcript:"
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBackend{
		client: client,
		prefix: prefix,
		ttl:    cfg.TranscriptTTL,
	}, nil
}

// NewRedisBackendFromClient creates a Redis backend from an existing client.
// This is useful for testing with miniredis.
func NewRedisBackendFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = "shopbot:transcript:"
	}
	return &RedisBackend{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key helpers
func (b *RedisBackend) metaKey(transcriptID string) string {
	return b.prefix + "meta:" + transcriptID
}

func (b *RedisBackend) turnsKey(transcriptID string) string {
	return b.prefix + "turns:" + transcriptID
}

func (b *RedisBackend) indexKey() string {
	return b.prefix + "index"
}

// SaveTranscript creates or updates transcript metadata.
func (b *RedisBackend) SaveTranscript(ctx context.Context, meta *TranscriptMetadata) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrStorageClosed
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal transcript metadata: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.metaKey(meta.ID), data, b.ttl)
	pipe.SAdd(ctx, b.indexKey(), meta.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// LoadTranscript retrieves transcript metadata by ID.
func (b *RedisBackend) LoadTranscript(ctx context.Context, transcriptID string) (*TranscriptMetadata, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrStorageClosed
	}

	data, err := b.client.Get(ctx, b.metaKey(transcriptID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	var meta TranscriptMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse transcript metadata: %w", err)
	}
	return &meta, nil
}

// DeleteTranscript removes a transcript and all its turns.
func (b *RedisBackend) DeleteTranscript(ctx context.Context, transcriptID string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrStorageClosed
	}

	exists, err := b.client.Exists(ctx, b.metaKey(transcriptID)).Result()
	if err != nil {
		return fmt.Errorf("check transcript: %w", err)
	}
	if exists == 0 {
		return ErrTranscriptNotFound
	}

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, b.metaKey(transcriptID))
	pipe.Del(ctx, b.turnsKey(transcriptID))
	pipe.SRem(ctx, b.indexKey(), transcriptID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	return nil
}

// ListTranscripts returns transcripts matching the filter options,
// newest first.
func (b *RedisBackend) ListTranscripts(ctx context.Context, opts ListOptions) ([]*TranscriptMetadata, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrStorageClosed
	}

	ids, err := b.client.SMembers(ctx, b.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}

	results := make([]*TranscriptMetadata, 0, len(ids))
	for _, id := range ids {
		data, err := b.client.Get(ctx, b.metaKey(id)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Metadata expired; skip the dangling index entry.
				continue
			}
			return nil, fmt.Errorf("load transcript %s: %w", id, err)
		}
		var meta TranscriptMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("parse transcript %s: %w", id, err)
		}
		if opts.UserID != "" && meta.UserID != opts.UserID {
			continue
		}
		results = append(results, &meta)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})

	return paginate(results, opts), nil
}

// AppendTurn adds a turn to a transcript's Redis list.
func (b *RedisBackend) AppendTurn(ctx context.Context, transcriptID string, turn *Turn) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrStorageClosed
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.RPush(ctx, b.turnsKey(transcriptID), data)
	if b.ttl > 0 {
		pipe.Expire(ctx, b.turnsKey(transcriptID), b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// LoadTurns retrieves all turns for a transcript in order.
func (b *RedisBackend) LoadTurns(ctx context.Context, transcriptID string) ([]*Turn, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrStorageClosed
	}

	raw, err := b.client.LRange(ctx, b.turnsKey(transcriptID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	turns := make([]*Turn, 0, len(raw))
	for _, line := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(line), &turn); err != nil {
			return nil, fmt.Errorf("parse turn: %w", err)
		}
		turns = append(turns, &turn)
	}
	return turns, nil
}

// Close releases the Redis client.
func (b *RedisBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.client.Close()
}
