// Package redis provides a Redis-backed checkpoint store. Checkpoints
// are stored as JSON values keyed by thread ID, optionally expiring
// after a TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/loomgraph/loom/store"
)

// Options configures the Redis connection and key layout.
type Options struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key, default "loom:".
	Prefix string

	// TTL expires checkpoints after the given duration, default 0 (no
	// expiration).
	TTL time.Duration
}

// CheckpointStore implements store.CheckpointStore using Redis.
type CheckpointStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ store.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates a Redis checkpoint store.
func NewCheckpointStore(opts Options) *CheckpointStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "loom:"
	}

	return &CheckpointStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *CheckpointStore) key(threadID string) string {
	return fmt.Sprintf("%sthread:%s", s.prefix, threadID)
}

// Save overwrites the checkpoint for the thread ID.
func (s *CheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := s.client.Set(ctx, s.key(checkpoint.ThreadID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

// Load returns the checkpoint for the thread ID, or (nil, nil) if none
// exists.
func (s *CheckpointStore) Load(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.key(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkpoint from redis: %w", err)
	}

	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// Delete removes the checkpoint for the thread ID.
func (s *CheckpointStore) Delete(ctx context.Context, threadID string) error {
	if err := s.client.Del(ctx, s.key(threadID)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *CheckpointStore) Close() error {
	return s.client.Close()
}
