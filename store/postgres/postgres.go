// Package postgres provides a PostgreSQL-backed checkpoint store built
// on pgx. Checkpoints are upserted as JSONB rows keyed by thread_id.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomgraph/loom/store"
)

// DBPool is the subset of pgxpool.Pool the store needs; it allows tests
// to substitute a mock.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Options configures the Postgres connection.
type Options struct {
	ConnString string
	TableName  string // default "checkpoints"
}

// CheckpointStore implements store.CheckpointStore using PostgreSQL.
type CheckpointStore struct {
	pool      DBPool
	tableName string
}

var _ store.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates a Postgres checkpoint store and ensures the
// table exists.
func NewCheckpointStore(ctx context.Context, opts Options) (*CheckpointStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	s := NewCheckpointStoreWithPool(pool, opts.TableName)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewCheckpointStoreWithPool creates a Postgres checkpoint store with an
// existing pool. Useful for testing with mocks.
func NewCheckpointStoreWithPool(pool DBPool, tableName string) *CheckpointStore {
	if tableName == "" {
		tableName = "checkpoints"
	}
	return &CheckpointStore{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the checkpoint table if it doesn't exist.
func (s *CheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT PRIMARY KEY,
			state JSONB NOT NULL,
			pending_nodes JSONB NOT NULL,
			interrupted BOOLEAN NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			metadata JSONB
		);
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *CheckpointStore) Close() {
	s.pool.Close()
}

// Save upserts the checkpoint for the thread ID.
func (s *CheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	stateJSON, err := json.Marshal(checkpoint.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	pendingJSON, err := json.Marshal(checkpoint.PendingNodes)
	if err != nil {
		return fmt.Errorf("failed to marshal pending nodes: %w", err)
	}
	metadataJSON, err := json.Marshal(checkpoint.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, state, pending_nodes, interrupted, updated_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (thread_id) DO UPDATE SET
			state = EXCLUDED.state,
			pending_nodes = EXCLUDED.pending_nodes,
			interrupted = EXCLUDED.interrupted,
			updated_at = EXCLUDED.updated_at,
			metadata = EXCLUDED.metadata
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		checkpoint.ThreadID,
		stateJSON,
		pendingJSON,
		checkpoint.Interrupted,
		checkpoint.UpdatedAt,
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load returns the checkpoint for the thread ID, or (nil, nil) if none
// exists.
func (s *CheckpointStore) Load(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT thread_id, state, pending_nodes, interrupted, updated_at, metadata
		FROM %s
		WHERE thread_id = $1
	`, s.tableName)

	var cp store.Checkpoint
	var stateJSON, pendingJSON, metadataJSON []byte

	err := s.pool.QueryRow(ctx, query, threadID).Scan(
		&cp.ThreadID,
		&stateJSON,
		&pendingJSON,
		&cp.Interrupted,
		&cp.UpdatedAt,
		&metadataJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if err := json.Unmarshal(stateJSON, &cp.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if err := json.Unmarshal(pendingJSON, &cp.PendingNodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending nodes: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &cp, nil
}

// Delete removes the checkpoint for the thread ID.
func (s *CheckpointStore) Delete(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE thread_id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
