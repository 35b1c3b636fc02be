// Package sqlite provides a SQLite-backed checkpoint store. Checkpoints
// are upserted as JSON-encoded rows keyed by thread_id, giving durable
// single-file persistence without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/loomgraph/loom/store"
)

// Options configures the SQLite connection.
type Options struct {
	Path      string
	TableName string // default "checkpoints"
}

// CheckpointStore implements store.CheckpointStore using SQLite.
type CheckpointStore struct {
	db        *sql.DB
	tableName string
}

var _ store.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates a SQLite checkpoint store and ensures the
// table exists.
func NewCheckpointStore(opts Options) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "checkpoints"
	}

	s := &CheckpointStore{
		db:        db,
		tableName: tableName,
	}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the checkpoint table if it doesn't exist.
func (s *CheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			pending_nodes TEXT NOT NULL,
			interrupted INTEGER NOT NULL,
			updated_at DATETIME NOT NULL,
			metadata TEXT
		);
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
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
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			state = excluded.state,
			pending_nodes = excluded.pending_nodes,
			interrupted = excluded.interrupted,
			updated_at = excluded.updated_at,
			metadata = excluded.metadata
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		checkpoint.ThreadID,
		string(stateJSON),
		string(pendingJSON),
		checkpoint.Interrupted,
		checkpoint.UpdatedAt,
		string(metadataJSON),
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
		WHERE thread_id = ?
	`, s.tableName)

	var cp store.Checkpoint
	var stateJSON, pendingJSON, metadataJSON string

	err := s.db.QueryRowContext(ctx, query, threadID).Scan(
		&cp.ThreadID,
		&stateJSON,
		&pendingJSON,
		&cp.Interrupted,
		&cp.UpdatedAt,
		&metadataJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if err := json.Unmarshal([]byte(pendingJSON), &cp.PendingNodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending nodes: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal([]byte(metadataJSON), &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &cp, nil
}

// Delete removes the checkpoint for the thread ID.
func (s *CheckpointStore) Delete(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE thread_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
