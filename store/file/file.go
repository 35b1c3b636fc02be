// Package file provides a checkpoint store that keeps one JSON document
// per thread under a directory. Documents are written to a temporary
// file and renamed into place, so a checkpoint on disk is always either
// the previous one or the new one, never a torn write.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/loomgraph/loom/store"
)

// CheckpointStore implements store.CheckpointStore on a local directory.
type CheckpointStore struct {
	dir string
}

var _ store.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates a file-backed checkpoint store rooted at
// dir, creating the directory if needed.
func NewCheckpointStore(dir string) (*CheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &CheckpointStore{dir: dir}, nil
}

func (s *CheckpointStore) path(threadID string) string {
	// Thread IDs are opaque; escape them so they are safe as file names.
	return filepath.Join(s.dir, url.PathEscape(threadID)+".json")
}

// Save writes the checkpoint atomically.
func (s *CheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	target := s.path(checkpoint.ThreadID)
	tmp, err := os.CreateTemp(s.dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// Load reads the checkpoint for the thread ID, or (nil, nil) if none
// exists.
func (s *CheckpointStore) Load(_ context.Context, threadID string) (*store.Checkpoint, error) {
	data, err := os.ReadFile(s.path(threadID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// Delete removes the checkpoint for the thread ID.
func (s *CheckpointStore) Delete(_ context.Context, threadID string) error {
	err := os.Remove(s.path(threadID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
