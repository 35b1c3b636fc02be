// Package memory provides an in-process checkpoint store. A completed
// Save is immediately visible to any subsequent Load; state maps are
// shallow-copied on both paths so callers and the store never alias the
// same map.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/loomgraph/loom/store"
)

// CheckpointStore implements store.CheckpointStore with a mutex-guarded map.
type CheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*store.Checkpoint
}

var _ store.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates an empty in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		checkpoints: make(map[string]*store.Checkpoint),
	}
}

// Save overwrites the checkpoint for the thread ID.
func (s *CheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	cp := clone(checkpoint)
	s.mu.Lock()
	s.checkpoints[cp.ThreadID] = cp
	s.mu.Unlock()
	return nil
}

// Load returns the checkpoint for the thread ID, or (nil, nil) if none
// exists.
func (s *CheckpointStore) Load(_ context.Context, threadID string) (*store.Checkpoint, error) {
	s.mu.RLock()
	cp, ok := s.checkpoints[threadID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return clone(cp), nil
}

// Delete removes the checkpoint for the thread ID.
func (s *CheckpointStore) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	delete(s.checkpoints, threadID)
	s.mu.Unlock()
	return nil
}

func clone(cp *store.Checkpoint) *store.Checkpoint {
	out := *cp
	if cp.State != nil {
		out.State = make(map[string]any, len(cp.State))
		maps.Copy(out.State, cp.State)
	}
	out.PendingNodes = slices.Clone(cp.PendingNodes)
	if cp.Metadata != nil {
		out.Metadata = make(map[string]any, len(cp.Metadata))
		maps.Copy(out.Metadata, cp.Metadata)
	}
	return &out
}
