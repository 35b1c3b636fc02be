package store

import (
	"context"
	"time"
)

// Checkpoint is the persisted snapshot of a thread: the full state plus
// the nodes to run next. The pending node set is the entire continuation;
// no other execution state is captured, which is what makes resumption
// possible across process restarts.
type Checkpoint struct {
	ThreadID     string         `json:"thread_id"`
	State        map[string]any `json:"state"`
	PendingNodes []string       `json:"pending_nodes,omitempty"`
	Interrupted  bool           `json:"interrupted"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// CheckpointStore persists one checkpoint per thread ID. Save is an
// idempotent overwrite with last-write-wins semantics; a Save that has
// returned successfully must be visible to any subsequent Load on the
// same thread ID within the same process.
type CheckpointStore interface {
	// Save stores the checkpoint, overwriting any previous checkpoint for
	// the same thread ID.
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves the checkpoint for a thread ID. A missing thread
	// yields (nil, nil).
	Load(ctx context.Context, threadID string) (*Checkpoint, error)

	// Delete removes the checkpoint for a thread ID. Deleting a missing
	// thread is not an error.
	Delete(ctx context.Context, threadID string) error
}
