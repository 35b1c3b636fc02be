package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomgraph/loom/store"
)

func newTestStore(t *testing.T, opts Options) *CheckpointStore {
	t.Helper()
	mr := miniredis.RunT(t)
	opts.Addr = mr.Addr()
	s := NewCheckpointStore(opts)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t, Options{})

	cp := &store.Checkpoint{
		ThreadID:     "t1",
		State:        map[string]any{"output": "hello"},
		PendingNodes: []string{"generate"},
		Interrupted:  true,
		UpdatedAt:    time.Now().UTC(),
		Metadata:     map[string]any{"run_id": "r1"},
	}
	require.NoError(t, s.Save(context.Background(), cp))

	got, err := s.Load(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.ThreadID)
	assert.Equal(t, "hello", got.State["output"])
	assert.Equal(t, []string{"generate"}, got.PendingNodes)
	assert.True(t, got.Interrupted)
	assert.True(t, cp.UpdatedAt.Equal(got.UpdatedAt))
}

func TestLoadMissingThread(t *testing.T) {
	s := newTestStore(t, Options{})

	got, err := s.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t, Options{})

	require.NoError(t, s.Save(context.Background(), &store.Checkpoint{
		ThreadID: "t1",
		State:    map[string]any{"v": "old"},
	}))
	require.NoError(t, s.Save(context.Background(), &store.Checkpoint{
		ThreadID: "t1",
		State:    map[string]any{"v": "new"},
	}))

	got, err := s.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.State["v"])
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, Options{})

	require.NoError(t, s.Save(context.Background(), &store.Checkpoint{ThreadID: "t1"}))
	require.NoError(t, s.Delete(context.Background(), "t1"))

	got, err := s.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, s.Delete(context.Background(), "t1"))
}

func TestKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewCheckpointStore(Options{Addr: mr.Addr(), Prefix: "custom:"})
	defer s.Close()

	require.NoError(t, s.Save(context.Background(), &store.Checkpoint{ThreadID: "t1"}))
	assert.True(t, mr.Exists("custom:thread:t1"))
}

func TestTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewCheckpointStore(Options{Addr: mr.Addr(), TTL: time.Minute})
	defer s.Close()

	require.NoError(t, s.Save(context.Background(), &store.Checkpoint{ThreadID: "t1"}))

	got, err := s.Load(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, got)

	mr.FastForward(2 * time.Minute)

	got, err = s.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
