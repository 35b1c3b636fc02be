package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/loomgraph/loom/log"
	"github.com/loomgraph/loom/store"
)

// Config carries per-invocation settings. ThreadID names the durable
// conversation thread; invocations on distinct thread IDs are fully
// independent.
type Config struct {
	ThreadID string
}

// StateSnapshot is the inspectable view of a thread: its state values and
// the nodes that will run next (empty once the thread has completed).
type StateSnapshot struct {
	Values    map[string]any
	Next      []string
	UpdatedAt time.Time
}

type threadLock struct {
	mu sync.Mutex
}

// Runnable is a compiled state graph. It is safe for concurrent use;
// invocations on the same thread ID are serialized by an advisory lock
// held for the duration of one Invoke call.
type Runnable struct {
	graph           *StateGraph
	checkpoints     store.CheckpointStore
	interruptBefore map[string]struct{}
	pool            *ants.Pool

	mu          sync.Mutex
	threadLocks map[string]*threadLock
}

// Invoke executes the graph with the given input state and no thread
// configuration. The input is required and must be a full state.
func (r *Runnable) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	return r.InvokeWithConfig(ctx, input, nil)
}

// InvokeWithConfig executes the graph for the configured thread. On the
// first invocation for a thread the input is required; on subsequent
// invocations a non-nil input is merged into the checkpointed state
// before continuing, and a nil input resumes exactly from the stored
// pending nodes.
//
// A paused invocation returns the current state together with a
// *GraphInterrupt error; a completed one returns the final state and a
// nil error.
func (r *Runnable) InvokeWithConfig(ctx context.Context, input map[string]any, config *Config) (map[string]any, error) {
	threadID := ""
	if config != nil {
		threadID = config.ThreadID
	}
	if threadID != "" && r.checkpoints != nil {
		unlock := r.lockThread(threadID)
		defer unlock()
	}

	runID := uuid.NewString()

	state, current, resuming, err := r.restore(ctx, threadID, input)
	if err != nil {
		return nil, err
	}
	if current == nil {
		// Completed thread re-invoked without input: nothing to run.
		return state, nil
	}

	log.Debug("run %s: thread %q starting at %v", runID, threadID, current)

	lastGood := state
	for {
		if err := ctx.Err(); err != nil {
			return lastGood, err
		}

		active := make([]string, 0, len(current))
		for _, name := range current {
			if name != END {
				active = append(active, name)
			}
		}
		if len(active) == 0 {
			break
		}

		if !resuming {
			for _, name := range active {
				if _, ok := r.interruptBefore[name]; ok {
					if err := r.saveCheckpoint(ctx, threadID, runID, state, active, true); err != nil {
						return lastGood, err
					}
					log.Debug("run %s: interrupted before node %s", runID, name)
					return state, &GraphInterrupt{Node: name, State: state, NextNodes: active}
				}
			}
		}
		resuming = false

		results, err := r.executeNodes(ctx, active, state)
		if err != nil {
			return lastGood, err
		}

		// Merge phase: strictly serialized, in scheduled order.
		for _, update := range results {
			if update == nil {
				continue
			}
			state, err = r.applyUpdate(state, update)
			if err != nil {
				return lastGood, err
			}
		}

		next, err := r.resolveNextSet(ctx, active, state)
		if err != nil {
			return lastGood, err
		}

		pending := make([]string, 0, len(next))
		for _, name := range next {
			if name != END {
				pending = append(pending, name)
			}
		}

		if err := ctx.Err(); err != nil {
			return lastGood, err
		}
		if err := r.saveCheckpoint(ctx, threadID, runID, state, pending, false); err != nil {
			return lastGood, err
		}
		lastGood = state
		current = pending
	}

	log.Debug("run %s: thread %q completed", runID, threadID)
	return state, nil
}

// GetState returns the snapshot of a checkpointed thread: its values and
// the nodes scheduled to run next.
func (r *Runnable) GetState(ctx context.Context, config *Config) (*StateSnapshot, error) {
	if r.checkpoints == nil {
		return nil, ErrNoCheckpointStore
	}
	threadID := ""
	if config != nil {
		threadID = config.ThreadID
	}
	cp, err := r.checkpoints.Load(ctx, threadID)
	if err != nil {
		return nil, &CheckpointError{Op: "load", ThreadID: threadID, Err: err}
	}
	if cp == nil {
		return nil, fmt.Errorf("no checkpoint for thread %q", threadID)
	}
	return &StateSnapshot{
		Values:    cp.State,
		Next:      slices.Clone(cp.PendingNodes),
		UpdatedAt: cp.UpdatedAt,
	}, nil
}

// Close releases the worker pool. A closed runnable must not be invoked
// again.
func (r *Runnable) Close() {
	r.pool.Release()
}

// restore loads the thread checkpoint (if any) and computes the initial
// state and node set. A nil node set with a nil error means the thread is
// complete and there is nothing to run. The returned resuming flag is
// true when the thread was paused at an interrupt boundary and must be
// resumed past it.
func (r *Runnable) restore(ctx context.Context, threadID string, input map[string]any) (map[string]any, []string, bool, error) {
	if r.checkpoints != nil && threadID != "" {
		cp, err := r.checkpoints.Load(ctx, threadID)
		if err != nil {
			return nil, nil, false, &CheckpointError{Op: "load", ThreadID: threadID, Err: err}
		}
		if cp != nil {
			state := cp.State
			if input != nil {
				state, err = r.applyUpdate(state, input)
				if err != nil {
					return nil, nil, false, err
				}
			}
			if len(cp.PendingNodes) > 0 {
				return state, slices.Clone(cp.PendingNodes), cp.Interrupted, nil
			}
			if input == nil {
				return state, nil, false, nil
			}
			// Completed thread with fresh input: run from the top again.
			current, err := r.resolveNext(ctx, START, state)
			if err != nil {
				return nil, nil, false, err
			}
			return state, current, false, nil
		}
	}

	if input == nil {
		return nil, nil, false, ErrInputRequired
	}

	var state map[string]any
	var err error
	if r.graph.schema != nil {
		state, err = r.graph.schema.Apply(r.graph.schema.Init(), input)
		if err != nil {
			return nil, nil, false, err
		}
	} else {
		state = make(map[string]any, len(input))
		maps.Copy(state, input)
	}

	current, err := r.resolveNext(ctx, START, state)
	if err != nil {
		return nil, nil, false, err
	}
	return state, current, false, nil
}

// executeNodes runs the scheduled node set, in parallel on the bounded
// worker pool when more than one node is scheduled. Results are returned
// in scheduled order regardless of completion order.
func (r *Runnable) executeNodes(ctx context.Context, names []string, state map[string]any) ([]map[string]any, error) {
	if len(names) == 1 {
		result, err := r.runNode(ctx, names[0], state)
		if err != nil {
			return nil, err
		}
		return []map[string]any{result}, nil
	}

	results := make([]map[string]any, len(names))
	errs := make([]error, len(names))
	var wg sync.WaitGroup

	for i, name := range names {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i], errs[i] = r.runNode(ctx, name, state)
		}
		if err := r.pool.Submit(task); err != nil {
			errs[i] = &NodeExecutionError{Node: name, Err: err}
			wg.Done()
		}
	}
	wg.Wait()

	// First failure in scheduled order wins.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (r *Runnable) runNode(ctx context.Context, name string, state map[string]any) (result map[string]any, err error) {
	node, ok := r.graph.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}

	defer func() {
		if p := recover(); p != nil {
			err = &NodeExecutionError{Node: name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	log.Debug("executing node %s", name)
	result, err = node.Function(ctx, state)
	if err != nil {
		return nil, &NodeExecutionError{Node: name, Err: err}
	}
	return result, nil
}

// resolveNextSet resolves the next node set for every node that just ran,
// preserving scheduled order and deduplicating targets.
func (r *Runnable) resolveNextSet(ctx context.Context, ran []string, state map[string]any) ([]string, error) {
	seen := make(map[string]struct{})
	var next []string
	for _, from := range ran {
		targets, err := r.resolveNext(ctx, from, state)
		if err != nil {
			return nil, err
		}
		for _, to := range targets {
			if _, ok := seen[to]; ok {
				continue
			}
			seen[to] = struct{}{}
			next = append(next, to)
		}
	}
	return next, nil
}

// resolveNext resolves the outgoing edges of a single node against the
// current state. Conditional edges take precedence over unconditional
// ones; unconditional edges may fan out to several targets.
func (r *Runnable) resolveNext(ctx context.Context, from string, state map[string]any) ([]string, error) {
	if ce, ok := r.graph.conditionalEdges[from]; ok {
		key := ce.branch(ctx, state)
		to, ok := ce.pathMap[key]
		if !ok {
			valid := make([]string, 0, len(ce.pathMap))
			for k := range ce.pathMap {
				valid = append(valid, k)
			}
			slices.Sort(valid)
			return nil, &RoutingError{From: from, Key: key, Valid: valid}
		}
		return []string{to}, nil
	}

	var targets []string
	for _, edge := range r.graph.edges {
		if edge.From == from {
			targets = append(targets, edge.To)
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
	}
	return targets, nil
}

func (r *Runnable) applyUpdate(state, update map[string]any) (map[string]any, error) {
	if r.graph.schema != nil {
		return r.graph.schema.Apply(state, update)
	}
	merged := make(map[string]any, len(state)+len(update))
	maps.Copy(merged, state)
	maps.Copy(merged, update)
	return merged, nil
}

func (r *Runnable) saveCheckpoint(ctx context.Context, threadID, runID string, state map[string]any, pending []string, interrupted bool) error {
	if r.checkpoints == nil || threadID == "" {
		return nil
	}
	cp := &store.Checkpoint{
		ThreadID:     threadID,
		State:        state,
		PendingNodes: slices.Clone(pending),
		Interrupted:  interrupted,
		UpdatedAt:    time.Now(),
		Metadata:     map[string]any{"run_id": runID},
	}
	if err := r.checkpoints.Save(ctx, cp); err != nil {
		return &CheckpointError{Op: "save", ThreadID: threadID, Err: err}
	}
	return nil
}

// lockThread serializes invocations per thread ID.
func (r *Runnable) lockThread(threadID string) func() {
	r.mu.Lock()
	tl, ok := r.threadLocks[threadID]
	if !ok {
		tl = &threadLock{}
		r.threadLocks[threadID] = tl
	}
	r.mu.Unlock()

	tl.mu.Lock()
	return tl.mu.Unlock
}
