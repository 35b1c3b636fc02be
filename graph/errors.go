package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInputRequired is returned when Invoke is called with a nil input
	// and there is no checkpoint to resume from.
	ErrInputRequired = errors.New("input state required for a new thread")

	// ErrNodeNotFound is returned when a scheduled node is not registered.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrNoCheckpointStore is returned when a thread-scoped operation is
	// attempted on a runnable compiled without a checkpoint store.
	ErrNoCheckpointStore = errors.New("no checkpoint store configured")
)

// SchemaError reports a state update that violates the declared schema:
// an undeclared field, or a reducer rejecting its operands.
type SchemaError struct {
	// Key is the state field the violation occurred on.
	Key string

	// Err describes the violation.
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation on field %q: %v", e.Key, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// RoutingError reports a branch function returning a key that is not
// present in the conditional edge's path map.
type RoutingError struct {
	// From is the node whose conditional edge failed to resolve.
	From string

	// Key is the branch key the branch function returned.
	Key string

	// Valid lists the keys configured in the path map.
	Valid []string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no route for branch key %q from node %s (valid keys: %s)",
		e.Key, e.From, strings.Join(e.Valid, ", "))
}

// GraphIntegrityError reports a structural defect detected at compile
// time: a missing entry edge, an edge to an unknown node, a node with no
// outgoing edge, an unreachable node, or no path from START to END.
type GraphIntegrityError struct {
	// Node is the offending node, when the defect is attributable to one.
	Node string

	// Reason describes the defect.
	Reason string
}

func (e *GraphIntegrityError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("graph integrity: %s", e.Reason)
	}
	return fmt.Sprintf("graph integrity: node %s: %s", e.Node, e.Reason)
}

// NodeExecutionError wraps a failure (or panic) raised by a node's step
// function. The thread's checkpoint is left at the last good state, so a
// retry can resume cleanly.
type NodeExecutionError struct {
	// Node is the name of the node whose step function failed.
	Node string

	// Err is the failure returned by the step function.
	Err error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("error in node %s: %v", e.Node, e.Err)
}

func (e *NodeExecutionError) Unwrap() error { return e.Err }

// CheckpointError wraps a storage failure on checkpoint save or load.
// It is always fatal for the current invocation: the engine never
// continues with an unpersisted state.
type CheckpointError struct {
	// Op is the storage operation that failed ("save" or "load").
	Op string

	// ThreadID identifies the thread whose checkpoint was involved.
	ThreadID string

	// Err is the underlying storage error.
	Err error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s failed for thread %s: %v", e.Op, e.ThreadID, e.Err)
}

func (e *CheckpointError) Unwrap() error { return e.Err }
