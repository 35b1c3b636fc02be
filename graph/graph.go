package graph

import (
	"context"
	"fmt"
	"strings"
)

const (
	// START is the virtual entry node. It is never executed; edges from
	// START determine where execution begins.
	START = "START"

	// END is the virtual terminal node. Execution halts when the resolved
	// next set is END.
	END = "END"
)

// NodeFunc is the step function contract: given the current state it
// returns a partial state update. Implementations must treat the state
// argument as an immutable snapshot and only return updates.
type NodeFunc func(ctx context.Context, state map[string]any) (map[string]any, error)

// BranchFunc inspects the current state and returns a branch key used to
// select the next node from a conditional edge's path map. It must be a
// pure read of state; side effects here are a caller error.
type BranchFunc func(ctx context.Context, state map[string]any) string

// Node represents a named unit of computation in the graph.
type Node struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function produces a partial state update from the current state.
	Function NodeFunc
}

// Edge represents an unconditional edge between two nodes.
type Edge struct {
	From string
	To   string
}

// conditionalEdge pairs a branch function with its key-to-target map.
type conditionalEdge struct {
	branch  BranchFunc
	pathMap map[string]string
}

// GraphInterrupt is returned as the error value of a paused invocation.
// The state returned alongside it is the state as of the interrupt
// checkpoint; NextNodes lists the nodes that will run on resume.
type GraphInterrupt struct {
	// Node is the interrupt-set node that triggered the pause.
	Node string

	// State at the time of interruption.
	State map[string]any

	// NextNodes that will be executed when the thread is resumed.
	NextNodes []string
}

func (e *GraphInterrupt) Error() string {
	return fmt.Sprintf("graph interrupted before node %s (next: %s)",
		e.Node, strings.Join(e.NextNodes, ", "))
}
