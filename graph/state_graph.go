package graph

import (
	"fmt"
	"sort"

	"github.com/panjf2000/ants/v2"

	"github.com/loomgraph/loom/store"
)

// StateGraph is the build-time surface for defining a graph: nodes,
// edges, conditional edges and the state schema. Call Compile to validate
// the topology and obtain a Runnable.
type StateGraph struct {
	nodes            map[string]Node
	edges            []Edge
	conditionalEdges map[string]*conditionalEdge
	schema           *Schema
}

// NewStateGraph creates an empty state graph.
func NewStateGraph() *StateGraph {
	return &StateGraph{
		nodes:            make(map[string]Node),
		conditionalEdges: make(map[string]*conditionalEdge),
	}
}

// AddNode registers a node with the given name, description and step function.
func (g *StateGraph) AddNode(name, description string, fn NodeFunc) {
	g.nodes[name] = Node{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds an unconditional edge. Multiple edges from the same node
// fan out: all targets are scheduled for the same step. The from node may
// be START.
func (g *StateGraph) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// SetEntryPoint marks a node as the graph's entry, equivalent to
// AddEdge(START, name).
func (g *StateGraph) SetEntryPoint(name string) {
	g.AddEdge(START, name)
}

// AddConditionalEdges adds a conditional edge: at run time the branch
// function is evaluated against the current state and its return value is
// looked up in pathMap to select the next node. A key absent from pathMap
// fails the invocation with a RoutingError. The from node may be START.
func (g *StateGraph) AddConditionalEdges(from string, branch BranchFunc, pathMap map[string]string) {
	paths := make(map[string]string, len(pathMap))
	for key, to := range pathMap {
		paths[key] = to
	}
	g.conditionalEdges[from] = &conditionalEdge{branch: branch, pathMap: paths}
}

// SetSchema sets the state schema. Without a schema, updates are merged
// with replace semantics and no field declaration check.
func (g *StateGraph) SetSchema(schema *Schema) {
	g.schema = schema
}

const defaultMaxConcurrency = 16

// CompileOption configures a compiled graph.
type CompileOption func(*compileOptions)

type compileOptions struct {
	checkpoints     store.CheckpointStore
	interruptBefore []string
	maxConcurrency  int
}

// WithCheckpointStore enables durable per-thread checkpointing through
// the given store.
func WithCheckpointStore(cs store.CheckpointStore) CompileOption {
	return func(o *compileOptions) { o.checkpoints = cs }
}

// WithInterruptBefore pauses execution before any of the named nodes
// runs. The paused thread is resumed by invoking it again with a nil
// input. The interrupt set is immutable for the life of the compiled graph.
func WithInterruptBefore(nodes ...string) CompileOption {
	return func(o *compileOptions) { o.interruptBefore = append(o.interruptBefore, nodes...) }
}

// WithMaxConcurrency bounds the worker pool used for fan-out node
// execution. Defaults to 16.
func WithMaxConcurrency(n int) CompileOption {
	return func(o *compileOptions) { o.maxConcurrency = n }
}

// Compile validates the graph topology and returns a Runnable. All
// structural defects are reported here as GraphIntegrityError; none of
// them can surface at run time.
func (g *StateGraph) Compile(opts ...CompileOption) (*Runnable, error) {
	options := compileOptions{maxConcurrency: defaultMaxConcurrency}
	for _, opt := range opts {
		opt(&options)
	}
	if options.maxConcurrency <= 0 {
		options.maxConcurrency = defaultMaxConcurrency
	}

	if err := g.validate(options.interruptBefore); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(options.maxConcurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	interrupts := make(map[string]struct{}, len(options.interruptBefore))
	for _, name := range options.interruptBefore {
		interrupts[name] = struct{}{}
	}

	return &Runnable{
		graph:           g,
		checkpoints:     options.checkpoints,
		interruptBefore: interrupts,
		pool:            pool,
		threadLocks:     make(map[string]*threadLock),
	}, nil
}

// successors returns the set of nodes statically reachable from the given
// node in one step, considering both unconditional edges and every
// conditional path target.
func (g *StateGraph) successors(from string) []string {
	var out []string
	for _, edge := range g.edges {
		if edge.From == from {
			out = append(out, edge.To)
		}
	}
	if ce, ok := g.conditionalEdges[from]; ok {
		keys := make([]string, 0, len(ce.pathMap))
		for key := range ce.pathMap {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			out = append(out, ce.pathMap[key])
		}
	}
	return out
}

func (g *StateGraph) validate(interruptBefore []string) error {
	// Every edge endpoint must exist.
	for _, edge := range g.edges {
		if edge.From != START {
			if _, ok := g.nodes[edge.From]; !ok {
				return &GraphIntegrityError{Node: edge.From, Reason: "edge from unknown node"}
			}
		}
		if edge.To != END {
			if _, ok := g.nodes[edge.To]; !ok {
				return &GraphIntegrityError{Node: edge.To, Reason: "edge to unknown node"}
			}
		}
	}
	for from, ce := range g.conditionalEdges {
		if from != START {
			if _, ok := g.nodes[from]; !ok {
				return &GraphIntegrityError{Node: from, Reason: "conditional edge from unknown node"}
			}
		}
		for key, to := range ce.pathMap {
			if to != END {
				if _, ok := g.nodes[to]; !ok {
					return &GraphIntegrityError{
						Node:   to,
						Reason: fmt.Sprintf("conditional path %q targets unknown node", key),
					}
				}
			}
		}
	}

	for _, name := range interruptBefore {
		if _, ok := g.nodes[name]; !ok {
			return &GraphIntegrityError{Node: name, Reason: "interrupt before unknown node"}
		}
	}

	// Entry edge present.
	if len(g.successors(START)) == 0 {
		return &GraphIntegrityError{Node: START, Reason: "no entry edge; call SetEntryPoint or add an edge from START"}
	}

	// Reachability sweep from START.
	reachable := map[string]bool{START: true}
	queue := []string{START}
	endReachable := false
	for len(queue) > 0 {
		from := queue[0]
		queue = queue[1:]
		for _, to := range g.successors(from) {
			if to == END {
				endReachable = true
				continue
			}
			if !reachable[to] {
				reachable[to] = true
				queue = append(queue, to)
			}
		}
	}

	if !endReachable {
		return &GraphIntegrityError{Reason: "no path from START to END"}
	}

	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !reachable[name] {
			return &GraphIntegrityError{Node: name, Reason: "unreachable from START"}
		}
		if len(g.successors(name)) == 0 {
			return &GraphIntegrityError{Node: name, Reason: "no outgoing edge"}
		}
	}

	return nil
}
