// Package graph provides the core construction and execution engine for
// Loom: directed graphs of computation steps that operate on a shared
// state, with conditional branching, loop-back edges, durable per-thread
// checkpointing, and interrupt/resume boundaries for human approval.
//
// # Core concepts
//
// A StateGraph is built from named nodes (step functions producing
// partial state updates), unconditional edges, and conditional edges
// whose branch functions select a target from an explicit path map. The
// state is a map whose fields are declared in a Schema together with the
// reducer that merges updates into each field (replace or append).
//
// Compile validates the topology eagerly: every node must be reachable
// from START, have an outgoing edge, and END must be reachable. A
// compiled Runnable drives execution step by step: it resolves the next
// node set, executes it (in parallel on a bounded worker pool when the
// resolution fans out), merges the partial updates through the schema
// reducers in scheduled order, and checkpoints the state together with
// the resolved continuation.
//
// # Threads, checkpointing and interrupts
//
// When compiled with a checkpoint store, every invocation is keyed by a
// thread ID. The checkpoint written after each step carries the full
// state plus the pending node set, which is the entire continuation: a
// process restart loses nothing that cannot be recovered by invoking the
// same thread again with a nil input.
//
// Nodes listed in WithInterruptBefore pause execution before they run.
// The paused invocation returns the current state together with a
// *GraphInterrupt error; invoking the thread again with a nil input
// resumes past the boundary.
//
//	g := graph.NewStateGraph()
//	schema := graph.NewSchema()
//	schema.RegisterField("messages", graph.AppendReducer)
//	g.SetSchema(schema)
//
//	g.AddNode("agent", "decides the next action", agentFn)
//	g.AddNode("tools", "executes pending tool calls", toolsFn)
//	g.SetEntryPoint("agent")
//	g.AddConditionalEdges("agent", shouldContinue, map[string]string{
//		"tools":   "tools",
//		graph.END: graph.END,
//	})
//	g.AddEdge("tools", "agent")
//
//	app, err := g.Compile(
//		graph.WithCheckpointStore(memory.NewCheckpointStore()),
//		graph.WithInterruptBefore("tools"),
//	)
package graph
