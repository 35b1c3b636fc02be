// Loom — a stateful graph execution engine for Go.
//
// Loom drives directed graphs of computation steps ("nodes") over a
// shared state object, with conditional branching, loop-back edges,
// durable per-thread checkpointing, and the ability to pause
// mid-execution for external approval before resuming.
//
// Packages:
//
//   - graph: schema/reducers, graph definition, compile-time validation,
//     and the step-wise runner
//   - store: the checkpoint persistence contract, with memory, file,
//     redis, postgres and sqlite backends plus a YAML-driven factory
//   - prebuilt: tool dispatch node, ReAct agent cycle, multi-agent router
//   - log: leveled logging facade
//
// See examples/ for five runnable configurations of the engine:
// a sequential pipeline, a tool-using agent, a chat with per-thread
// memory, a human-in-the-loop approval flow, and a multi-agent router.
package loom
