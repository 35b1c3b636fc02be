// Package prebuilt provides ready-made graph configurations on top of
// the core engine: a tool dispatch node with per-call error containment,
// the ReAct agent ⇄ tools cycle, and a multi-agent router.
//
// Model backends and tool implementations are external collaborators:
// they are injected through the langchaingo llms.Model and tools.Tool
// interfaces and invoked through the ordinary step function contract.
package prebuilt
