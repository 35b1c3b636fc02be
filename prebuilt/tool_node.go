package prebuilt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"github.com/loomgraph/loom/graph"
)

// ToolInvocation describes one pending tool call extracted from state.
type ToolInvocation struct {
	// ID ties the response back to the originating call.
	ID string

	// Tool is the registered handler name.
	Tool string

	// ToolInput is the input string passed to the handler.
	ToolInput string
}

// ToolExecutor resolves tool invocations against a set of named handlers.
type ToolExecutor struct {
	tools map[string]tools.Tool
}

// NewToolExecutor creates an executor over the given tools, keyed by
// their Name().
func NewToolExecutor(inputTools []tools.Tool) *ToolExecutor {
	m := make(map[string]tools.Tool, len(inputTools))
	for _, t := range inputTools {
		m[t.Name()] = t
	}
	return &ToolExecutor{tools: m}
}

// Execute runs a single invocation against its named handler.
func (te *ToolExecutor) Execute(ctx context.Context, invocation ToolInvocation) (string, error) {
	t, ok := te.tools[invocation.Tool]
	if !ok {
		return "", fmt.Errorf("tool %q is not registered", invocation.Tool)
	}
	return t.Call(ctx, invocation.ToolInput)
}

// ToolNode is a node whose step function dispatches the pending tool
// calls found in the last assistant message of state["messages"]. Each
// call is executed against its named handler; a handler failure is
// converted into a response entry carrying the error text rather than
// aborting its siblings, so the graph can route to a recovery branch.
// Responses are returned in call order, tagged with the originating call
// ID, and are meant to be merged through the messages append reducer.
type ToolNode struct {
	executor *ToolExecutor
}

// NewToolNode creates a tool dispatch node over the given tools.
func NewToolNode(inputTools []tools.Tool) *ToolNode {
	return &ToolNode{executor: NewToolExecutor(inputTools)}
}

// Execute implements the graph.NodeFunc contract.
func (tn *ToolNode) Execute(ctx context.Context, state map[string]any) (map[string]any, error) {
	messages, ok := state["messages"].([]llms.MessageContent)
	if !ok || len(messages) == 0 {
		return nil, fmt.Errorf("messages key not found or invalid type")
	}

	lastMsg := messages[len(messages)-1]
	if lastMsg.Role != llms.ChatMessageTypeAI {
		return nil, fmt.Errorf("last message is not an AI message")
	}

	var invocations []ToolInvocation
	for _, part := range lastMsg.Parts {
		tc, ok := part.(llms.ToolCall)
		if !ok {
			continue
		}

		var args map[string]any
		_ = json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args)

		input := tc.FunctionCall.Arguments
		if val, ok := args["input"].(string); ok {
			input = val
		}

		invocations = append(invocations, ToolInvocation{
			ID:        tc.ID,
			Tool:      tc.FunctionCall.Name,
			ToolInput: input,
		})
	}

	if len(invocations) == 0 {
		return nil, fmt.Errorf("no pending tool calls in last AI message")
	}

	// Fan out over the pending calls; results stay indexed by call order
	// so call/response pairs remain in ordered correspondence.
	contents := make([]string, len(invocations))
	var wg sync.WaitGroup
	for i, inv := range invocations {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := tn.executor.Execute(ctx, inv)
			if err != nil {
				res = fmt.Sprintf("Error: %v", err)
			}
			contents[i] = res
		}()
	}
	wg.Wait()

	toolMessages := make([]llms.MessageContent, len(invocations))
	for i, inv := range invocations {
		toolMessages[i] = llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{
					ToolCallID: inv.ID,
					Name:       inv.Tool,
					Content:    contents[i],
				},
			},
		}
	}

	return map[string]any{"messages": toolMessages}, nil
}

// HasPendingToolCalls reports whether the last message in
// state["messages"] is an AI message carrying tool calls. It is the
// branch condition of the agent/tools cycle.
func HasPendingToolCalls(_ context.Context, state map[string]any) string {
	messages, ok := state["messages"].([]llms.MessageContent)
	if !ok || len(messages) == 0 {
		return graph.END
	}

	lastMsg := messages[len(messages)-1]
	if lastMsg.Role != llms.ChatMessageTypeAI {
		return graph.END
	}
	for _, part := range lastMsg.Parts {
		if _, ok := part.(llms.ToolCall); ok {
			return "tools"
		}
	}
	return graph.END
}
