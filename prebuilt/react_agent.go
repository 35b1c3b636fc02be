package prebuilt

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"github.com/loomgraph/loom/graph"
)

// CreateReactAgent builds the agent ⇄ tools two-node cycle: the agent
// node asks the model for the next action, the conditional edge routes
// to the tool node while the model keeps requesting calls, and the tool
// node's responses loop back to the agent. The cycle keeps each step
// single-responsibility and checkpoint-able instead of iterating inside
// one node.
func CreateReactAgent(model llms.Model, inputTools []tools.Tool, maxIterations int, opts ...graph.CompileOption) (*graph.Runnable, error) {
	if maxIterations == 0 {
		maxIterations = 20
	}

	toolNode := NewToolNode(inputTools)

	workflow := graph.NewStateGraph()

	schema := graph.NewSchema()
	schema.RegisterField("messages", graph.AppendReducer)
	schema.RegisterField("iteration_count", graph.ReplaceReducer)
	workflow.SetSchema(schema)

	var toolDefs []llms.Tool
	for _, t := range inputTools {
		toolDefs = append(toolDefs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"input": map[string]any{
							"type":        "string",
							"description": "The input query for the tool",
						},
					},
					"required":             []string{"input"},
					"additionalProperties": false,
				},
			},
		})
	}

	workflow.AddNode("agent", "ReAct agent decision maker", func(ctx context.Context, state map[string]any) (map[string]any, error) {
		messages, ok := state["messages"].([]llms.MessageContent)
		if !ok {
			return nil, fmt.Errorf("messages key not found or invalid type")
		}

		iterationCount := 0
		if count, ok := state["iteration_count"].(int); ok {
			iterationCount = count
		}
		if iterationCount >= maxIterations {
			finalMsg := llms.MessageContent{
				Role: llms.ChatMessageTypeAI,
				Parts: []llms.ContentPart{
					llms.TextPart("Maximum iterations reached. Please try a simpler query."),
				},
			}
			return map[string]any{
				"messages": []llms.MessageContent{finalMsg},
			}, nil
		}

		resp, err := model.GenerateContent(ctx, messages, llms.WithTools(toolDefs))
		if err != nil {
			return nil, err
		}

		choice := resp.Choices[0]

		aiMsg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			aiMsg.Parts = append(aiMsg.Parts, llms.TextPart(choice.Content))
		}
		for _, tc := range choice.ToolCalls {
			aiMsg.Parts = append(aiMsg.Parts, tc)
		}

		return map[string]any{
			"messages":        []llms.MessageContent{aiMsg},
			"iteration_count": iterationCount + 1,
		}, nil
	})

	workflow.AddNode("tools", "Tool execution node", toolNode.Execute)

	workflow.SetEntryPoint("agent")
	workflow.AddConditionalEdges("agent", HasPendingToolCalls, map[string]string{
		"tools":   "tools",
		graph.END: graph.END,
	})
	workflow.AddEdge("tools", "agent")

	return workflow.Compile(opts...)
}
