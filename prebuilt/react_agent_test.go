package prebuilt

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// scriptedModel replays a fixed sequence of responses, one per
// GenerateContent call.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*llms.ContentResponse
	calls     int
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp := m.responses[m.calls%len(m.responses)]
	m.calls++
	return resp, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func toolCallResponse() *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{toolCall("call-1", "search", "weather in Beijing")},
		}},
	}
}

func finalResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

func TestReactAgentRunsToolCycle(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse(),
		finalResponse("It is sunny."),
	}}

	agent, err := CreateReactAgent(model, []tools.Tool{echoTool("search")}, 0)
	require.NoError(t, err)
	defer agent.Close()

	result, err := agent.Invoke(context.Background(), map[string]any{
		"messages": []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, "What's the weather in Beijing?"),
		},
	})
	require.NoError(t, err)

	messages := result["messages"].([]llms.MessageContent)
	// human, AI tool call, tool response, final AI answer
	require.Len(t, messages, 4)
	assert.Equal(t, llms.ChatMessageTypeHuman, messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeTool, messages[2].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, messages[3].Role)

	toolResp := messages[2].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "call-1", toolResp.ToolCallID)
	assert.Equal(t, "search: weather in Beijing", toolResp.Content)

	final := messages[3].Parts[0].(llms.TextContent)
	assert.Equal(t, "It is sunny.", final.Text)

	assert.Equal(t, 2, model.calls)
}

func TestReactAgentDirectAnswer(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*llms.ContentResponse{
		finalResponse("No tools needed."),
	}}

	agent, err := CreateReactAgent(model, []tools.Tool{echoTool("search")}, 0)
	require.NoError(t, err)
	defer agent.Close()

	result, err := agent.Invoke(context.Background(), map[string]any{
		"messages": []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, "hi"),
		},
	})
	require.NoError(t, err)

	messages := result["messages"].([]llms.MessageContent)
	require.Len(t, messages, 2)
	assert.Equal(t, 1, model.calls)
}

func TestReactAgentMaxIterations(t *testing.T) {
	t.Parallel()

	// The model always requests another tool call; the iteration guard
	// must force a final message.
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse(),
	}}

	agent, err := CreateReactAgent(model, []tools.Tool{echoTool("search")}, 3)
	require.NoError(t, err)
	defer agent.Close()

	result, err := agent.Invoke(context.Background(), map[string]any{
		"messages": []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, "loop forever"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, model.calls)

	messages := result["messages"].([]llms.MessageContent)
	last := messages[len(messages)-1]
	assert.Equal(t, llms.ChatMessageTypeAI, last.Role)
	assert.Contains(t, last.Parts[0].(llms.TextContent).Text, "Maximum iterations")
}

func TestReactAgentIterationCountInState(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse(),
		finalResponse("done"),
	}}

	agent, err := CreateReactAgent(model, []tools.Tool{echoTool("search")}, 0)
	require.NoError(t, err)
	defer agent.Close()

	result, err := agent.Invoke(context.Background(), map[string]any{
		"messages": []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, "q"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result["iteration_count"])
}
