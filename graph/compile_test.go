package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopNode(ctx context.Context, state map[string]any) (map[string]any, error) {
	return nil, nil
}

func TestCompileValidGraph(t *testing.T) {
	t.Parallel()

	workflow := NewStateGraph()
	workflow.AddNode("a", "", noopNode)
	workflow.AddNode("b", "", noopNode)
	workflow.SetEntryPoint("a")
	workflow.AddEdge("a", "b")
	workflow.AddEdge("b", END)

	runnable, err := workflow.Compile()
	require.NoError(t, err)
	defer runnable.Close()
}

func TestCompileRejectsMissingEntryPoint(t *testing.T) {
	t.Parallel()

	workflow := NewStateGraph()
	workflow.AddNode("a", "", noopNode)
	workflow.AddEdge("a", END)

	_, err := workflow.Compile()
	requireIntegrityError(t, err)
}

func TestCompileRejectsEdgeToUnknownNode(t *testing.T) {
	t.Parallel()

	workflow := NewStateGraph()
	workflow.AddNode("a", "", noopNode)
	workflow.SetEntryPoint("a")
	workflow.AddEdge("a", "ghost")

	_, err := workflow.Compile()
	requireIntegrityError(t, err)
}

func TestCompileRejectsConditionalTargetUnknown(t *testing.T) {
	t.Parallel()

	workflow := NewStateGraph()
	workflow.AddNode("a", "", noopNode)
	workflow.SetEntryPoint("a")
	workflow.AddConditionalEdges("a", func(ctx context.Context, state map[string]any) string {
		return "x"
	}, map[string]string{"x": "ghost", "y": END})

	_, err := workflow.Compile()
	requireIntegrityError(t, err)
}

func TestCompileRejectsUnreachableNode(t *testing.T) {
	t.Parallel()

	workflow := NewStateGraph()
	workflow.AddNode("a", "", noopNode)
	workflow.AddNode("island", "", noopNode)
	workflow.SetEntryPoint("a")
	workflow.AddEdge("a", END)
	workflow.AddEdge("island", END)

	_, err := workflow.Compile()
	requireIntegrityError(t, err)
}

func TestCompileRejectsNoPathToEnd(t *testing.T) {
	t.Parallel()

	workflow := NewStateGraph()
	workflow.AddNode("a", "", noopNode)
	workflow.AddNode("b", "", noopNode)
	workflow.SetEntryPoint("a")
	workflow.AddEdge("a", "b")
	workflow.AddEdge("b", "a")

	_, err := workflow.Compile()
	requireIntegrityError(t, err)
}

func TestCompileRejectsNodeWithoutOutgoingEdge(t *testing.T) {
	t.Parallel()

	workflow := NewStateGraph()
	workflow.AddNode("a", "", noopNode)
	workflow.AddNode("sink", "", noopNode)
	workflow.SetEntryPoint("a")
	workflow.AddEdge("a", "sink")
	workflow.AddEdge("a", END)

	_, err := workflow.Compile()
	requireIntegrityError(t, err)
}

func TestCompileRejectsInterruptOnUnknownNode(t *testing.T) {
	t.Parallel()

	workflow := NewStateGraph()
	workflow.AddNode("a", "", noopNode)
	workflow.SetEntryPoint("a")
	workflow.AddEdge("a", END)

	_, err := workflow.Compile(WithInterruptBefore("ghost"))
	requireIntegrityError(t, err)
}

func TestCompileAllowsCycleWithExit(t *testing.T) {
	t.Parallel()

	workflow := NewStateGraph()
	workflow.AddNode("agent", "", noopNode)
	workflow.AddNode("tools", "", noopNode)
	workflow.SetEntryPoint("agent")
	workflow.AddConditionalEdges("agent", func(ctx context.Context, state map[string]any) string {
		return END
	}, map[string]string{"tools": "tools", END: END})
	workflow.AddEdge("tools", "agent")

	runnable, err := workflow.Compile()
	require.NoError(t, err)
	defer runnable.Close()
}

func requireIntegrityError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)

	var integrityErr *GraphIntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}
