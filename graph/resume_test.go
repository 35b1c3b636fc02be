package graph_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomgraph/loom/graph"
	"github.com/loomgraph/loom/store/memory"
)

func chatWorkflow() *graph.StateGraph {
	workflow := graph.NewStateGraph()
	schema := graph.NewSchema()
	schema.RegisterField("messages", graph.AppendReducer)
	workflow.SetSchema(schema)

	workflow.AddNode("respond", "", func(ctx context.Context, state map[string]any) (map[string]any, error) {
		messages := state["messages"].([]string)
		last := messages[len(messages)-1]
		return map[string]any{"messages": []string{"echo: " + last}}, nil
	})
	workflow.SetEntryPoint("respond")
	workflow.AddEdge("respond", graph.END)
	return workflow
}

func TestCheckpointAccumulatesAcrossInvocations(t *testing.T) {
	t.Parallel()

	cs := memory.NewCheckpointStore()
	runnable, err := chatWorkflow().Compile(graph.WithCheckpointStore(cs))
	require.NoError(t, err)
	defer runnable.Close()

	config := &graph.Config{ThreadID: "chat-1"}

	first, err := runnable.InvokeWithConfig(context.Background(), map[string]any{"messages": []string{"hi"}}, config)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "echo: hi"}, first["messages"])

	// A completed thread re-invoked with input starts a fresh pass over
	// the accumulated state.
	second, err := runnable.InvokeWithConfig(context.Background(), map[string]any{"messages": []string{"again"}}, config)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "echo: hi", "again", "echo: again"}, second["messages"])
}

func TestCompletedThreadNilInputReturnsState(t *testing.T) {
	t.Parallel()

	cs := memory.NewCheckpointStore()
	runnable, err := chatWorkflow().Compile(graph.WithCheckpointStore(cs))
	require.NoError(t, err)
	defer runnable.Close()

	config := &graph.Config{ThreadID: "chat-2"}
	final, err := runnable.InvokeWithConfig(context.Background(), map[string]any{"messages": []string{"hi"}}, config)
	require.NoError(t, err)

	// Nil input on a completed thread is a no-op read.
	again, err := runnable.InvokeWithConfig(context.Background(), nil, config)
	require.NoError(t, err)
	assert.Equal(t, final["messages"], again["messages"])
}

func TestResumeSurvivesProcessRestart(t *testing.T) {
	t.Parallel()

	cs := memory.NewCheckpointStore()

	build := func() *graph.Runnable {
		runnable, err := approvalWorkflow().Compile(
			graph.WithCheckpointStore(cs),
			graph.WithInterruptBefore("tools"),
		)
		require.NoError(t, err)
		return runnable
	}

	config := &graph.Config{ThreadID: "restart-1"}

	first := build()
	_, err := first.InvokeWithConfig(context.Background(), map[string]any{"trace": []string{}}, config)
	var interrupt *graph.GraphInterrupt
	require.ErrorAs(t, err, &interrupt)
	first.Close()

	// A new compiled graph over the same store picks the thread up where
	// the first one paused.
	second := build()
	defer second.Close()

	final, err := second.InvokeWithConfig(context.Background(), nil, config)
	require.NoError(t, err)
	assert.Equal(t, []string{"plan", "tools", "report"}, final["trace"])
}

func TestThreadsAreIsolated(t *testing.T) {
	t.Parallel()

	cs := memory.NewCheckpointStore()
	runnable, err := chatWorkflow().Compile(graph.WithCheckpointStore(cs))
	require.NoError(t, err)
	defer runnable.Close()

	alpha := &graph.Config{ThreadID: "alpha"}
	beta := &graph.Config{ThreadID: "beta"}

	_, err = runnable.InvokeWithConfig(context.Background(), map[string]any{"messages": []string{"a1"}}, alpha)
	require.NoError(t, err)
	_, err = runnable.InvokeWithConfig(context.Background(), map[string]any{"messages": []string{"b1"}}, beta)
	require.NoError(t, err)
	_, err = runnable.InvokeWithConfig(context.Background(), map[string]any{"messages": []string{"a2"}}, alpha)
	require.NoError(t, err)

	alphaState, err := runnable.GetState(context.Background(), alpha)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "echo: a1", "a2", "echo: a2"}, alphaState.Values["messages"])

	betaState, err := runnable.GetState(context.Background(), beta)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "echo: b1"}, betaState.Values["messages"])
}

func TestConcurrentThreads(t *testing.T) {
	t.Parallel()

	cs := memory.NewCheckpointStore()
	runnable, err := chatWorkflow().Compile(graph.WithCheckpointStore(cs))
	require.NoError(t, err)
	defer runnable.Close()

	const threads = 8
	var wg sync.WaitGroup
	errs := make([]error, threads)

	for i := range threads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			config := &graph.Config{ThreadID: fmt.Sprintf("thread-%d", i)}
			msg := fmt.Sprintf("msg-%d", i)
			_, errs[i] = runnable.InvokeWithConfig(context.Background(), map[string]any{"messages": []string{msg}}, config)
		}()
	}
	wg.Wait()

	for i := range threads {
		require.NoError(t, errs[i])
		snapshot, err := runnable.GetState(context.Background(), &graph.Config{ThreadID: fmt.Sprintf("thread-%d", i)})
		require.NoError(t, err)
		want := []string{fmt.Sprintf("msg-%d", i), fmt.Sprintf("echo: msg-%d", i)}
		assert.Equal(t, want, snapshot.Values["messages"])
	}
}

func TestGetStateIsIdempotent(t *testing.T) {
	t.Parallel()

	cs := memory.NewCheckpointStore()
	runnable, err := chatWorkflow().Compile(graph.WithCheckpointStore(cs))
	require.NoError(t, err)
	defer runnable.Close()

	config := &graph.Config{ThreadID: "chat-3"}
	_, err = runnable.InvokeWithConfig(context.Background(), map[string]any{"messages": []string{"hi"}}, config)
	require.NoError(t, err)

	first, err := runnable.GetState(context.Background(), config)
	require.NoError(t, err)
	second, err := runnable.GetState(context.Background(), config)
	require.NoError(t, err)

	assert.Equal(t, first.Values, second.Values)
	assert.Equal(t, first.Next, second.Next)
}

func TestGetStateUnknownThread(t *testing.T) {
	t.Parallel()

	cs := memory.NewCheckpointStore()
	runnable, err := chatWorkflow().Compile(graph.WithCheckpointStore(cs))
	require.NoError(t, err)
	defer runnable.Close()

	_, err = runnable.GetState(context.Background(), &graph.Config{ThreadID: "never-ran"})
	assert.Error(t, err)
}
