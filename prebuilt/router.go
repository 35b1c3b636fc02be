package prebuilt

import (
	"sort"

	"github.com/loomgraph/loom/graph"
)

// AgentSpec describes one specialized agent node in a router graph.
type AgentSpec struct {
	Description string
	Function    graph.NodeFunc
}

// CreateAgentRouter builds a multi-agent router: a conditional edge from
// START dispatches each invocation to exactly one specialized agent
// based on the route function, and every agent leads to END. The route
// function must return the name of one of the configured agents.
func CreateAgentRouter(agents map[string]AgentSpec, route graph.BranchFunc, schema *graph.Schema, opts ...graph.CompileOption) (*graph.Runnable, error) {
	workflow := graph.NewStateGraph()
	if schema != nil {
		workflow.SetSchema(schema)
	}

	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	sort.Strings(names)

	pathMap := make(map[string]string, len(agents))
	for _, name := range names {
		spec := agents[name]
		workflow.AddNode(name, spec.Description, spec.Function)
		workflow.AddEdge(name, graph.END)
		pathMap[name] = name
	}

	workflow.AddConditionalEdges(graph.START, route, pathMap)

	return workflow.Compile(opts...)
}
