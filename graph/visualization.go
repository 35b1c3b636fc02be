package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Exporter renders a graph definition in diagram formats.
type Exporter struct {
	graph *StateGraph
}

// NewExporter creates an exporter for the given graph.
func NewExporter(graph *StateGraph) *Exporter {
	return &Exporter{graph: graph}
}

// MermaidOptions defines configuration for Mermaid diagram generation.
type MermaidOptions struct {
	// Direction of the flowchart (e.g. "TD", "LR").
	Direction string
}

// DrawMermaid generates a Mermaid flowchart of the graph with top-down
// direction.
func (e *Exporter) DrawMermaid() string {
	return e.DrawMermaidWithOptions(MermaidOptions{Direction: "TD"})
}

// DrawMermaidWithOptions generates a Mermaid flowchart with custom
// options. Output is deterministic: nodes and branch keys are sorted.
func (e *Exporter) DrawMermaidWithOptions(opts MermaidOptions) string {
	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("flowchart %s\n", direction))
	sb.WriteString("    START([\"START\"])\n")
	sb.WriteString("    style START fill:#90EE90\n")

	nodeNames := make([]string, 0, len(e.graph.nodes))
	for name := range e.graph.nodes {
		nodeNames = append(nodeNames, name)
	}
	sort.Strings(nodeNames)
	for _, name := range nodeNames {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", name, name))
	}

	if e.referencesEnd() {
		sb.WriteString("    END([\"END\"])\n")
		sb.WriteString("    style END fill:#FFB6C1\n")
	}

	for _, edge := range e.graph.edges {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", edge.From, edge.To))
	}

	froms := make([]string, 0, len(e.graph.conditionalEdges))
	for from := range e.graph.conditionalEdges {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	for _, from := range froms {
		ce := e.graph.conditionalEdges[from]
		keys := make([]string, 0, len(ce.pathMap))
		for key := range ce.pathMap {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			sb.WriteString(fmt.Sprintf("    %s -.->|%s| %s\n", from, key, ce.pathMap[key]))
		}
	}

	return sb.String()
}

func (e *Exporter) referencesEnd() bool {
	for _, edge := range e.graph.edges {
		if edge.To == END {
			return true
		}
	}
	for _, ce := range e.graph.conditionalEdges {
		for _, to := range ce.pathMap {
			if to == END {
				return true
			}
		}
	}
	return false
}
