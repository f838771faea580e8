package align

import (
	"fmt"
	"io"
	"strings"
)

// WriteDOT serializes the graph in Graphviz DOT: one node statement per
// graph node labeled with its base and support, one edge statement per edge
// labeled with its weight. Output is deterministic (node id order).
func (g *Graph) WriteDOT(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph poa {\n")
	b.WriteString("\trankdir=\"LR\";\n")
	for id := range g.nodes {
		fmt.Fprintf(&b, "\t%d [label=\"%c:%d\"];\n", id, g.nodes[id].base, g.nodes[id].weight)
	}
	for id := range g.nodes {
		for _, e := range g.nodes[id].out {
			fmt.Fprintf(&b, "\t%d -> %d [label=\"%d\"];\n", id, e.to, e.weight)
		}
	}
	b.WriteString("}\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}
