package align

// MSA renders one alignment row per input sequence, in the order sequences
// were added. Columns are the graph's aligned rings in topological order;
// positions a sequence does not visit are '-'.
func (g *Graph) MSA() []string {
	if len(g.nodes) == 0 {
		return nil
	}

	order := g.topoOrder()

	// Assign a column to every ring in topological emission order. Ring
	// members share a column; the ring-aware topological sort guarantees
	// a ring is emitted only after all its ancestry, so sequential
	// numbering keeps columns consistent with graph order.
	col := make([]int, len(g.nodes))
	for i := range col {
		col[i] = -1
	}
	width := 0
	for _, id := range order {
		if col[id] >= 0 {
			continue
		}
		col[id] = width
		for _, m := range g.nodes[id].alignedTo {
			col[m] = width
		}
		width++
	}
	rows := make([]string, len(g.seqPaths))
	for s, path := range g.seqPaths {
		row := make([]byte, width)
		for i := range row {
			row[i] = '-'
		}
		for _, id := range path {
			row[col[id]] = g.nodes[id].base
		}
		rows[s] = string(row)
	}
	return rows
}
