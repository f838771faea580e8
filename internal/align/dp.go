package align

import "math"

// alignedPair is one column of a sequence-to-graph alignment. nodeID < 0
// marks an insertion (sequence base with no graph node), seqPos < 0 a
// deletion (graph node skipped by the sequence).
type alignedPair struct {
	nodeID int
	seqPos int
}

const minScore = math.MinInt32 / 2

// dpCell records the score of one matrix cell together with the cell it was
// reached from, so the traceback needs no recomputation.
type dpCell struct {
	score    int32
	prevRank int32 // row of the predecessor cell, -1 for the boundary row
	prevCol  int32
}

// alignToGraph runs Needleman-Wunsch of seq against the graph in topological
// order and returns the traceback as aligned pairs. The graph must be
// non-empty.
//
// Rows are graph nodes (rank order), columns are sequence positions. When a
// band width is configured, each row only evaluates a diagonal window; cells
// outside the band keep minScore and are never chosen.
func (g *Graph) alignToGraph(seq []byte) []alignedPair {
	order := g.topoOrder()
	n := len(order)
	m := len(seq)

	// rankOf maps node id to matrix row (1-based; row 0 is the boundary).
	rankOf := make([]int, len(g.nodes))
	for r, id := range order {
		rankOf[id] = r + 1
	}

	cells := make([][]dpCell, n+1)
	for i := range cells {
		cells[i] = make([]dpCell, m+1)
		for j := range cells[i] {
			cells[i][j] = dpCell{score: minScore, prevRank: -1, prevCol: -1}
		}
	}

	gap := int32(g.scoring.Gap)
	cells[0][0] = dpCell{score: 0, prevRank: -1, prevCol: -1}
	for j := 1; j <= m; j++ {
		cells[0][j] = dpCell{score: int32(j) * gap, prevRank: 0, prevCol: int32(j - 1)}
	}

	for r := 1; r <= n; r++ {
		id := order[r-1]
		nd := &g.nodes[id]

		predRanks := make([]int, 0, len(nd.in)+1)
		for _, p := range nd.in {
			predRanks = append(predRanks, rankOf[p])
		}
		if len(predRanks) == 0 {
			predRanks = append(predRanks, 0) // source node: boundary row
		}

		jlo, jhi := 0, m
		if g.bandWidth > 0 {
			center := r * m / (n + 1)
			jlo = center - g.bandWidth
			if jlo < 0 {
				jlo = 0
			}
			jhi = center + g.bandWidth
			if jhi > m {
				jhi = m
			}
		}

		for j := jlo; j <= jhi; j++ {
			best := dpCell{score: minScore, prevRank: -1, prevCol: -1}

			// Node consumed, sequence base consumed (match/mismatch).
			if j > 0 {
				sub := int32(g.scoring.Mismatch)
				if nd.base == seq[j-1] {
					sub = int32(g.scoring.Match)
				}
				for _, p := range predRanks {
					if s := cells[p][j-1].score; s > minScore && s+sub > best.score {
						best = dpCell{score: s + sub, prevRank: int32(p), prevCol: int32(j - 1)}
					}
				}
			}

			// Node consumed, no sequence base (deletion in sequence).
			for _, p := range predRanks {
				if s := cells[p][j].score; s > minScore && s+gap > best.score {
					best = dpCell{score: s + gap, prevRank: int32(p), prevCol: int32(j)}
				}
			}

			// Sequence base consumed, no node (insertion).
			if j > 0 {
				if s := cells[r][j-1].score; s > minScore && s+gap > best.score {
					best = dpCell{score: s + gap, prevRank: int32(r), prevCol: int32(j - 1)}
				}
			}

			if best.score > cells[r][j].score {
				cells[r][j] = best
			}
		}
	}

	// Alignment must end at a sink with the whole sequence consumed.
	endRank := 0
	endScore := int32(minScore)
	for r := 1; r <= n; r++ {
		if len(g.nodes[order[r-1]].out) != 0 {
			continue
		}
		if s := cells[r][m].score; s > endScore {
			endScore = s
			endRank = r
		}
	}
	if endRank == 0 {
		// Banding starved every sink; fall back to the best full-sequence
		// cell so the caller still gets a usable threading.
		for r := 1; r <= n; r++ {
			if s := cells[r][m].score; s > endScore {
				endScore = s
				endRank = r
			}
		}
	}

	return g.traceback(cells, order, endRank, m)
}

func (g *Graph) traceback(cells [][]dpCell, order []int, r, j int) []alignedPair {
	var rev []alignedPair
	for r > 0 || j > 0 {
		cell := cells[r][j]
		pr, pj := int(cell.prevRank), int(cell.prevCol)
		if pr < 0 && pj < 0 {
			// Boundary corner.
			break
		}
		switch {
		case pr != r && pj != j:
			rev = append(rev, alignedPair{nodeID: order[r-1], seqPos: j - 1})
		case pr != r:
			rev = append(rev, alignedPair{nodeID: order[r-1], seqPos: -1})
		default:
			rev = append(rev, alignedPair{nodeID: -1, seqPos: j - 1})
		}
		r, j = pr, pj
	}

	aln := make([]alignedPair, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		aln = append(aln, rev[i])
	}
	return aln
}
