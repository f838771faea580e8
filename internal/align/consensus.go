package align

// Consensus extracts the maximum-weight path through the graph: at every
// step the traversal prefers the heaviest incoming edge, so the consensus
// follows the bases with the most sequence support. The returned coverage
// slice holds, per consensus base, the accumulated support of its node.
//
// Returns empty results for an empty graph.
func (g *Graph) Consensus() (consensus []byte, coverage []int) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	order := g.topoOrder()
	best := make([]int, len(g.nodes))
	from := make([]int, len(g.nodes))
	for i := range from {
		from[i] = -1
	}

	for _, id := range order {
		nd := &g.nodes[id]
		if len(nd.in) == 0 {
			// Seed sources with their own support so ties between
			// alternative starts resolve toward the heavier base.
			best[id] = nd.weight
			continue
		}
		bestScore := int(minScore)
		bestPred := -1
		for _, p := range nd.in {
			var w int
			for _, e := range g.nodes[p].out {
				if e.to == id {
					w = e.weight
					break
				}
			}
			s := best[p] + w
			if s > bestScore {
				bestScore = s
				bestPred = p
			}
		}
		best[id] = bestScore
		from[id] = bestPred
	}

	// End at the best-scoring sink; ties break toward the lower node id.
	end := -1
	for _, id := range order {
		if len(g.nodes[id].out) != 0 {
			continue
		}
		if end < 0 || best[id] > best[end] || (best[id] == best[end] && id < end) {
			end = id
		}
	}

	var revBases []byte
	var revCov []int
	for id := end; id >= 0; id = from[id] {
		revBases = append(revBases, g.nodes[id].base)
		revCov = append(revCov, g.nodes[id].weight)
	}

	consensus = make([]byte, 0, len(revBases))
	coverage = make([]int, 0, len(revCov))
	for i := len(revBases) - 1; i >= 0; i-- {
		consensus = append(consensus, revBases[i])
		coverage = append(coverage, revCov[i])
	}
	return consensus, coverage
}
