// Package align implements partial-order alignment on the CPU.
//
// A Graph accumulates sequences one at a time: the first sequence seeds a
// linear chain, every later sequence is aligned against the DAG built so far
// and threaded back into it. Nodes that represent alternative bases at the
// same alignment column are linked into "aligned rings", which later drive
// MSA column assignment. Edge weights accumulate per-base support and drive
// consensus extraction.
//
// The batch package wraps this engine behind the capacity-bound batch
// contract; nothing here knows about batches or capacity.
package align

import "fmt"

// Scoring holds the alignment scores. Match must be positive, Mismatch and
// Gap non-positive.
type Scoring struct {
	Match    int
	Mismatch int
	Gap      int
}

type edge struct {
	to     int
	weight int
}

type node struct {
	base   byte
	weight int // accumulated per-base support

	out []edge // ordered by insertion, deterministic
	in  []int  // predecessor node ids

	// alignedTo lists the other nodes of this node's column ring.
	alignedTo []int
}

// Graph is a partial-order alignment graph. Not safe for concurrent use.
type Graph struct {
	scoring   Scoring
	bandWidth int // 0 = full alignment

	nodes []node

	// seqPaths[s] is the ordered list of node ids visited by sequence s.
	// Row s of the MSA is reconstructed from this path.
	seqPaths [][]int
}

// NewGraph returns an empty graph. bandWidth restricts the alignment matrix
// to a diagonal band when positive; zero selects full alignment.
func NewGraph(scoring Scoring, bandWidth int) *Graph {
	return &Graph{scoring: scoring, bandWidth: bandWidth}
}

// NumSequences returns the number of sequences threaded into the graph.
func (g *Graph) NumSequences() int { return len(g.seqPaths) }

// NumNodes returns the current node count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// AddSequence aligns seq against the graph and threads it in. weights is an
// optional per-base weight vector (nil = uniform weight 1); when present its
// length must equal len(seq).
func (g *Graph) AddSequence(seq []byte, weights []int8) error {
	if len(seq) == 0 {
		return fmt.Errorf("add sequence: empty sequence")
	}
	if weights != nil && len(weights) != len(seq) {
		return fmt.Errorf("add sequence: weights length %d does not match sequence length %d", len(weights), len(seq))
	}

	w := func(j int) int {
		if weights == nil {
			return 1
		}
		return int(weights[j])
	}

	if len(g.nodes) == 0 {
		g.seedChain(seq, w)
		return nil
	}

	aln := g.alignToGraph(seq)
	g.fuse(seq, w, aln)
	return nil
}

// seedChain builds the initial linear graph from the first sequence.
func (g *Graph) seedChain(seq []byte, w func(int) int) {
	path := make([]int, 0, len(seq))
	prev := -1
	for j := 0; j < len(seq); j++ {
		id := g.addNode(seq[j])
		g.nodes[id].weight += w(j)
		if prev >= 0 {
			g.addEdge(prev, id, w(j))
		}
		prev = id
		path = append(path, id)
	}
	g.seqPaths = append(g.seqPaths, path)
}

func (g *Graph) addNode(base byte) int {
	g.nodes = append(g.nodes, node{base: base})
	return len(g.nodes) - 1
}

func (g *Graph) addEdge(from, to, weight int) {
	n := &g.nodes[from]
	for i := range n.out {
		if n.out[i].to == to {
			n.out[i].weight += weight
			return
		}
	}
	n.out = append(n.out, edge{to: to, weight: weight})
	g.nodes[to].in = append(g.nodes[to].in, from)
}

// fuse threads an aligned sequence into the graph. aln pairs graph node ids
// with sequence positions; -1 on either side marks a gap.
func (g *Graph) fuse(seq []byte, w func(int) int, aln []alignedPair) {
	path := make([]int, 0, len(seq))
	prev := -1
	for _, p := range aln {
		if p.seqPos < 0 {
			continue // deletion: graph node not visited by this sequence
		}

		var cur int
		switch {
		case p.nodeID < 0:
			// Insertion relative to the graph: brand-new node.
			cur = g.addNode(seq[p.seqPos])
		case g.nodes[p.nodeID].base == seq[p.seqPos]:
			cur = p.nodeID
		default:
			// Mismatch column: reuse a ring member with this base if one
			// exists, otherwise grow the ring.
			cur = -1
			for _, alt := range g.nodes[p.nodeID].alignedTo {
				if g.nodes[alt].base == seq[p.seqPos] {
					cur = alt
					break
				}
			}
			if cur < 0 {
				cur = g.addNode(seq[p.seqPos])
				g.joinRing(p.nodeID, cur)
			}
		}

		g.nodes[cur].weight += w(p.seqPos)
		if prev >= 0 {
			g.addEdge(prev, cur, w(p.seqPos))
		}
		prev = cur
		path = append(path, cur)
	}
	g.seqPaths = append(g.seqPaths, path)
}

// joinRing adds newID to the column ring containing member. Every ring
// member lists all the others.
func (g *Graph) joinRing(member, newID int) {
	ring := append([]int{member}, g.nodes[member].alignedTo...)
	for _, m := range ring {
		g.nodes[m].alignedTo = append(g.nodes[m].alignedTo, newID)
	}
	g.nodes[newID].alignedTo = ring
}

// topoOrder returns node ids in a deterministic topological order, with
// column rings emitted as contiguous runs. A ring is emitted only once every
// member's predecessors have been emitted, which is what makes MSA column
// assignment well defined.
func (g *Graph) topoOrder() []int {
	n := len(g.nodes)
	indeg := make([]int, n)
	for i := range g.nodes {
		indeg[i] = len(g.nodes[i].in)
	}
	emitted := make([]bool, n)
	order := make([]int, 0, n)

	ringReady := func(id int) bool {
		if indeg[id] != 0 {
			return false
		}
		for _, m := range g.nodes[id].alignedTo {
			if !emitted[m] && indeg[m] != 0 {
				return false
			}
		}
		return true
	}

	emit := func(id int) {
		emitted[id] = true
		order = append(order, id)
		for _, e := range g.nodes[id].out {
			indeg[e.to]--
		}
	}

	// Quadratic scan keeps ties deterministic (lowest id first). Graphs
	// here are bounded by the batch config, so this stays cheap.
	for len(order) < n {
		progressed := false
		for id := 0; id < n; id++ {
			if emitted[id] || !ringReady(id) {
				continue
			}
			emit(id)
			for _, m := range g.nodes[id].alignedTo {
				if !emitted[m] && indeg[m] == 0 {
					emit(m)
				}
			}
			progressed = true
		}
		if !progressed {
			// A cycle through a ring would be a graph construction bug;
			// fall back to plain in-degree order to stay terminating.
			for id := 0; id < n; id++ {
				if !emitted[id] && indeg[id] == 0 {
					emit(id)
					progressed = true
				}
			}
			if !progressed {
				panic("align: graph contains a cycle")
			}
		}
	}
	return order
}
