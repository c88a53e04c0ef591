package roadmap

import (
	"cmp"
	"slices"

	"roadnet-planner/internal/spatial"
)

// Candidate is a potential edge discovered through the grid
type Candidate struct {
	Edge
	Length float64
}

// MSTResult summarizes a spanning tree pass
type MSTResult struct {
	Edges      []Edge  // Accepted edges in acceptance order
	Weight     float64 // Summed length of accepted edges
	Candidates int     // Distinct candidate pairs considered
	Components int     // Connected components after the pass
}

// Connected reports whether the pass joined every node
func (r MSTResult) Connected() bool { return r.Components <= 1 }

// CandidateEdges returns every distinct pair of nodes within the grid's cell
// size, sorted by (length, A, B). The total order keeps the spanning tree
// reproducible when several pairs share a length.
func CandidateEdges(g *Graph, grid *spatial.Grid) []Candidate {
	var candidates []Candidate
	for i := 0; i < g.NumNodes(); i++ {
		for _, j := range grid.Query(i) {
			// Query is symmetric, so keeping j > i visits each pair once.
			if j > i {
				candidates = append(candidates, Candidate{
					Edge:   Edge{A: i, B: j},
					Length: g.EdgeLength(i, j),
				})
			}
		}
	}

	slices.SortFunc(candidates, func(x, y Candidate) int {
		if c := cmp.Compare(x.Length, y.Length); c != 0 {
			return c
		}
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
	return candidates
}

// BuildMST runs Kruskal's algorithm over the grid's candidate edges and adds
// the accepted edges to g.
//
// Candidates only reach as far as the cell size, so a cluster farther than
// that from everything else stays disconnected. That is reported through
// Components, not treated as an error.
func BuildMST(g *Graph, grid *spatial.Grid) MSTResult {
	n := g.NumNodes()
	candidates := CandidateEdges(g, grid)

	uf := newUnionFind(n)
	result := MSTResult{
		Edges:      make([]Edge, 0, max(n-1, 0)),
		Candidates: len(candidates),
	}

	for _, c := range candidates {
		if uf.components <= 1 {
			break
		}
		if !uf.union(c.A, c.B) {
			continue
		}
		g.addEdge(c.A, c.B)
		result.Edges = append(result.Edges, c.Edge)
		result.Weight += c.Length
	}

	result.Components = uf.components
	return result
}
