package roadmap

// Stats summarizes the shape of a generated network
type Stats struct {
	Nodes           int         `json:"nodes"`
	Edges           int         `json:"edges"`
	MSTEdges        int         `json:"mstEdges"`
	MSTWeight       float64     `json:"mstWeight"`
	TotalLength     float64     `json:"totalLength"`
	Components      int         `json:"components"`
	GridCells       int         `json:"gridCells"`
	AugmentRounds   int         `json:"augmentRounds"`
	AugmentAdded    int         `json:"augmentAdded"`
	CrossingRejects int         `json:"crossingRejects"`
	MinDegree       int         `json:"minDegree"`
	MaxDegree       int         `json:"maxDegree"`
	MeanDegree      float64     `json:"meanDegree"`
	OverCap         int         `json:"overCap"` // Nodes whose spanning tree degree exceeds the cap
	DegreeHistogram map[int]int `json:"degreeHistogram"`
}

// Stats computes summary statistics for the network
func (n *Network) Stats() Stats {
	g := n.graph
	s := Stats{
		Nodes:           g.NumNodes(),
		Edges:           g.NumEdges(),
		MSTEdges:        len(n.mst.Edges),
		MSTWeight:       n.mst.Weight,
		TotalLength:     g.TotalLength(),
		Components:      Components(g),
		GridCells:       n.grid.NumCells(),
		AugmentRounds:   n.rounds,
		AugmentAdded:    n.augment.Added,
		CrossingRejects: n.augment.CrossingRejects,
		DegreeHistogram: make(map[int]int),
	}

	for i := 0; i < g.NumNodes(); i++ {
		d := g.Degree(i)
		s.DegreeHistogram[d]++
		if i == 0 || d < s.MinDegree {
			s.MinDegree = d
		}
		s.MaxDegree = max(s.MaxDegree, d)
		if d > n.params.MaxDegree {
			s.OverCap++
		}
	}
	if s.Nodes > 0 {
		s.MeanDegree = float64(2*s.Edges) / float64(s.Nodes)
	}

	return s
}

// Components counts the connected components of g
func Components(g *Graph) int {
	uf := newUnionFind(g.NumNodes())
	for _, e := range g.Edges() {
		uf.union(e.A, e.B)
	}
	return uf.components
}
