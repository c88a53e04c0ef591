package roadmap

import (
	"errors"
	"fmt"
	"slices"

	"github.com/paulmach/orb"

	"roadnet-planner/internal/geometry"
)

// ErrInvalidEdge is returned for self-loops and edges naming unknown nodes
var ErrInvalidEdge = errors.New("invalid edge")

// Edge is an undirected connection stored in canonical form, A < B
type Edge struct {
	A int `json:"a"`
	B int `json:"b"`
}

// NewEdge canonicalizes the pair so the lower index comes first
func NewEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Graph is a planar road network: fixed node positions plus a symmetric
// adjacency list. Neighbor lists are kept sorted so iteration order, and with
// it every seeded run, is reproducible.
type Graph struct {
	positions []orb.Point
	adj       [][]int
	numEdges  int
}

// NewGraph creates an edgeless graph over the given positions
func NewGraph(positions []orb.Point) *Graph {
	return &Graph{
		positions: positions,
		adj:       make([][]int, len(positions)),
	}
}

// NumNodes returns the number of nodes
func (g *Graph) NumNodes() int { return len(g.positions) }

// NumEdges returns the number of undirected edges
func (g *Graph) NumEdges() int { return g.numEdges }

// Position returns the ground-plane position of node i
func (g *Graph) Position(i int) orb.Point { return g.positions[i] }

// Neighbors returns the sorted neighbor list of node i. The slice is shared
// with the graph and must not be modified.
func (g *Graph) Neighbors(i int) []int { return g.adj[i] }

// Degree returns the number of neighbors of node i
func (g *Graph) Degree(i int) int { return len(g.adj[i]) }

// HasEdge reports whether a and b are adjacent
func (g *Graph) HasEdge(a, b int) bool {
	if len(g.adj[a]) > len(g.adj[b]) {
		a, b = b, a
	}
	_, found := slices.BinarySearch(g.adj[a], b)
	return found
}

// EdgeLength returns the Euclidean length between two nodes
func (g *Graph) EdgeLength(a, b int) float64 {
	return geometry.Distance(g.positions[a], g.positions[b])
}

// Segment returns the ground-plane segment between two nodes
func (g *Graph) Segment(e Edge) geometry.LineSegment {
	return geometry.LineSegment{P1: g.positions[e.A], P2: g.positions[e.B]}
}

// AddEdge connects a and b in both directions. Adding an existing edge is a
// no-op and reports false.
func (g *Graph) AddEdge(a, b int) (bool, error) {
	n := len(g.positions)
	if a < 0 || a >= n || b < 0 || b >= n {
		return false, fmt.Errorf("edge (%d,%d) with %d nodes: %w", a, b, n, ErrInvalidEdge)
	}
	if a == b {
		return false, fmt.Errorf("self-loop on node %d: %w", a, ErrInvalidEdge)
	}
	return g.addEdge(a, b), nil
}

// addEdge is AddEdge without the bounds checks, for indices the generator
// already knows are valid
func (g *Graph) addEdge(a, b int) bool {
	e := NewEdge(a, b)
	pos, found := slices.BinarySearch(g.adj[e.A], e.B)
	if found {
		return false
	}
	g.adj[e.A] = slices.Insert(g.adj[e.A], pos, e.B)

	pos, _ = slices.BinarySearch(g.adj[e.B], e.A)
	g.adj[e.B] = slices.Insert(g.adj[e.B], pos, e.A)

	g.numEdges++
	return true
}

// Edges returns every edge once, ordered by (A, B)
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.numEdges)
	for a, neighbors := range g.adj {
		for _, b := range neighbors {
			if b > a {
				edges = append(edges, Edge{A: a, B: b})
			}
		}
	}
	return edges
}

// Vertices returns a copy of the node positions, index-aligned with node IDs
func (g *Graph) Vertices() []orb.Point {
	return slices.Clone(g.positions)
}

// AdjacencyList returns a deep copy of the neighbor lists
func (g *Graph) AdjacencyList() [][]int {
	out := make([][]int, len(g.adj))
	for i, neighbors := range g.adj {
		out[i] = slices.Clone(neighbors)
		if out[i] == nil {
			out[i] = []int{}
		}
	}
	return out
}

// TotalLength sums the length of every edge
func (g *Graph) TotalLength() float64 {
	total := 0.0
	for _, e := range g.Edges() {
		total += g.EdgeLength(e.A, e.B)
	}
	return total
}
