package pathfind

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"roadnet-planner/internal/geometry"
)

// ErrNodeOutOfRange is returned when a query names a node that does not exist
var ErrNodeOutOfRange = errors.New("node index out of range")

// Graph is the read-only view of a road network the search needs
type Graph interface {
	NumNodes() int
	Position(i int) orb.Point
	Neighbors(i int) []int
}

// Result is the outcome of one shortest path query
type Result struct {
	Path    []int   // Node indices from start to end, empty when unreachable
	Cost    float64 // Summed Euclidean length, +Inf when unreachable
	Settled int     // Nodes popped from the frontier
}

// Found reports whether a path exists
func (r Result) Found() bool { return len(r.Path) > 0 }

// item represents a tentative distance in the frontier
type item struct {
	node  int
	dist  float64
	index int // Index in the heap
}

// frontier implements heap.Interface ordered by tentative distance
type frontier []*item

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].node < f[j].node
}

func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index = i
	f[j].index = j
}

func (f *frontier) Push(x any) {
	it := x.(*item)
	it.index = len(*f)
	*f = append(*f, it)
}

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*f = old[:n-1]
	return it
}

// FindShortestPath returns the node indices of a lowest-cost path from start
// to end. An unreachable end yields an empty path and no error.
func FindShortestPath(g Graph, start, end int) ([]int, error) {
	res, err := Search(g, start, end)
	if err != nil {
		return nil, err
	}
	return res.Path, nil
}

// Search runs Dijkstra's algorithm from start, stopping as soon as end is
// settled. Edge weights are the Euclidean distance between endpoints. All
// working state is local, so concurrent searches over the same graph are safe.
func Search(g Graph, start, end int) (Result, error) {
	n := g.NumNodes()
	if start < 0 || start >= n {
		return Result{}, fmt.Errorf("start %d not in [0,%d): %w", start, n, ErrNodeOutOfRange)
	}
	if end < 0 || end >= n {
		return Result{}, fmt.Errorf("end %d not in [0,%d): %w", end, n, ErrNodeOutOfRange)
	}

	if start == end {
		return Result{Path: []int{start}, Cost: 0, Settled: 1}, nil
	}

	dist := make([]float64, n)
	prev := make([]int, n)
	entries := make([]*item, n)
	settled := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[start] = 0

	open := &frontier{}
	entries[start] = &item{node: start, dist: 0}
	heap.Push(open, entries[start])

	count := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(*item)
		entries[current.node] = nil
		settled[current.node] = true
		count++

		if current.node == end {
			break
		}

		from := g.Position(current.node)
		for _, neighbor := range g.Neighbors(current.node) {
			if settled[neighbor] {
				continue
			}

			alt := current.dist + geometry.Distance(from, g.Position(neighbor))
			if alt >= dist[neighbor] {
				continue
			}

			dist[neighbor] = alt
			prev[neighbor] = current.node
			if e := entries[neighbor]; e != nil {
				e.dist = alt
				heap.Fix(open, e.index)
			} else {
				entries[neighbor] = &item{node: neighbor, dist: alt}
				heap.Push(open, entries[neighbor])
			}
		}
	}

	if !settled[end] {
		return Result{Path: []int{}, Cost: math.Inf(1), Settled: count}, nil
	}

	return Result{Path: reconstructPath(prev, start, end), Cost: dist[end], Settled: count}, nil
}

// reconstructPath walks predecessors back from end
func reconstructPath(prev []int, start, end int) []int {
	path := []int{}
	for node := end; node != -1; node = prev[node] {
		path = append(path, node)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	if path[0] != start {
		return []int{}
	}
	return path
}

// PathLength sums the Euclidean length of consecutive hops along path
func PathLength(g Graph, path []int) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += geometry.Distance(g.Position(path[i-1]), g.Position(path[i]))
	}
	return total
}
