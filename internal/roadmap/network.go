package roadmap

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"roadnet-planner/internal/metrics"
	"roadnet-planner/internal/pathfind"
	"roadnet-planner/internal/spatial"
)

// ErrEmptyNetwork is returned by point lookups on a network without nodes
var ErrEmptyNetwork = errors.New("network has no nodes")

// Network is a generated road network. It is immutable once Generate
// returns, so any number of goroutines may query it concurrently.
type Network struct {
	params  Params
	graph   *Graph
	grid    *spatial.Grid
	locator *spatial.Locator
	mst     MSTResult
	augment AugmentStats
	rounds  int
	metrics *metrics.Registry
}

// Params returns the parameters the network was generated from
func (n *Network) Params() Params { return n.params }

// Graph exposes the underlying graph for read-only use
func (n *Network) Graph() *Graph { return n.graph }

// MST returns the spanning tree pass summary
func (n *Network) MST() MSTResult { return n.mst }

// GetVertices returns node positions, index-aligned with node IDs
func (n *Network) GetVertices() []orb.Point { return n.graph.Vertices() }

// GetAdjacencyList returns the neighbor list of every node
func (n *Network) GetAdjacencyList() [][]int { return n.graph.AdjacencyList() }

// FindShortestPath returns the lowest-cost node sequence from start to end.
// It is empty when the two nodes lie in different components.
func (n *Network) FindShortestPath(start, end int) ([]int, error) {
	res, err := n.Search(start, end)
	if err != nil {
		return nil, err
	}
	return res.Path, nil
}

// Search is FindShortestPath with the path cost and search effort attached
func (n *Network) Search(start, end int) (pathfind.Result, error) {
	started := time.Now()
	res, err := pathfind.Search(n.graph, start, end)

	status := "found"
	switch {
	case err != nil:
		status = "invalid"
	case !res.Found():
		status = "no_path"
	}
	n.metrics.RecordPathQuery(status, time.Since(started), res.Settled)

	return res, err
}

// NearestNode finds the closest node to an arbitrary ground-plane point
func (n *Network) NearestNode(p orb.Point) (spatial.Neighbor, error) {
	nb, ok := n.locator.Nearest(p)
	if !ok {
		return nb, ErrEmptyNetwork
	}
	return nb, nil
}

// Route is a path between two arbitrary points, snapped to the network
type Route struct {
	From   spatial.Neighbor `json:"from"`
	To     spatial.Neighbor `json:"to"`
	Path   []int            `json:"path"`
	Length float64          `json:"length"` // Along the network, excluding the snap distances
	Found  bool             `json:"found"`
}

// RouteBetween snaps both points to their nearest nodes and finds the
// shortest path between them. The network itself is not modified.
func (n *Network) RouteBetween(from, to orb.Point) (Route, error) {
	start, err := n.NearestNode(from)
	if err != nil {
		return Route{}, err
	}
	end, err := n.NearestNode(to)
	if err != nil {
		return Route{}, err
	}

	res, err := n.Search(start.ID, end.ID)
	if err != nil {
		return Route{}, fmt.Errorf("route %d -> %d: %w", start.ID, end.ID, err)
	}

	route := Route{From: start, To: end, Path: res.Path, Found: res.Found()}
	if route.Found {
		route.Length = res.Cost
	}
	return route, nil
}

// SearchResult is the neighbourhood around a point: the k closest nodes,
// the radius that encloses them and every edge touching them
type SearchResult struct {
	Center orb.Point          `json:"center"`
	Radius float64            `json:"radius"`
	Nodes  []spatial.Neighbor `json:"nodes"`
	Edges  []Edge             `json:"edges"`
}

// Neighborhood returns the k nodes nearest to p with their incident edges
func (n *Network) Neighborhood(p orb.Point, k int) SearchResult {
	nodes := n.locator.KNearest(p, k)
	result := SearchResult{Center: p, Nodes: nodes, Edges: []Edge{}}

	seen := make(map[Edge]struct{})
	for _, nb := range nodes {
		result.Radius = math.Max(result.Radius, nb.Distance)
		for _, j := range n.graph.Neighbors(nb.ID) {
			e := NewEdge(nb.ID, j)
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			result.Edges = append(result.Edges, e)
		}
	}

	slices.SortFunc(result.Edges, func(x, y Edge) int {
		if x.A != y.A {
			return x.A - y.A
		}
		return x.B - y.B
	})
	return result
}

// GeoJSON returns every edge as a LineString feature for map viewers
func (n *Network) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range n.graph.Edges() {
		seg := n.graph.Segment(e)
		f := geojson.NewFeature(orb.LineString{seg.P1, seg.P2})
		f.Properties["from"] = e.A
		f.Properties["to"] = e.B
		f.Properties["length"] = seg.Length()
		fc.Append(f)
	}
	return fc
}

// PathGeoJSON returns a path as a single LineString feature
func (n *Network) PathGeoJSON(path []int) *geojson.Feature {
	line := make(orb.LineString, 0, len(path))
	for _, id := range path {
		line = append(line, n.graph.Position(id))
	}
	f := geojson.NewFeature(line)
	f.Properties["nodes"] = path
	f.Properties["length"] = pathfind.PathLength(n.graph, path)
	return f
}
