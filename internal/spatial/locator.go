package spatial

import (
	"cmp"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"roadnet-planner/internal/geometry"
)

// pointTolerance gives each node a tiny box, rtreego rejects degenerate rects
const pointTolerance = 1e-9

// nodeEntry wraps a node position for R-tree storage
type nodeEntry struct {
	ID   int
	BBox rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (n *nodeEntry) Bounds() rtreego.Rect {
	return n.BBox
}

// Locator answers nearest-node queries for arbitrary points. Unlike Grid it
// has no radius limit, which makes it the right tool for snapping a picked
// map coordinate to the road network.
type Locator struct {
	tree      *rtreego.Rtree
	positions []orb.Point
}

// Neighbor is a node returned by a proximity search
type Neighbor struct {
	ID       int     `json:"id"`
	Distance float64 `json:"distance"`
}

// NewLocator bulk-loads every position into an R-tree
func NewLocator(positions []orb.Point) *Locator {
	entries := make([]rtreego.Spatial, 0, len(positions))
	for i, p := range positions {
		entries = append(entries, &nodeEntry{
			ID:   i,
			BBox: rtreego.Point{p.X(), p.Y()}.ToRect(pointTolerance),
		})
	}

	return &Locator{
		tree:      rtreego.NewTree(2, 25, 50, entries...), // 2D, min 25, max 50 entries per node
		positions: positions,
	}
}

// Nearest finds the closest node to a given point
func (l *Locator) Nearest(p orb.Point) (Neighbor, bool) {
	if l.tree.Size() == 0 {
		return Neighbor{ID: -1}, false
	}

	item := l.tree.NearestNeighbor(rtreego.Point{p.X(), p.Y()})
	if item == nil {
		return Neighbor{ID: -1}, false
	}
	id := item.(*nodeEntry).ID
	return Neighbor{ID: id, Distance: geometry.Distance(p, l.positions[id])}, true
}

// KNearest returns up to k nodes ordered by increasing distance from p
func (l *Locator) KNearest(p orb.Point, k int) []Neighbor {
	k = min(k, l.tree.Size())
	if k <= 0 {
		return []Neighbor{}
	}

	items := l.tree.NearestNeighbors(k, rtreego.Point{p.X(), p.Y()})
	result := make([]Neighbor, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		id := item.(*nodeEntry).ID
		result = append(result, Neighbor{ID: id, Distance: geometry.Distance(p, l.positions[id])})
	}

	// The tree ranks by distance to each padded box; re-rank on exact distance.
	slices.SortFunc(result, func(a, b Neighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return result
}
