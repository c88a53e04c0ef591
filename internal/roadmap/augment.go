package roadmap

import (
	"math/rand"

	"roadnet-planner/internal/geometry"
	"roadnet-planner/internal/spatial"
)

// AugmentOptions controls one augmentation pass
type AugmentOptions struct {
	MaxDegree            int
	MaxAttemptsPerNode   int
	PreventIntersections bool
}

// AugmentStats reports what one augmentation pass did
type AugmentStats struct {
	Visited         int // Nodes below the degree cap
	Added           int
	CrossingRejects int // Candidates dropped because they crossed an edge
	Exhausted       int // Visited nodes that ran out of candidates or attempts
}

// AugmentEdges adds at most one short extra edge per node on top of the
// spanning tree.
//
// Nodes are visited in a shuffled order so no direction is favoured. A node
// at or above MaxDegree is skipped, and only neighbours still below the cap
// are candidates. Up to MaxAttemptsPerNode random candidates are tried; with
// PreventIntersections set, a candidate crossing any existing edge near it is
// rejected. Edges already in g, including spanning tree edges that exceed
// the cap, are never removed.
func AugmentEdges(g *Graph, grid *spatial.Grid, opts AugmentOptions, rng *rand.Rand) AugmentStats {
	var stats AugmentStats

	for _, i := range rng.Perm(g.NumNodes()) {
		if g.Degree(i) >= opts.MaxDegree {
			continue
		}
		stats.Visited++

		var candidates []int
		for _, j := range grid.Query(i) {
			if g.Degree(j) < opts.MaxDegree && !g.HasEdge(i, j) {
				candidates = append(candidates, j)
			}
		}

		accepted := false
		for attempt := 0; attempt < opts.MaxAttemptsPerNode && len(candidates) > 0; attempt++ {
			k := rng.Intn(len(candidates))
			j := candidates[k]
			candidates[k] = candidates[len(candidates)-1]
			candidates = candidates[:len(candidates)-1]

			if opts.PreventIntersections && crossesExisting(g, grid, i, j) {
				stats.CrossingRejects++
				continue
			}

			g.addEdge(i, j)
			stats.Added++
			accepted = true
			break
		}
		if !accepted {
			stats.Exhausted++
		}
	}

	return stats
}

// crossesExisting reports whether the segment a-b would cross an edge
// incident to any node in the grid cells around it.
//
// Every edge is at most one cell size long, so any edge crossing a-b has both
// endpoints inside the segment's bounding box padded by one cell. Edges that
// share an endpoint with a-b are never crossings.
func crossesExisting(g *Graph, grid *spatial.Grid, a, b int) bool {
	seg := geometry.LineSegment{P1: g.Position(a), P2: g.Position(b)}
	window := seg.Bound().Pad(grid.CellSize())

	for _, u := range grid.NodesInBound(window) {
		if u == a || u == b {
			continue
		}
		for _, v := range g.Neighbors(u) {
			if v == a || v == b {
				continue
			}
			if geometry.SegmentsCross(seg, g.Segment(NewEdge(u, v))) {
				return true
			}
		}
	}
	return false
}
