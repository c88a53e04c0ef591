package roadmap

import (
	"math/rand"

	"github.com/paulmach/orb"
)

// PlaceNodes draws count independent uniform samples in [-extent, extent]^2.
// Coincident samples are kept; they simply yield zero-length edges.
func PlaceNodes(count int, extent float64, rng *rand.Rand) []orb.Point {
	positions := make([]orb.Point, count)
	for i := range positions {
		positions[i] = orb.Point{
			-extent + rng.Float64()*2*extent,
			-extent + rng.Float64()*2*extent,
		}
	}
	return positions
}
