package spatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocator_NearestMatchesLinearScan(t *testing.T) {
	positions := randomPositions(3000, 100, 11)
	loc := NewLocator(positions)

	queries := randomPositions(50, 120, 12)
	for _, q := range queries {
		bestID, bestDist := -1, 0.0
		for i, p := range positions {
			if d := planar.Distance(q, p); bestID == -1 || d < bestDist {
				bestID, bestDist = i, d
			}
		}

		got, ok := loc.Nearest(q)
		require.True(t, ok)
		assert.InDelta(t, bestDist, got.Distance, 1e-6)
	}
}

func TestLocator_EmptyTree(t *testing.T) {
	loc := NewLocator(nil)

	n, ok := loc.Nearest(orb.Point{0, 0})
	assert.False(t, ok)
	assert.Equal(t, -1, n.ID)
	assert.Empty(t, loc.KNearest(orb.Point{0, 0}, 5))
}

func TestLocator_KNearest(t *testing.T) {
	positions := []orb.Point{{0, 0}, {1, 0}, {5, 0}, {2, 0}, {-10, 0}}
	loc := NewLocator(positions)

	got := loc.KNearest(orb.Point{0.1, 0}, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []int{0, 1, 3}, []int{got[0].ID, got[1].ID, got[2].ID})
	assert.InDelta(t, 1.9, got[2].Distance, 1e-9)

	// k larger than the tree returns everything.
	assert.Len(t, loc.KNearest(orb.Point{0, 0}, 100), len(positions))
	assert.Empty(t, loc.KNearest(orb.Point{0, 0}, 0))
}
