package spatial

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"roadnet-planner/internal/geometry"
)

// CellKey identifies one bucket of the uniform grid
type CellKey struct {
	X, Z int
}

// Grid buckets node positions into square cells of a fixed size.
//
// The cell size doubles as the largest radius Query can answer: only the
// queried cell and its eight neighbours are scanned, so a caller asking for
// anything farther than CellSize would silently miss nodes. The grid is built
// once and never updated.
type Grid struct {
	cellSize  float64
	extent    float64
	positions []orb.Point
	cells     map[CellKey][]int
	nodeCell  []CellKey
}

// NewGrid partitions all positions into cells. cellSize must be positive.
func NewGrid(positions []orb.Point, cellSize, extent float64) *Grid {
	if !(cellSize > 0) {
		panic(fmt.Sprintf("spatial: cell size must be positive, got %v", cellSize))
	}

	g := &Grid{
		cellSize:  cellSize,
		extent:    extent,
		positions: positions,
		cells:     make(map[CellKey][]int),
		nodeCell:  make([]CellKey, len(positions)),
	}

	for i, p := range positions {
		key := g.CellOf(p)
		g.cells[key] = append(g.cells[key], i)
		g.nodeCell[i] = key
	}

	return g
}

// CellSize returns the bucket width, which is also the query radius
func (g *Grid) CellSize() float64 { return g.cellSize }

// NumCells returns the number of non-empty cells
func (g *Grid) NumCells() int { return len(g.cells) }

// CellOf returns the key of the cell containing p
func (g *Grid) CellOf(p orb.Point) CellKey {
	return CellKey{
		X: int(math.Floor((p.X() + g.extent) / g.cellSize)),
		Z: int(math.Floor((p.Y() + g.extent) / g.cellSize)),
	}
}

// Cell returns the node indices bucketed in key. The slice must not be modified.
func (g *Grid) Cell(key CellKey) []int { return g.cells[key] }

// Query returns every other node within CellSize of node i, scanning the
// 3x3 block of cells around it
func (g *Grid) Query(i int) []int {
	return g.near(g.positions[i], g.nodeCell[i], i)
}

func (g *Grid) near(p orb.Point, center CellKey, exclude int) []int {
	var nearby []int
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			for _, j := range g.cells[CellKey{X: center.X + dx, Z: center.Z + dz}] {
				if j != exclude && geometry.Distance(p, g.positions[j]) <= g.cellSize {
					nearby = append(nearby, j)
				}
			}
		}
	}
	return nearby
}

// NodesInBound returns the nodes of every cell overlapping b. Nodes are not
// filtered against b itself, so the result is a superset.
func (g *Grid) NodesInBound(b orb.Bound) []int {
	lo := g.CellOf(b.Min)
	hi := g.CellOf(b.Max)

	var nodes []int
	if span := (hi.X - lo.X + 1) * (hi.Z - lo.Z + 1); span > len(g.cells) {
		// Sparse grid: walking the occupied cells is cheaper.
		for key, bucket := range g.cells {
			if key.X >= lo.X && key.X <= hi.X && key.Z >= lo.Z && key.Z <= hi.Z {
				nodes = append(nodes, bucket...)
			}
		}
		return nodes
	}
	for x := lo.X; x <= hi.X; x++ {
		for z := lo.Z; z <= hi.Z; z++ {
			nodes = append(nodes, g.cells[CellKey{X: x, Z: z}]...)
		}
	}
	return nodes
}
