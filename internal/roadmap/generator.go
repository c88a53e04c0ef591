package roadmap

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"roadnet-planner/internal/metrics"
	"roadnet-planner/internal/spatial"
)

// Option configures a Generator
type Option func(*Generator)

// WithLogger sets the logger used for progress output
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// WithMetrics records generation and query metrics into reg
func WithMetrics(reg *metrics.Registry) Option {
	return func(g *Generator) { g.metrics = reg }
}

// Generator builds road networks from a fixed set of parameters
type Generator struct {
	params  Params
	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewGenerator validates params and returns a generator for them
func NewGenerator(params Params, opts ...Option) (*Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	g := &Generator{params: params, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate is shorthand for NewGenerator followed by Generator.Generate
func Generate(params Params, opts ...Option) (*Network, error) {
	gen, err := NewGenerator(params, opts...)
	if err != nil {
		return nil, err
	}
	return gen.Generate(), nil
}

// Generate runs the full pipeline: placement, grid build, spanning tree and
// augmentation. Every random draw comes from one source seeded with
// Params.Seed, so equal parameters always give an identical network.
func (gen *Generator) Generate() *Network {
	p := gen.params
	log := gen.logger
	startTime := time.Now()
	rng := rand.New(rand.NewSource(p.Seed))

	log.Info("🗺️  Building road network",
		zap.Int("nodes", p.NodeCount),
		zap.Float64("mapSize", p.MapSize),
		zap.Float64("cellSize", p.CellSize),
		zap.Int64("seed", p.Seed),
	)

	// Step 1: Random placement
	stepStart := time.Now()
	positions := PlaceNodes(p.NodeCount, p.MapSize, rng)
	graph := NewGraph(positions)
	gen.step("place", stepStart)

	// Step 2: Grid bucketing
	stepStart = time.Now()
	grid := spatial.NewGrid(positions, p.CellSize, p.MapSize)
	gen.step("grid", stepStart)
	log.Debug("   Grid built", zap.Int("cells", grid.NumCells()))

	// Step 3: Spanning tree
	stepStart = time.Now()
	mst := BuildMST(graph, grid)
	gen.step("mst", stepStart)
	log.Info("   Spanning tree built",
		zap.Int("candidates", mst.Candidates),
		zap.Int("edges", len(mst.Edges)),
		zap.Float64("weight", mst.Weight),
	)
	if !mst.Connected() {
		log.Warn("   ⚠️  Spanning tree left the network disconnected, some routes will not exist",
			zap.Int("components", mst.Components),
			zap.Float64("cellSize", p.CellSize),
		)
	}

	// Step 4: Augmentation rounds
	stepStart = time.Now()
	opts := AugmentOptions{
		MaxDegree:            p.MaxDegree,
		MaxAttemptsPerNode:   p.MaxAttemptsPerNode,
		PreventIntersections: p.PreventIntersections,
	}
	var augmented AugmentStats
	rounds := 0
	for {
		stats := AugmentEdges(graph, grid, opts, rng)
		rounds++
		augmented.Visited += stats.Visited
		augmented.Added += stats.Added
		augmented.CrossingRejects += stats.CrossingRejects
		augmented.Exhausted += stats.Exhausted
		gen.metrics.RecordAugmentation(stats.Added, stats.CrossingRejects)

		log.Debug("   Augmentation round",
			zap.Int("round", rounds),
			zap.Int("added", stats.Added),
			zap.Int("crossingRejects", stats.CrossingRejects),
		)
		// The first pass always runs; MinDegree only asks for more of them
		if stats.Added == 0 || rounds >= p.AugmentRounds || countBelowDegree(graph, p.MinDegree) == 0 {
			break
		}
	}
	gen.step("augment", stepStart)
	log.Info("   Augmentation done",
		zap.Int("rounds", rounds),
		zap.Int("added", augmented.Added),
		zap.Int("crossingRejects", augmented.CrossingRejects),
	)

	// Step 5: Nearest-node lookup
	stepStart = time.Now()
	locator := spatial.NewLocator(positions)
	gen.step("locator", stepStart)

	network := &Network{
		params:  p,
		graph:   graph,
		grid:    grid,
		locator: locator,
		mst:     mst,
		augment: augmented,
		rounds:  rounds,
		metrics: gen.metrics,
	}
	gen.metrics.RecordGraph(graph.NumNodes(), graph.NumEdges(), mst.Components, len(mst.Edges))

	log.Info("✅ Road network built",
		zap.Int("nodes", graph.NumNodes()),
		zap.Int("edges", graph.NumEdges()),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return network
}

func (gen *Generator) step(name string, started time.Time) {
	elapsed := time.Since(started)
	gen.metrics.RecordGenerationStep(name, elapsed)
	gen.logger.Debug("   Step finished", zap.String("step", name), zap.Duration("elapsed", elapsed))
}

// countBelowDegree counts nodes with fewer than minDegree neighbours
func countBelowDegree(g *Graph, minDegree int) int {
	count := 0
	for i := 0; i < g.NumNodes(); i++ {
		if g.Degree(i) < minDegree {
			count++
		}
	}
	return count
}
