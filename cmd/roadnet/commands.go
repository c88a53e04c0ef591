package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"roadnet-planner/internal/metrics"
	"roadnet-planner/internal/roadmap"
	"roadnet-planner/internal/server"
)

var (
	startNode  int
	endNode    int
	fromPoint  string
	toPoint    string
	asGeoJSON  bool
	benchCount int
	benchJobs  int

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Build a network and print its statistics",
		RunE:  runGenerate,
	}
	routeCmd = &cobra.Command{
		Use:   "route",
		Short: "Build a network and print the shortest path between two nodes or points",
		RunE:  runRoute,
	}
	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Build a network and time random shortest-path queries",
		RunE:  runBench,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve networks over HTTP",
		RunE:  runServe,
	}
)

func init() {
	generateCmd.Flags().BoolVar(&asGeoJSON, "geojson", false, "print every edge as GeoJSON instead of statistics")

	routeCmd.Flags().IntVar(&startNode, "start", -1, "start node index")
	routeCmd.Flags().IntVar(&endNode, "end", -1, "end node index")
	routeCmd.Flags().StringVar(&fromPoint, "from", "", "start point as x,z (snapped to the nearest node)")
	routeCmd.Flags().StringVar(&toPoint, "to", "", "end point as x,z (snapped to the nearest node)")
	routeCmd.Flags().BoolVar(&asGeoJSON, "geojson", false, "print the path as a GeoJSON feature")

	benchCmd.Flags().IntVarP(&benchCount, "queries", "n", 1000, "number of random queries")
	benchCmd.Flags().IntVarP(&benchJobs, "jobs", "j", runtime.GOMAXPROCS(0), "concurrent query workers")
}

func buildNetwork(reg *metrics.Registry) (*roadmap.Network, error) {
	return roadmap.Generate(cfg.Generation, roadmap.WithLogger(logger), roadmap.WithMetrics(reg))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	network, err := buildNetwork(nil)
	if err != nil {
		return err
	}
	if asGeoJSON {
		return printJSON(network.GeoJSON())
	}
	return printJSON(network.Stats())
}

// parsePoint reads an "x,z" pair
func parsePoint(s string) (orb.Point, error) {
	xs, zs, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("point %q: expected x,z", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(zs), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	return orb.Point{x, z}, nil
}

func runRoute(cmd *cobra.Command, args []string) error {
	byPoint := fromPoint != "" || toPoint != ""
	if !byPoint && (startNode < 0 || endNode < 0) {
		return fmt.Errorf("provide --start and --end, or --from and --to")
	}

	network, err := buildNetwork(nil)
	if err != nil {
		return err
	}

	var route roadmap.Route
	if byPoint {
		from, err := parsePoint(fromPoint)
		if err != nil {
			return err
		}
		to, err := parsePoint(toPoint)
		if err != nil {
			return err
		}
		if route, err = network.RouteBetween(from, to); err != nil {
			return err
		}
	} else {
		res, err := network.Search(startNode, endNode)
		if err != nil {
			return err
		}
		route = roadmap.Route{Path: res.Path, Found: res.Found()}
		route.From.ID, route.To.ID = startNode, endNode
		if route.Found {
			route.Length = res.Cost
		}
	}

	if !route.Found {
		logger.Warn("❌ No path found", zap.Int("from", route.From.ID), zap.Int("to", route.To.ID))
	}
	if asGeoJSON {
		return printJSON(network.PathGeoJSON(route.Path))
	}
	return printJSON(route)
}

// benchReport summarises a bench run
type benchReport struct {
	Queries  int           `json:"queries"`
	Jobs     int           `json:"jobs"`
	Found    int64         `json:"found"`
	NoPath   int64         `json:"noPath"`
	Total    time.Duration `json:"totalNs"`
	Mean     time.Duration `json:"meanNs"`
	P50      time.Duration `json:"p50Ns"`
	P99      time.Duration `json:"p99Ns"`
	Settled  float64       `json:"meanSettled"`
	Parallel float64       `json:"queriesPerSecond"`
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchCount < 1 || benchJobs < 1 {
		return fmt.Errorf("--queries and --jobs must be positive")
	}

	network, err := buildNetwork(nil)
	if err != nil {
		return err
	}

	// Query pairs are drawn up front so the run is reproducible for a seed
	n := network.Graph().NumNodes()
	rng := rand.New(rand.NewSource(cfg.Generation.Seed + 1))
	pairs := make([][2]int, benchCount)
	for i := range pairs {
		pairs[i] = [2]int{rng.Intn(n), rng.Intn(n)}
	}

	durations := make([]time.Duration, benchCount)
	var found, noPath, settled atomic.Int64

	eg, ctx := errgroup.WithContext(cmd.Context())
	eg.SetLimit(benchJobs)
	started := time.Now()
	dispatched := 0
	for i, pair := range pairs {
		if ctx.Err() != nil {
			break
		}
		dispatched++
		eg.Go(func() error {
			t := time.Now()
			res, err := network.Search(pair[0], pair[1])
			if err != nil {
				return err
			}
			durations[i] = time.Since(t)
			settled.Add(int64(res.Settled))
			if res.Found() {
				found.Add(1)
			} else {
				noPath.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	total := time.Since(started)

	report := summarize(durations[:dispatched], total)
	report.Jobs = benchJobs
	report.Found = found.Load()
	report.NoPath = noPath.Load()
	if dispatched > 0 {
		report.Settled = float64(settled.Load()) / float64(dispatched)
	}
	return printJSON(report)
}

// summarize fills the timing fields of a report from the queries that ran
func summarize(durations []time.Duration, total time.Duration) benchReport {
	report := benchReport{Queries: len(durations), Total: total}
	if len(durations) == 0 {
		return report
	}

	sorted := slices.Clone(durations)
	slices.Sort(sorted)
	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	report.Mean = sum / time.Duration(len(sorted))
	report.P50 = sorted[len(sorted)/2]
	report.P99 = sorted[len(sorted)*99/100]
	if total > 0 {
		report.Parallel = float64(len(sorted)) / total.Seconds()
	}
	return report
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	srv := server.New(cfg.Server, logger, reg)

	if cfg.Server.BuildOnStart {
		network, err := buildNetwork(reg)
		if err != nil {
			return err
		}
		srv.SetNetwork(network)
	} else {
		logger.Info("ℹ️  No network built yet, call POST /build to create one")
	}

	logger.Info("Endpoints",
		zap.Strings("routes", []string{
			"POST /build   - Generate a road network",
			"GET  /lines   - Network edges as GeoJSON",
			"GET  /stats   - Network statistics",
			"POST /route   - Shortest path between nodes or points",
			"GET  /nearest - Nodes nearest to a point",
			"GET  /health  - Server status",
			"GET  /metrics - Prometheus metrics",
		}),
	)

	return srv.Run(ctx)
}
