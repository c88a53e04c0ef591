package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"roadnet-planner/internal/config"
)

var (
	configPath string
	verbose    bool

	// Generation overrides, applied on top of the config file
	nodeCount      int
	mapSize        float64
	cellSize       float64
	seed           int64
	allowCrossings bool

	cfg    config.Config
	logger *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "roadnet",
		Short: "Generate and route over procedural 2-D road networks",
		Long: `roadnet scatters nodes over a square map, links them with a spanning
tree plus extra non-crossing roads, and answers shortest-path queries.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.IntVar(&nodeCount, "nodes", 0, "number of nodes to place")
	flags.Float64Var(&mapSize, "map-size", 0, "half-extent of the square map")
	flags.Float64Var(&cellSize, "cell-size", 0, "grid cell width and connection radius")
	flags.Int64Var(&seed, "seed", 0, "random seed")
	flags.BoolVar(&allowCrossings, "allow-crossings", false, "skip the crossing check when adding extra roads")

	rootCmd.AddCommand(generateCmd, routeCmd, benchCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config, applies flag overrides and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("nodes") {
		loaded.Generation.NodeCount = nodeCount
	}
	if flags.Changed("map-size") {
		loaded.Generation.MapSize = mapSize
	}
	if flags.Changed("cell-size") {
		loaded.Generation.CellSize = cellSize
	}
	if flags.Changed("seed") {
		loaded.Generation.Seed = seed
	}
	if allowCrossings {
		loaded.Generation.PreventIntersections = false
	}
	if verbose {
		loaded.Logging.Level = "debug"
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	logger, err = newLogger(cfg.Logging)
	return err
}

func newLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}

	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// Keep stdout free for command output
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
