package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadnet-planner/internal/roadmap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roadnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10000, cfg.Generation.NodeCount)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
generation:
  node_count: 2500
  map_size: 50
  min_degree: 1
  max_degree: 4
  cell_size: 6.5
  prevent_intersections: false
  seed: 99
server:
  addr: "127.0.0.1:9090"
  read_timeout: 3s
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2500, cfg.Generation.NodeCount)
	assert.Equal(t, 6.5, cfg.Generation.CellSize)
	assert.False(t, cfg.Generation.PreventIntersections)
	assert.Equal(t, int64(99), cfg.Generation.Seed)
	// Untouched keys keep their defaults.
	assert.Equal(t, roadmap.DefaultParams().MaxAttemptsPerNode, cfg.Generation.MaxAttemptsPerNode)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RejectsMinAboveMax(t *testing.T) {
	path := writeConfig(t, `
generation:
  min_degree: 6
  max_degree: 3
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.True(t, errors.Is(err, roadmap.ErrInvalidParams))
	assert.Contains(t, err.Error(), "MaxDegree")
}

func TestLoad_RejectsBadLoggingLevel(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: loud
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoad_RejectsOversizedNetwork(t *testing.T) {
	path := writeConfig(t, `
generation:
  node_count: 5000
server:
  max_nodes: 1000
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_nodes")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "generation: [unterminated")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}
