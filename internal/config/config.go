package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"roadnet-planner/internal/roadmap"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New()

// Config holds all configuration for the road network planner.
type Config struct {
	Generation roadmap.Params `yaml:"generation"`
	Server     ServerConfig   `yaml:"server"`
	Logging    LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
	BuildOnStart    bool          `yaml:"build_on_start"`             // Generate a network before accepting requests
	MaxNodes        int           `yaml:"max_nodes" validate:"min=1"` // Upper bound for POST /build
}

// LoggingConfig selects the zap logger flavour.
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default returns Config with sensible defaults.
func Default() Config {
	return Config{
		Generation: roadmap.DefaultParams(),
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			BuildOnStart:    true,
			MaxNodes:        200000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file on top of the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section
func (c Config) Validate() error {
	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("%w: generation: %w", ErrInvalidConfig, err)
	}
	if err := validate.Struct(c.Server); err != nil {
		return fmt.Errorf("%w: server: %w", ErrInvalidConfig, err)
	}
	if err := validate.Struct(c.Logging); err != nil {
		return fmt.Errorf("%w: logging: %w", ErrInvalidConfig, err)
	}
	if c.Generation.NodeCount > c.Server.MaxNodes {
		return fmt.Errorf("%w: generation.node_count %d exceeds server.max_nodes %d",
			ErrInvalidConfig, c.Generation.NodeCount, c.Server.MaxNodes)
	}
	return nil
}
