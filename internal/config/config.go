// Package config loads engine and server settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/arxengine/internal/gpu"
	"github.com/yourusername/arxengine/pkg/engine"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration file
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	GPU    GPUConfig    `yaml:"gpu"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// EngineConfig holds search settings
type EngineConfig struct {
	Difficulty  string              `yaml:"difficulty"` // Preset depth and rollout count, replacing those in Search
	Search      engine.SearchConfig `yaml:"search"`
	Values      engine.PieceValues  `yaml:"values"`
	Workers     int                 `yaml:"workers"` // 0 = GOMAXPROCS
	Seed        int64               `yaml:"seed"`    // 0 = random
	CacheShards int                 `yaml:"cache_shards"`

	AcceleratedMoveGen bool `yaml:"accelerated_move_gen"`
}

// GPUConfig selects the compute backend
type GPUConfig struct {
	Backend string `yaml:"backend"` // auto, software or none; ARX_GPU_BACKEND overrides
	Workers int    `yaml:"workers"` // Concurrent workgroups (0 = GOMAXPROCS)
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	MaxRulesWorkers  int           `yaml:"max_rules_workers"`  // Concurrent move generation and play requests
	MaxSearchWorkers int           `yaml:"max_search_workers"` // Concurrent searches
}

// LogConfig controls logging output
type LogConfig struct {
	Level   string `yaml:"level"`   // zerolog level name
	Console bool   `yaml:"console"` // Human-readable output instead of JSON
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Search: engine.DefaultSearchConfig(),
			Values: engine.DefaultPieceValues(),
		},
		GPU: GPUConfig{Backend: string(gpu.BackendAuto)},
		Server: ServerConfig{
			Host:             "localhost",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      60 * time.Second,
			MaxRulesWorkers:  100,
			MaxSearchWorkers: 4,
		},
		Log: LogConfig{Level: "info", Console: true},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// The ARX_GPU_BACKEND environment variable overrides gpu.backend.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if v := os.Getenv(gpu.EnvBackend); v != "" {
		cfg.GPU.Backend = v
	}

	if err := cfg.ApplyDifficulty(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyDifficulty replaces the search depth and rollout count with the
// named preset, if any
func (c *Config) ApplyDifficulty() error {
	if c.Engine.Difficulty == "" {
		return nil
	}
	d, err := engine.ParseDifficulty(c.Engine.Difficulty)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	preset := d.SearchConfig()
	c.Engine.Search.MaxDepth = preset.MaxDepth
	c.Engine.Search.SimulationsPerMove = preset.SimulationsPerMove
	return nil
}

// Validate reports the first out-of-range setting
func (c Config) Validate() error {
	s := c.Engine.Search
	switch {
	case s.MaxDepth < 1:
		return fmt.Errorf("%w: engine.search.max_depth must be at least 1", ErrInvalid)
	case s.SimulationsPerMove < 1:
		return fmt.Errorf("%w: engine.search.simulations_per_move must be at least 1", ErrInvalid)
	case s.GPUBatchSize < 1 || s.GPUBatchSize > gpu.MaxBatch:
		return fmt.Errorf("%w: engine.search.gpu_batch_size must be in [1, %d]", ErrInvalid, gpu.MaxBatch)
	case c.Engine.Workers < 0:
		return fmt.Errorf("%w: engine.workers must not be negative", ErrInvalid)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	return nil
}

// EngineOptions converts the engine section for engine.NewEngine
func (c Config) EngineOptions(ctx *gpu.Context, logger *zerolog.Logger) engine.EngineOptions {
	return engine.EngineOptions{
		Search:             c.Engine.Search,
		Values:             c.Engine.Values,
		Workers:            c.Engine.Workers,
		Seed:               c.Engine.Seed,
		CacheShards:        c.Engine.CacheShards,
		GPU:                ctx,
		AcceleratedMoveGen: c.Engine.AcceleratedMoveGen,
		Logger:             logger,
	}
}

// GPUOptions converts the gpu section for gpu.NewContext
func (c Config) GPUOptions(logger *zerolog.Logger) gpu.Options {
	return gpu.Options{
		Backend: c.GPU.Backend,
		Workers: c.GPU.Workers,
		Logger:  logger,
	}
}

// NewLogger builds the process logger from the log section
func (c LogConfig) NewLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if c.Console {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// NewEngine creates the compute context and the engine. Accelerated move
// generation requires a compute adapter; without one, construction fails.
// When only batch simulation asked for the device, a missing adapter is
// logged and rollouts run on the CPU.
func (c Config) NewEngine(logger zerolog.Logger) (*engine.Engine, error) {
	var ctx *gpu.Context
	if c.Engine.Search.UseGPUSimulation || c.Engine.AcceleratedMoveGen {
		var err error
		ctx, err = gpu.NewContext(c.GPUOptions(&logger))
		if err != nil {
			if c.Engine.AcceleratedMoveGen {
				return nil, fmt.Errorf("failed to create engine: accelerated move generation: %w", err)
			}
			logger.Warn().Err(err).Msg("no compute device, continuing on CPU")
		}
	}

	eng, err := engine.NewEngine(c.EngineOptions(ctx, &logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return eng, nil
}
