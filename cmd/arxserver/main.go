// Command arxserver runs the Arx engine API server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/arxengine/internal/config"
	"github.com/yourusername/arxengine/pkg/api"
)

const version = "0.1.0"

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file")
	host := flag.String("host", "", "Host to bind to (use 0.0.0.0 for all interfaces)")
	port := flag.Int("port", 0, "Port to listen on")
	difficulty := flag.String("difficulty", "", "Search preset: beginner, easy, medium, hard or expert")
	backend := flag.String("gpu", "", "Compute backend: auto, software or none")
	logLevel := flag.String("log-level", "", "Log level")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Arx API Server v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *backend != "" {
		cfg.GPU.Backend = *backend
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *difficulty != "" {
		cfg.Engine.Difficulty = *difficulty
		if err := cfg.ApplyDifficulty(); err != nil {
			log.Fatal().Err(err).Msg("invalid difficulty")
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := cfg.Log.NewLogger()
	logger.Info().Str("version", version).Msg("Arx API server")

	eng, err := cfg.NewEngine(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create engine")
	}
	search := eng.SearchConfig()
	logger.Info().
		Int("max_depth", search.MaxDepth).
		Int("simulations_per_move", search.SimulationsPerMove).
		Bool("gpu_simulation", eng.GPUSimulation()).
		Msg("engine ready")

	server := api.NewServer(eng, api.ServerConfig{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
		MaxRulesWorkers:  cfg.Server.MaxRulesWorkers,
		MaxSearchWorkers: cfg.Server.MaxSearchWorkers,
	}, version, logger)

	if err := server.ListenAndServeWithGracefulShutdown(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
