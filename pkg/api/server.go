package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/yourusername/arxengine/pkg/engine"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host             string        // Host to bind to (default "localhost")
	Port             int           // Port to listen on (default 8080)
	ReadTimeout      time.Duration // Read timeout (default 30s)
	WriteTimeout     time.Duration // Write timeout (default 60s)
	IdleTimeout      time.Duration // Idle timeout (default 60s)
	MaxRulesWorkers  int           // Max concurrent rules requests (default 100)
	MaxSearchWorkers int           // Max concurrent searches (default 4)
}

// DefaultConfig returns a ServerConfig with sensible defaults.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Host:             "localhost",
		Port:             8080,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     60 * time.Second,
		IdleTimeout:      60 * time.Second,
		MaxRulesWorkers:  100,
		MaxSearchWorkers: 4,
	}
}

// Server is the HTTP API server.
type Server struct {
	config   ServerConfig
	engine   *engine.Engine
	handlers *Handlers
	server   *http.Server
	pool     *WorkerPool
	version  string
	log      zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(e *engine.Engine, config ServerConfig, version string, logger zerolog.Logger) *Server {
	pool := NewWorkerPool(PoolConfig{
		MaxRulesWorkers:  config.MaxRulesWorkers,
		MaxSearchWorkers: config.MaxSearchWorkers,
	})

	return &Server{
		config:   config,
		engine:   e,
		handlers: NewHandlersWithPool(e, version, pool, logger),
		pool:     pool,
		version:  version,
		log:      logger.With().Str("component", "server").Logger(),
	}
}

// Pool returns the worker pool for monitoring.
func (s *Server) Pool() *WorkerPool {
	return s.pool
}

// Handlers returns the request handlers.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// accessLog logs every request through the server logger.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	// Binary protocol
	r.Get("/new", s.handlers.NewGame)
	r.Post("/moves", s.handlers.Moves)
	r.Post("/play", s.handlers.Play)
	r.Post("/engine-move", s.handlers.EngineMove)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handlers.Health)
		r.Get("/stats", s.handlers.Stats)
		r.Delete("/cache", s.handlers.ClearCache)
		r.Get("/analyze", s.handlers.Analyze)
		r.Get("/selfplay/stream", s.handlers.SelfPlaySSE)
		r.Get("/ws", s.handlers.WebSocket)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.log.Info().Str("version", s.version).Str("addr", addr).
		Bool("gpu_simulation", s.engine.GPUSimulation()).
		Msg("starting Arx API server")
	s.log.Info().Strs("endpoints", []string{
		"GET  /new",
		"POST /moves",
		"POST /play",
		"POST /engine-move",
		"GET  /api/health",
		"GET  /api/stats",
		"DEL  /api/cache",
		"GET  /api/analyze",
		"GET  /api/selfplay/stream",
		"WS   /api/ws",
	}).Msg("routes")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// ListenAndServeWithGracefulShutdown starts the server and handles shutdown signals.
func (s *Server) ListenAndServeWithGracefulShutdown() error {
	errChan := make(chan error, 1)

	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		s.log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info().Msg("server stopped gracefully")
	return nil
}
