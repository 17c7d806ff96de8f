// Package server provides the HTTP server and routing for ShareSathi.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/aristath/sharesathi/internal/config"
	"github.com/aristath/sharesathi/internal/di"
	calculatorhandlers "github.com/aristath/sharesathi/internal/modules/calculator/handlers"
	chathandlers "github.com/aristath/sharesathi/internal/modules/chat/handlers"
	insightshandlers "github.com/aristath/sharesathi/internal/modules/insights/handlers"
	markethandlers "github.com/aristath/sharesathi/internal/modules/market/handlers"
	newshandlers "github.com/aristath/sharesathi/internal/modules/news/handlers"
	settingshandlers "github.com/aristath/sharesathi/internal/modules/settings/handlers"
	watchlisthandlers "github.com/aristath/sharesathi/internal/modules/watchlist/handlers"
)

// Version is reported by /health
const Version = "1.0.0"

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	cfg       *config.Config
	container *di.Container
	stream    *StreamHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	// WriteTimeout stays zero: the stream holds connections open and
	// regular routes are bounded by the Timeout middleware.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler exposes the router, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	c := s.container

	s.router.Get("/health", s.handleHealth)

	s.stream = NewStreamHandler(c.EventBus, c.MarketService, s.log)

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived, so outside the timeout group
		r.Get("/stream", s.stream.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			databases := map[string]StatsProvider{
				"config":      c.ConfigDB,
				"client_data": c.ClientDataDB,
			}
			var backups BackupManager
			if c.BackupService != nil {
				backups = c.BackupService
			}
			var jobs JobRunner
			if c.Scheduler != nil {
				jobs = c.Scheduler
			}
			NewSystemHandlers(s.log, c.StartedAt, databases, jobs, c.MarketHours, backups, s.stream).RegisterRoutes(r)
			NewLogHandlers(afero.NewOsFs(), s.cfg.LogFile, s.log).RegisterRoutes(r)

			watchlisthandlers.NewHandler(c.WatchlistStore, s.log).RegisterRoutes(r)
			settingshandlers.NewHandler(c.SettingsService, s.log).RegisterRoutes(r)
			calculatorhandlers.NewHandler(c.CalculatorService, s.log).RegisterRoutes(r)
			markethandlers.NewHandler(c.MarketService, s.log).RegisterRoutes(r)
			newshandlers.NewHandler(c.NewsService, s.log).RegisterRoutes(r)
			chathandlers.NewHandler(c.ChatService, s.log).RegisterRoutes(r)
			insightshandlers.NewHandler(c.InsightsService, s.log).RegisterRoutes(r)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.log, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": Version,
		"service": "sharesathi",
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, log zerolog.Logger, status int, message string) {
	writeJSON(w, log, status, map[string]string{"error": message})
}
