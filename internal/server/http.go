package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/windfall/fluentmind/internal/config"
	httphandler "github.com/windfall/fluentmind/internal/handler/http"
	"github.com/windfall/fluentmind/internal/metrics"
	"github.com/windfall/fluentmind/internal/middleware"
	"github.com/windfall/fluentmind/pkg/response"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Health *httphandler.HealthHandler
	Speech *httphandler.SpeechHandler
	User   *httphandler.UserHandler
}

// HTTPServer represents the HTTP server.
type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

// NewRouter builds the full route tree with global middleware applied.
func NewRouter(
	cfg *config.Config,
	log zerolog.Logger,
	h Handlers,
	identity middleware.IdentityResolver,
	limiter middleware.Limiter,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Security(cfg.IsProduction()))
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w)
	})

	// Service info and health endpoints (public)
	r.Get("/", h.Health.Root)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Get("/live", h.Health.Live)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	exposeCause := !cfg.IsProduction()

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if limiter != nil {
			r.Use(middleware.RateLimit(limiter, log))
		}

		// Speech endpoints; practice resolves identity itself after the
		// upload has been validated.
		r.Post("/speech/transcribe", h.Speech.Transcribe)
		r.Post("/speech/feedback", h.Speech.Feedback)
		r.Post("/speech/practice", h.Speech.Practice)

		// Protected endpoints (require a verified identity)
		r.Route("/users/me", func(r chi.Router) {
			r.Use(middleware.RequireUser(identity, log, exposeCause))

			r.Get("/", h.User.Me)
			r.Get("/sessions", h.User.Sessions)
			r.Get("/stats", h.User.Stats)
		})
	})

	return r
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(cfg *config.Config, log zerolog.Logger, handler http.Handler) *HTTPServer {
	server := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &HTTPServer{
		server: server,
		log:    log,
	}
}

// Start starts the HTTP server.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
