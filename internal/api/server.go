// Package api provides the HTTP API server and handlers for the plantcare application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/plantcare/internal/media/photos"
	"github.com/listenupapp/plantcare/internal/ratelimit"
	"github.com/listenupapp/plantcare/internal/sse"
	"github.com/listenupapp/plantcare/internal/validation"
)

// Options configures the HTTP server.
type Options struct {
	Version     string
	CORSOrigins []string

	// SignInLimiter throttles the sign-in endpoints per client IP. Nil disables it.
	SignInLimiter *ratelimit.KeyedRateLimiter

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// MaxPhotoBytes bounds decoded photo uploads; request bodies carrying a
	// photo may be a third larger once base64 encoded.
	MaxPhotoBytes int
}

// defaultMaxPhotoBytes matches the photo service default.
const defaultMaxPhotoBytes = 5 << 20

// Server holds dependencies for HTTP handlers.
type Server struct {
	services  *Services
	opts      Options
	validator *validation.Validator
	router    *chi.Mux
	api       huma.API
	logger    *slog.Logger
	now       func() time.Time
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.MaxPhotoBytes <= 0 {
		opts.MaxPhotoBytes = defaultMaxPhotoBytes
	}

	s := &Server{
		services:  services,
		opts:      opts,
		validator: validation.New(),
		router:    chi.NewRouter(),
		logger:    logger,
		now:       time.Now,
	}

	s.setupMiddleware()

	cfg := huma.DefaultConfig("PlantCare API", opts.Version)
	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	cfg.Transformers = append(cfg.Transformers, EnvelopeTransformer)

	RegisterErrorHandler()
	s.api = humachi.New(s.router, cfg)

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.opts.SignInLimiter != nil {
		s.opts.SignInLimiter.Stop()
	}
}

// photoBodyLimit is the request size limit for bodies that may embed a base64 photo.
func (s *Server) photoBodyLimit() int64 {
	return int64(s.opts.MaxPhotoBytes)*4/3 + 64<<10
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	if len(s.opts.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	s.router.Use(s.authMiddleware)
	if s.opts.SignInLimiter != nil {
		s.router.Use(s.signInRateLimit)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerPlantRoutes()
	s.registerCareRoutes()
	s.registerCalendarRoutes()
	s.registerSearchRoutes()
	s.registerUploadRoutes()

	// Raw handlers: binary and streaming responses bypass the envelope.
	s.router.Get(photos.ServePrefix+"*", s.handleGetPhoto)
	if s.services.SSE != nil {
		s.router.Method(http.MethodGet, "/api/v1/events", sse.NewHandler(s.services.SSE, s.logger, s.authenticateStream))
	}
	if s.opts.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}
}

// requestLogger logs one line per request with the chi request ID.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
