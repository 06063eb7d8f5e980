// Package web provides the HTTP receiver for object-storage notifications.
//
// MinIO and LocalStack deliver bucket notifications as webhooks instead of
// Lambda invocations. The receiver runs the same import for each one and
// bounds how many run at once.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/event-recorder/internal/config"
	"github.com/JonMunkholm/event-recorder/internal/core"
	webmw "github.com/JonMunkholm/event-recorder/internal/web/middleware"
)

// Importer runs one file import.
type Importer interface {
	ImportObject(ctx context.Context, bucket, key string) (*core.ImportResult, error)
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for import notifications.
type Server struct {
	importer Importer
	db       Pinger
	limiter  *core.ImportLimiter
	cfg      config.ServerConfig
	timeout  time.Duration
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance.
func NewServer(importer Importer, db Pinger, limiter *core.ImportLimiter, cfg *config.Config) *Server {
	s := &Server{
		importer: importer,
		db:       db,
		limiter:  limiter,
		cfg:      cfg.Server,
		timeout:  cfg.Import.Timeout,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(webmw.TokenAuth(s.cfg.AuthTokens))
		r.Post("/events/s3", s.handleS3Event)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.cfg.Addr())
	return s.server.ListenAndServe()
}

// Shutdown stops accepting notifications and waits for in-flight imports.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	if status := s.limiter.Status(); status.Active > 0 {
		slog.Info("waiting for imports to complete", "active", status.Active)
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
