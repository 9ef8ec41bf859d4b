package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bizassist/bizassist/internal/document"
	"github.com/bizassist/bizassist/internal/logging"
	"github.com/bizassist/bizassist/internal/render"
	"github.com/bizassist/bizassist/internal/session"
)

// defaultMaxUpload caps multipart document uploads.
const defaultMaxUpload = 32 << 20

// Config holds server configuration.
type Config struct {
	Port           int
	AllowAll       bool  // allow all CORS origins (dev mode)
	MaxUploadBytes int64 // 0 means 32 MiB
}

// Server exposes chat sessions over HTTP and a websocket.
type Server struct {
	cfg        Config
	orch       *session.Orchestrator
	sessions   *session.Manager
	loader     *document.Loader
	renderer   *render.Renderer
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server around an orchestrator and its session registry.
// A nil loader uses document.NewLoader.
func New(cfg Config, orch *session.Orchestrator, sessions *session.Manager, loader *document.Loader, logger *slog.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if loader == nil {
		loader = document.NewLoader()
	}
	s := &Server{
		cfg:      cfg,
		orch:     orch,
		sessions: sessions,
		loader:   loader,
		renderer: render.New(),
		logger:   logging.OrDiscard(logger),
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The websocket stays outside the request timeout.
	r.Get("/ws/chat", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(120 * time.Second))
		s.registerRoutes(r)
	})

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Sessions returns the session registry.
func (s *Server) Sessions() *session.Manager { return s.sessions }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("bizassist server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
