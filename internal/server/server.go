package server

import (
	"context"
	"fmt"
	"image"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"lookout/internal/alerting"
	"lookout/internal/auth"
	"lookout/internal/config"
	"lookout/internal/pipeline"
	"lookout/internal/watchlist"
	"lookout/internal/ws"
)

// EnrollFunc turns a reference image into an identity embedding. It fails
// with detection.ErrNoFaces or detection.ErrMultipleFaces when the image is
// not a usable single-person reference.
type EnrollFunc func(ctx context.Context, img image.Image) ([]float32, error)

// Deps wires the admin API to the rest of the system.
type Deps struct {
	Config   *config.Config
	Store    *watchlist.Store
	Logs     *alerting.LogStore
	Auth     *auth.Authenticator
	Hub      *ws.Hub
	Manager  *pipeline.Manager
	Provider pipeline.FrameProvider
	Enroll   EnrollFunc
}

// Server is the admin HTTP API: watchlist management, session control,
// detection logs, and the live event websocket.
type Server struct {
	deps       Deps
	router     *chi.Mux
	httpServer *http.Server
}

// New creates the server and mounts all routes.
func New(deps Deps) *Server {
	r := chi.NewRouter()

	s := &Server{
		deps:   deps,
		router: r,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         deps.Config.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	// Health check and login stay reachable without a token.
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/api/v1/auth/login", s.handleLogin)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireToken)

		r.Get("/watchlist", s.handleWatchlistList)
		r.Post("/watchlist", s.handleWatchlistEnroll)
		r.Delete("/watchlist/{id}", s.handleWatchlistDelete)

		r.Get("/logs", s.handleLogsList)
		r.Delete("/logs", s.handleLogsClear)

		r.Post("/session/start", s.handleSessionStart)
		r.Post("/session/stop", s.handleSessionStop)
		r.Get("/session/status", s.handleSessionStatus)

		r.Get("/config", s.handleConfigGet)
	})

	s.router.Get("/ws", ws.NewHandler(s.deps.Hub).ServeHTTP)
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start() error {
	log.Printf("[Server] Listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("[Server] Shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router exposes the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
