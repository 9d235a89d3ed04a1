// Package server is the HTTP+WebSocket broadcast surface: REST reads of the
// current projection and history, the live WebSocket feed, and the embedded
// dashboard.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/gosuda/officewatch/internal/api/ws"
	"github.com/gosuda/officewatch/internal/bus"
	"github.com/gosuda/officewatch/internal/config"
	"github.com/gosuda/officewatch/internal/server/middleware"
)

// Server binds the HTTP listener and owns the WebSocket hub. Multiple
// dashboard instances may race for the default port, so Start walks upward
// from the configured port before giving up.
type Server struct {
	cfg    *config.Config
	router chi.Router
	bus    *bus.Bus
	hub    *ws.Hub
	logger zerolog.Logger

	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
	port     int
	unsubs   []func()
	stopped  bool
}

// New creates a Server with all routes wired. webAssets may be nil; when
// provided, the embedded dashboard is served on all unmatched routes.
func New(cfg *config.Config, b *bus.Bus, opener EditorOpener, webAssets fs.FS, logger zerolog.Logger) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(middleware.PathGuard())
	router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}).Handler)

	hub := ws.NewHub(b, logger)

	s := &Server{
		cfg:    cfg,
		router: router,
		bus:    b,
		hub:    hub,
		logger: logger,
		httpServer: &http.Server{
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// REST reads plus the out-of-band open-in-editor hook.
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(50, 100))
		registerAPIRoutes(r, b, opener)
	})

	// Live viewer feed.
	router.Get("/ws", hub.Serve)

	// Health check.
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Embedded dashboard on all unmatched routes; must be registered last so
	// API and WS routes take priority.
	if webAssets != nil {
		router.NotFound(dashboardFileServer(webAssets).ServeHTTP)
	}

	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start binds the listener, retrying on the next higher port when the address
// is in use, up to the configured attempt limit. On success it subscribes
// the hub to the bus and serves in a background goroutine.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("server.Start: already started")
	}

	var (
		listener net.Listener
		port     int
	)
	for i := 0; i < s.cfg.Server.PortAttempts; i++ {
		candidate := s.cfg.Server.Port + i
		addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, candidate)

		ln, err := net.Listen("tcp", addr)
		if err != nil {
			if errors.Is(err, syscall.EADDRINUSE) {
				s.logger.Warn().Str("addr", addr).Msg("port in use, trying next")
				continue
			}
			return fmt.Errorf("server.Start: listen %s: %w", addr, err)
		}
		listener = ln
		port = candidate
		break
	}
	if listener == nil {
		return fmt.Errorf("server.Start: no free port in %d attempts from %d",
			s.cfg.Server.PortAttempts, s.cfg.Server.Port)
	}

	s.listener = listener
	s.port = port

	s.unsubs = []func(){
		s.bus.OnStateChange(s.hub.BroadcastState),
		s.bus.OnEvent(s.hub.BroadcastEvent),
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("http serve")
		}
	}()

	s.logger.Info().Int("port", port).Msg("broadcast server listening")
	return nil
}

// Port returns the bound port, 0 before Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Stop unsubscribes from the bus, closes all sockets, and shuts the listener
// down. Idempotent.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped || s.listener == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	s.hub.CloseAll()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Stop: %w", err)
	}
	return nil
}
