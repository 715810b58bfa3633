// Package server serves the rules lookup JSON API, the web page and,
// optionally, the MCP streamable HTTP endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Aman-CERP/ruleseek/internal/search"
	"github.com/Aman-CERP/ruleseek/internal/session"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Config holds the HTTP settings.
type Config struct {
	Addr         string
	StaticDir    string
	CORSOrigin   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP API server.
type Server struct {
	cfg     Config
	engine  *search.Engine
	tracker *session.Tracker
	logger  *slog.Logger

	mcpPath    string
	mcpHandler http.Handler

	handler    http.Handler
	httpServer *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithTracker sets the visitor tracker. Without one an in-memory tracker
// is used.
func WithTracker(t *session.Tracker) Option {
	return func(s *Server) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithMCP mounts an MCP handler at path.
func WithMCP(path string, h http.Handler) Option {
	return func(s *Server) {
		s.mcpPath = path
		s.mcpHandler = h
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server over engine.
func New(cfg Config, engine *search.Engine, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: search engine is required", search.ErrNilDependency)
	}
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}

	s := &Server{
		cfg:    cfg,
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracker == nil {
		s.tracker = session.NewTracker(session.WithLogger(s.logger))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/users/stats", s.handleUserStats)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /api/rules", s.handleRules)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("/api/", s.handleNotFound)
	if s.mcpHandler != nil && s.mcpPath != "" {
		mux.Handle(s.mcpPath, s.mcpHandler)
	}
	mux.Handle("/", staticHandler(cfg.StaticDir, s.logger))

	s.handler = s.recoverer(s.logRequests(s.cors(s.trackSessions(mux))))
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s, nil
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Tracker returns the visitor tracker.
func (s *Server) Tracker() *session.Tracker {
	return s.tracker
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("HTTP server started",
		slog.String("addr", ln.Addr().String()),
		slog.Int("rules", s.engine.Store().Len()),
		slog.Bool("mcp", s.mcpHandler != nil))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
