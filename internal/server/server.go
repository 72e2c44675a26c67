package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pks0715/seggy/internal/model"
	"github.com/pks0715/seggy/internal/pipeline"
)

// Default server settings.
const (
	// DefaultPort is the listen port.
	DefaultPort = 10000

	// DefaultRequestTimeout bounds a whole analysis request.
	DefaultRequestTimeout = 600 * time.Second

	// DefaultMaxUploadBytes caps the request body.
	DefaultMaxUploadBytes int64 = 100 << 20

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// maxMemory is the part of a multipart form kept in memory before
	// spilling to temporary files.
	maxMemory = 32 << 20
)

// Analyzer runs one analysis. *pipeline.Runner implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.AnalyzeRequest) (*model.Analysis, error)
}

// HistoryStore persists run metadata. *database.HistoryDB implements it.
type HistoryStore interface {
	SaveRun(ctx context.Context, a *model.Analysis) error
}

// Options configures a Server.
type Options struct {
	// Host is the listen host. Empty listens on all interfaces.
	Host string

	// Port is the listen port.
	Port int

	// RequestTimeout bounds each request.
	RequestTimeout time.Duration

	// MaxUploadBytes caps the request body.
	MaxUploadBytes int64
}

// withDefaults returns a copy of o with zero fields filled in.
func (o Options) withDefaults() Options {
	if o.Port <= 0 {
		o.Port = DefaultPort
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return o
}

// Addr returns the listen address.
func (o Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Server is the HTTP front end of the pipeline.
type Server struct {
	opts     Options
	router   *chi.Mux
	analyzer Analyzer
	history  HistoryStore
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithOptions sets listen and request limits.
func WithOptions(opts Options) Option {
	return func(s *Server) {
		s.opts = opts.withDefaults()
	}
}

// WithHistory enables saving run metadata after each successful analysis.
func WithHistory(store HistoryStore) Option {
	return func(s *Server) {
		s.history = store
	}
}

// New creates a Server. A nil analyzer is allowed: analysis routes then
// answer 503 while /health keeps working.
func New(analyzer Analyzer, opts ...Option) *Server {
	s := &Server{
		opts:     Options{}.withDefaults(),
		router:   chi.NewRouter(),
		analyzer: analyzer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.opts.RequestTimeout))

	s.router.Get("/health", s.handleHealth)
	s.router.Post("/analyze", s.handleAnalyze)
	s.router.Post("/analyze/pdf", s.handleAnalyzePDF)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.opts.RequestTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
