// Package server exposes a Converter over HTTP.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/alnah/go-office2pdf"
)

// Default server settings.
const (
	DefaultMaxUploadBytes = 50 << 20
	DefaultRequestTimeout = 180 * time.Second
	DefaultRetryAfter     = 5 * time.Second

	// maxMultipartMemory is how much of a multipart upload is kept in memory
	// before spilling to a temporary file.
	maxMultipartMemory = 8 << 20
)

// Converter is the conversion service the handlers call.
type Converter interface {
	Convert(ctx context.Context, in office2pdf.Input) (*office2pdf.Result, error)
	Stats() office2pdf.Stats
}

// Config holds HTTP settings. Zero values select defaults.
type Config struct {
	MaxUploadBytes    int64
	RequestTimeout    time.Duration // Per-request budget; caps ?timeout=
	RetryAfter        time.Duration // Advertised on 503 Overloaded
	RequestsPerSecond float64       // 0 disables rate limiting
	Burst             int
	Metrics           http.Handler // Served on /metrics when non-nil
	Logger            *log.Logger
}

// Server routes HTTP requests to a Converter.
type Server struct {
	conv    Converter
	cfg     Config
	logger  *log.Logger
	limiter *rate.Limiter
	router  chi.Router
}

// New creates a Server.
func New(conv Converter, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultRetryAfter
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{conv: conv, cfg: cfg, logger: logger}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = max(1, int(cfg.RequestsPerSecond))
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/convert", s.handleConvert)
		r.Get("/formats", s.handleFormats)
	})

	s.router = r
}
