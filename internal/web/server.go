package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/cjeanneret/boothcam/internal/debug"
)

const shutdownTimeout = 5 * time.Second

// Options configure the HTTP server.
type Options struct {
	Addr      string
	RateLimit float64 // requests per second on camera endpoints, 0 disables limiting
	RateBurst int
}

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
	limiter  *rate.Limiter
}

// NewServer creates a server configured for the given address and handlers.
func NewServer(opts Options, handlers *Handlers) *Server {
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return &Server{
		addr:     opts.Addr,
		handlers: handlers,
		limiter:  limiter,
	}
}

// Router returns an http.Handler with all routes registered.
func (s *Server) Router() http.Handler {
	h := s.handlers
	r := chi.NewRouter()
	r.Use(metricsMiddleware, requestIDMiddleware, panicRecoveryMiddleware, corsMiddleware)
	r.NotFound(h.HandleNotFound)

	r.Get("/api/health", h.HandleHealth)
	r.Get("/api/status", h.HandleStatus)
	r.Get("/api/status/stream", h.HandleStatusStream)
	r.Handle("/metrics", promhttp.Handler())

	// Endpoints that touch the camera or its files are rate limited.
	r.Group(func(r chi.Router) {
		r.Use(rateLimitMiddleware(s.limiter))
		r.Post("/api/capture", h.HandleCapture)
		r.Get("/api/camera/config", h.HandleCameraConfig)
		r.Get("/api/photo/{filename}", h.HandlePhoto)
		r.Delete("/api/photo/{filename}", h.HandleDeletePhoto)
	})

	return r
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		debug.Info("web server shutting down")
		if s.handlers.Broadcaster != nil {
			s.handlers.Broadcaster.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
