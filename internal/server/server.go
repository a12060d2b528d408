// Package server exposes coarse dropout over HTTP.
//
// Routes:
//
//	GET  /healthz     liveness and build information
//	POST /v1/holes    sample holes for an image size (JSON in, JSON out)
//	POST /v1/apply    occlude an uploaded image, mask and keypoints (multipart)
//	GET  /metrics     Prometheus metrics, when a handler is configured
//
// Both /v1 routes accept an optional "config" object with the same keys as
// a config file. Without one, the server's default transform is used.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/cutout/pkg/config"
	"github.com/matzehuels/cutout/pkg/pipeline"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	requestTimeout    = 60 * time.Second
)

// Options configure a [Server].
type Options struct {
	// Defaults supplies the transform and seed used when a request omits
	// them. Nil means built-in defaults.
	Defaults *config.File

	// MaxUploadMB bounds multipart uploads. Zero means
	// config.DefaultMaxUploadMB.
	MaxUploadMB int

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	Logger *log.Logger
}

// Server routes HTTP requests to a [pipeline.Runner].
type Server struct {
	runner    *pipeline.Runner
	defaults  *config.File
	maxUpload int64
	logger    *log.Logger
	router    chi.Router
}

// New builds the router.
func New(runner *pipeline.Runner, opts Options) (*Server, error) {
	defaults := opts.Defaults
	if defaults == nil {
		defaults = config.Default()
	}
	// Fail at startup rather than on the first request.
	if _, err := defaults.Transform(); err != nil {
		return nil, err
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = config.DefaultMaxUploadMB
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &Server{
		runner:    runner,
		defaults:  defaults,
		maxUpload: int64(opts.MaxUploadMB) << 20,
		logger:    opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/holes", s.handleHoles)
		r.Post("/apply", s.handleApply)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
	})

	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}
