// Package server exposes the render pipeline over HTTP, with URLs shaped
// like a PlantUML server's:
//
//	GET  /{format}/{token}   render a token (format: png, svg, txt, utxt)
//	POST /{format}           render the request body
//	POST /encode             body → {"token": "..."}
//	GET  /decode/{token}     token → source
//	GET  /healthz            liveness and build info
//	GET  /stats              event counters; 404 unless Options.Stats is set
//
// Render routes accept ?config=<template> and are rate limited, since every
// cache miss spawns a backend.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/matzehuels/umlstream/pkg/observability"
	"github.com/matzehuels/umlstream/pkg/pipeline"
)

// Options configures a Server.
type Options struct {
	// Rate is the sustained render rate per second; 0 disables limiting.
	Rate float64
	// Burst is the number of renders allowed at once.
	Burst int
	// CORSOrigins lists allowed origins; empty disables CORS headers.
	CORSOrigins []string
	Logger      *log.Logger
	// Stats is published at /stats. The caller registers it with
	// observability.Register so it receives events.
	Stats *observability.Stats
}

// Server serves diagrams rendered by a pipeline.Runner.
type Server struct {
	runner  *pipeline.Runner
	limiter *rate.Limiter
	logger  *log.Logger
	stats   *observability.Stats
	router  chi.Router
}

// New returns a Server rendering with runner.
func New(runner *pipeline.Runner, opts Options) *Server {
	s := &Server{
		runner: runner,
		logger: opts.Logger,
		stats:  opts.Stats,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if opts.Rate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.Rate), max(opts.Burst, 1))
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader, CacheHeader, TokenHeader},
			MaxAge:         300,
		}))
	}

	s.Attach(r)
	s.router = r
	return s
}

// Attach registers the routes on r.
func (s *Server) Attach(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Post("/encode", s.handleEncode)
	r.Get("/decode/{token}", s.handleDecode)
	r.Get("/stats", s.handleStats)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/{format}/{token}", s.handleRenderToken)
		r.Post("/{format}", s.handleRenderBody)
	})
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
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
