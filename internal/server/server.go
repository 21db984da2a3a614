// Package server exposes planning and interaction tracking over HTTP, with a
// websocket for live interaction ingest.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/raphaelgruber/fortroute/internal/service"
)

// Options tunes the server.
type Options struct {
	// IngestRate is the sustained websocket messages per second allowed per connection.
	IngestRate float64
	// IngestBurst is the websocket message burst allowed per connection.
	IngestBurst int
	// LivePongWait is how long a live connection may go without a pong or a
	// message before it is closed. Pings are sent at 9/10 of it.
	LivePongWait time.Duration
}

// Server wraps the service with HTTP routing.
type Server struct {
	svc      *service.Service
	logger   *slog.Logger
	validate *validator.Validate
	upgrader websocket.Upgrader
	opts     Options
	router   chi.Router
}

// New creates a server with all routes registered.
func New(svc *service.Service, logger *slog.Logger, opts Options) *Server {
	if opts.IngestRate <= 0 {
		opts.IngestRate = 20
	}
	if opts.IngestBurst <= 0 {
		opts.IngestBurst = 40
	}
	if opts.LivePongWait <= 0 {
		opts.LivePongWait = 60 * time.Second
	}
	s := &Server{
		svc:      svc,
		logger:   logger,
		validate: newValidator(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // allow all origins for local dev
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		opts: opts,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)

		r.Get("/sites", s.handleListSites)
		r.Route("/sites/{site}", func(r chi.Router) {
			r.Get("/", s.handleGetSite)
			r.Post("/plan", s.handlePlan)
			r.Post("/interactions", s.handleInteraction)
			r.Get("/interactions", s.handleListInteractions)
			r.Post("/click", s.handleTrack(service.ActionClick))
			r.Post("/skip", s.handleTrack(service.ActionSkip))
			r.Post("/dwell", s.handleTrack(service.ActionDwell))
			r.Get("/aggregates", s.handleAggregates)
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/live", s.handleLive)
		})

		r.Get("/scoring", s.handleGetScoring)
		r.Patch("/scoring", s.handleUpdateScoring)

		r.Route("/store", func(r chi.Router) {
			r.Get("/export", s.handleExport)
			r.Post("/import", s.handleImport)
			r.Post("/reset", s.handleReset)
			r.Post("/rebuild", s.handleRebuild)
		})
	})

	return r
}

func (s *Server) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(s.opts.IngestRate), s.opts.IngestBurst)
}
