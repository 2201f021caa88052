// Package api exposes the HTTP surface of the delivery engine: campaign
// and subscriber management, manual engine triggers, A/B stats, metrics
// and the open/click tracking endpoints.
package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mailfleet/mailfleet/internal/config"
	"github.com/mailfleet/mailfleet/internal/engine"
	"github.com/mailfleet/mailfleet/internal/metrics"
	"github.com/mailfleet/mailfleet/internal/repository"
)

// Server is the HTTP API server
type Server struct {
	router      *chi.Mux
	cfg         *config.Config
	engine      *engine.Engine
	campaigns   *repository.CampaignRepository
	subscribers *repository.SubscriberRepository
	deliveries  *repository.DeliveryRepository
	metrics     *metrics.Metrics
	logger      *slog.Logger
	startTime   time.Time
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, db *sql.DB, eng *engine.Engine, mx *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		cfg:         cfg,
		engine:      eng,
		campaigns:   repository.NewCampaignRepository(db),
		subscribers: repository.NewSubscriberRepository(db),
		deliveries:  repository.NewDeliveryRepository(db),
		metrics:     mx,
		logger:      logger.With("component", "api"),
		startTime:   time.Now(),
	}

	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	// Public endpoints
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	// Tracking endpoints are hit from recipients' mail clients, no auth
	s.router.Get("/t/open/{id}", s.handleTrackOpen)
	s.router.Get("/t/click/{id}", s.handleTrackClick)

	// API v1 routes (auth required)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/dispatch", s.handleDispatch)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.handleCampaignList)
			r.Post("/", s.handleCampaignCreate)
			r.Get("/{id}", s.handleCampaignGet)
			r.Put("/{id}", s.handleCampaignUpdate)
			r.Delete("/{id}", s.handleCampaignDelete)
			r.Get("/{id}/stats", s.handleCampaignStats)
			r.Get("/{id}/deliveries", s.handleCampaignDeliveries)
			r.Post("/{id}/rollout", s.handleCampaignRollout)
		})

		r.Route("/subscribers", func(r chi.Router) {
			r.Get("/", s.handleSubscriberList)
			r.Post("/", s.handleSubscriberCreate)
			r.Get("/{id}", s.handleSubscriberGet)
			r.Put("/{id}", s.handleSubscriberUpdate)
			r.Delete("/{id}", s.handleSubscriberDelete)
		})
	})
}
