package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Version is set by the build
var Version = "dev"

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handleDispatch handles POST /api/v1/dispatch: one engine tick, the same
// operation the background worker runs on its cadence.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.ProcessScheduledCampaigns(r.Context())
	if err != nil {
		s.logger.Error("dispatch failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Dispatch failed")
		return
	}
	s.sendJSON(w, http.StatusOK, res)
}

// handleCampaignStats handles GET /api/v1/campaigns/{id}/stats
func (s *Server) handleCampaignStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.campaigns.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get campaign", "campaign_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get campaign")
		return
	}
	if c == nil {
		s.sendError(w, http.StatusNotFound, "Campaign not found")
		return
	}

	stats, err := s.engine.ABTestStats(id)
	if err != nil {
		s.logger.Error("failed to compute stats", "campaign_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	s.sendJSON(w, http.StatusOK, stats)
}

// handleCampaignRollout handles POST /api/v1/campaigns/{id}/rollout
func (s *Server) handleCampaignRollout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.engine.SendABTestWinner(r.Context(), id)
	if err != nil {
		s.logger.Error("winner rollout failed", "campaign_id", id, "error", err)
		s.sendError(w, http.StatusConflict, err.Error())
		return
	}
	s.sendJSON(w, http.StatusOK, res)
}

// handleCampaignDeliveries handles GET /api/v1/campaigns/{id}/deliveries
func (s *Server) handleCampaignDeliveries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	logs, err := s.deliveries.ListByCampaign(id)
	if err != nil {
		s.logger.Error("failed to list deliveries", "campaign_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list deliveries")
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"deliveries": logs, "total": len(logs)})
}

// trackingPixel is a 1x1 transparent GIF
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// handleTrackOpen handles GET /t/open/{id}. The pixel is always served;
// tracking failures must never break mail rendering.
func (s *Server) handleTrackOpen(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.deliveries.MarkOpened(id, time.Now()); err != nil {
		s.logger.Debug("failed to record open", "delivery_id", id, "error", err)
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache")
	w.Write(trackingPixel)
}

// handleTrackClick handles GET /t/click/{id}?url=...
func (s *Server) handleTrackClick(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	target := r.URL.Query().Get("url")
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		s.sendError(w, http.StatusBadRequest, "invalid redirect url")
		return
	}

	if err := s.deliveries.MarkClicked(id, time.Now()); err != nil {
		s.logger.Debug("failed to record click", "delivery_id", id, "error", err)
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
