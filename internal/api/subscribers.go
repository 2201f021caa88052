package api

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mailfleet/mailfleet/internal/models"
)

// SubscriberRequest is the create/update payload for a subscriber
type SubscriberRequest struct {
	Email  string                  `json:"email"`
	Name   string                  `json:"name"`
	Status models.SubscriberStatus `json:"status"`
}

func (req *SubscriberRequest) validate() string {
	if req.Email == "" {
		return "email is required"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "invalid email address"
	}
	switch req.Status {
	case "", models.SubscriberPending, models.SubscriberActive, models.SubscriberUnsubscribed:
	default:
		return "invalid status"
	}
	return ""
}

// handleSubscriberList handles GET /api/v1/subscribers
func (s *Server) handleSubscriberList(w http.ResponseWriter, r *http.Request) {
	filter := models.SubscriberListFilter{
		Status: models.SubscriberStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
		Limit:  intQuery(r, "limit", 50),
		Offset: intQuery(r, "offset", 0),
	}

	subs, total, err := s.subscribers.List(filter)
	if err != nil {
		s.logger.Error("failed to list subscribers", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list subscribers")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{
		"subscribers": subs,
		"total":       total,
	})
}

// handleSubscriberCreate handles POST /api/v1/subscribers
func (s *Server) handleSubscriberCreate(w http.ResponseWriter, r *http.Request) {
	var req SubscriberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		s.sendError(w, http.StatusBadRequest, msg)
		return
	}

	sub := &models.Subscriber{
		Email:  req.Email,
		Name:   req.Name,
		Status: req.Status,
	}
	if err := s.subscribers.Create(sub); err != nil {
		s.logger.Error("failed to create subscriber", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to create subscriber")
		return
	}
	s.sendJSON(w, http.StatusCreated, sub)
}

// handleSubscriberGet handles GET /api/v1/subscribers/{id}
func (s *Server) handleSubscriberGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := s.subscribers.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get subscriber", "subscriber_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get subscriber")
		return
	}
	if sub == nil {
		s.sendError(w, http.StatusNotFound, "Subscriber not found")
		return
	}
	s.sendJSON(w, http.StatusOK, sub)
}

// handleSubscriberUpdate handles PUT /api/v1/subscribers/{id}
func (s *Server) handleSubscriberUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := s.subscribers.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get subscriber", "subscriber_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get subscriber")
		return
	}
	if sub == nil {
		s.sendError(w, http.StatusNotFound, "Subscriber not found")
		return
	}

	var req SubscriberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		s.sendError(w, http.StatusBadRequest, msg)
		return
	}

	sub.Email = req.Email
	sub.Name = req.Name
	if req.Status != "" {
		sub.Status = req.Status
	}
	if err := s.subscribers.Update(sub); err != nil {
		s.logger.Error("failed to update subscriber", "subscriber_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to update subscriber")
		return
	}
	s.sendJSON(w, http.StatusOK, sub)
}

// handleSubscriberDelete handles DELETE /api/v1/subscribers/{id}
func (s *Server) handleSubscriberDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.subscribers.Delete(id); err != nil {
		s.logger.Error("failed to delete subscriber", "subscriber_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to delete subscriber")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
