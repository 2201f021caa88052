package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mailfleet/mailfleet/internal/models"
	"github.com/mailfleet/mailfleet/internal/schedule"
)

// CampaignRequest is the create/update payload for a campaign
type CampaignRequest struct {
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`

	ABTestEnabled bool   `json:"ab_test_enabled"`
	ABSubjectB    string `json:"ab_subject_b"`
	ABFromNameB   string `json:"ab_from_name_b"`
	ABWaitHours   int    `json:"ab_wait_hours"`

	ScheduleType   models.ScheduleType    `json:"schedule_type"`
	ScheduleConfig *models.ScheduleConfig `json:"schedule_config"`
	ScheduledAt    *time.Time             `json:"scheduled_at"`
}

func (req *CampaignRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.Subject == "" {
		return "subject is required"
	}
	if req.FromEmail == "" {
		return "from_email is required"
	}
	if req.ABTestEnabled && req.ABWaitHours <= 0 {
		return "ab_wait_hours must be positive when A/B testing is enabled"
	}

	switch req.ScheduleType {
	case "", models.ScheduleNone:
	case models.ScheduleDaily, models.ScheduleWeekly, models.ScheduleMonthly:
		if req.ScheduleConfig == nil {
			return "schedule_config is required for recurring campaigns"
		}
		if err := req.ScheduleConfig.Validate(req.ScheduleType); err != nil {
			return err.Error()
		}
	default:
		return "invalid schedule_type"
	}
	return ""
}

// apply copies the request onto a campaign. For recurring campaigns without
// an explicit first fire time, the next occurrence of the recurrence rule is
// computed and used.
func (req *CampaignRequest) apply(c *models.Campaign) error {
	c.Name = req.Name
	c.Subject = req.Subject
	c.HTML = req.HTML
	c.FromEmail = req.FromEmail
	c.FromName = req.FromName
	c.ABTestEnabled = req.ABTestEnabled
	c.ABSubjectB = req.ABSubjectB
	c.ABFromNameB = req.ABFromNameB
	c.ABWaitHours = req.ABWaitHours

	c.ScheduleType = req.ScheduleType
	if c.ScheduleType == "" {
		c.ScheduleType = models.ScheduleNone
	}
	c.ScheduleConfig = ""
	if req.ScheduleConfig != nil {
		raw, err := json.Marshal(req.ScheduleConfig)
		if err != nil {
			return err
		}
		c.ScheduleConfig = string(raw)
	}

	c.ScheduledAt = req.ScheduledAt
	if c.ScheduledAt == nil && c.Recurring() {
		next, err := schedule.NextRun(c.ScheduleType, *req.ScheduleConfig, time.Now())
		if err != nil {
			return err
		}
		c.ScheduledAt = &next
	}

	if c.ScheduledAt != nil {
		c.Status = models.CampaignScheduled
	} else if c.Status == "" {
		c.Status = models.CampaignDraft
	}
	return nil
}

// handleCampaignList handles GET /api/v1/campaigns
func (s *Server) handleCampaignList(w http.ResponseWriter, r *http.Request) {
	filter := models.CampaignListFilter{
		Status: models.CampaignStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
		Limit:  intQuery(r, "limit", 50),
		Offset: intQuery(r, "offset", 0),
	}

	campaigns, total, err := s.campaigns.List(filter)
	if err != nil {
		s.logger.Error("failed to list campaigns", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list campaigns")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{
		"campaigns": campaigns,
		"total":     total,
	})
}

// handleCampaignCreate handles POST /api/v1/campaigns
func (s *Server) handleCampaignCreate(w http.ResponseWriter, r *http.Request) {
	var req CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		s.sendError(w, http.StatusBadRequest, msg)
		return
	}

	c := &models.Campaign{}
	if err := req.apply(c); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.campaigns.Create(c); err != nil {
		s.logger.Error("failed to create campaign", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to create campaign")
		return
	}

	s.logger.Info("campaign created", "campaign_id", c.ID, "name", c.Name)
	s.sendJSON(w, http.StatusCreated, c)
}

// handleCampaignGet handles GET /api/v1/campaigns/{id}
func (s *Server) handleCampaignGet(w http.ResponseWriter, r *http.Request) {
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
	s.sendJSON(w, http.StatusOK, c)
}

// handleCampaignUpdate handles PUT /api/v1/campaigns/{id}. Campaigns that
// already entered delivery cannot be edited.
func (s *Server) handleCampaignUpdate(w http.ResponseWriter, r *http.Request) {
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
	if c.Status != models.CampaignDraft && c.Status != models.CampaignScheduled && c.Status != models.CampaignFailed {
		s.sendError(w, http.StatusConflict, "Campaign can no longer be edited")
		return
	}

	var req CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		s.sendError(w, http.StatusBadRequest, msg)
		return
	}
	if err := req.apply(c); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.campaigns.Update(c); err != nil {
		s.logger.Error("failed to update campaign", "campaign_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to update campaign")
		return
	}
	s.sendJSON(w, http.StatusOK, c)
}

// handleCampaignDelete handles DELETE /api/v1/campaigns/{id}
func (s *Server) handleCampaignDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := s.campaigns.Delete(id); err != nil {
		s.logger.Error("failed to delete campaign", "campaign_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to delete campaign")
		return
	}

	s.logger.Info("campaign deleted", "campaign_id", id)
	w.WriteHeader(http.StatusNoContent)
}
