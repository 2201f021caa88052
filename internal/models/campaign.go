package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CampaignStatus enumerates campaign lifecycle states
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignABTesting CampaignStatus = "ab_testing"
	CampaignSent      CampaignStatus = "sent"
	CampaignFailed    CampaignStatus = "failed"
)

// ScheduleType enumerates recurrence types
type ScheduleType string

const (
	ScheduleNone    ScheduleType = "none"
	ScheduleDaily   ScheduleType = "daily"
	ScheduleWeekly  ScheduleType = "weekly"
	ScheduleMonthly ScheduleType = "monthly"
)

// ScheduleConfig holds the recurrence parameters stored as JSON on the campaign.
// DayOfWeek (0=Sunday..6=Saturday) applies to weekly schedules, DayOfMonth
// (1..31) to monthly ones.
type ScheduleConfig struct {
	Hour       int  `json:"hour"`
	Minute     int  `json:"minute"`
	DayOfWeek  *int `json:"day_of_week,omitempty"`
	DayOfMonth *int `json:"day_of_month,omitempty"`
}

// Validate checks the config against its schedule type
func (c ScheduleConfig) Validate(st ScheduleType) error {
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("invalid hour %d", c.Hour)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("invalid minute %d", c.Minute)
	}
	switch st {
	case ScheduleWeekly:
		if c.DayOfWeek == nil || *c.DayOfWeek < 0 || *c.DayOfWeek > 6 {
			return fmt.Errorf("weekly schedule requires day_of_week in 0..6")
		}
	case ScheduleMonthly:
		if c.DayOfMonth == nil || *c.DayOfMonth < 1 || *c.DayOfMonth > 31 {
			return fmt.Errorf("monthly schedule requires day_of_month in 1..31")
		}
	}
	return nil
}

// Campaign represents an email campaign
type Campaign struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`

	// Variant B overrides for A/B tests; variant A always uses the
	// campaign's own subject and from name.
	ABTestEnabled bool   `json:"ab_test_enabled"`
	ABSubjectB    string `json:"ab_subject_b"`
	ABFromNameB   string `json:"ab_from_name_b"`
	ABWaitHours   int    `json:"ab_wait_hours"`

	Status         CampaignStatus `json:"status"`
	ScheduleType   ScheduleType   `json:"schedule_type"`
	ScheduleConfig string         `json:"schedule_config"` // JSON
	ScheduledAt    *time.Time     `json:"scheduled_at"`
	LastSentAt     *time.Time     `json:"last_sent_at"`
	SentAt         *time.Time     `json:"sent_at"`
	ABTestSentAt   *time.Time     `json:"ab_test_sent_at"`
	ABWinner       ABVariant      `json:"ab_winner"`
	RecipientCount int            `json:"recipient_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recurring reports whether the campaign reschedules itself after a send
func (c *Campaign) Recurring() bool {
	return c.ScheduleType != "" && c.ScheduleType != ScheduleNone
}

// ParseScheduleConfig decodes the stored schedule_config JSON
func (c *Campaign) ParseScheduleConfig() (ScheduleConfig, error) {
	var cfg ScheduleConfig
	if c.ScheduleConfig == "" {
		return cfg, fmt.Errorf("schedule_config is empty")
	}
	if err := json.Unmarshal([]byte(c.ScheduleConfig), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse schedule_config: %w", err)
	}
	if err := cfg.Validate(c.ScheduleType); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// CampaignListFilter for filtering campaigns
type CampaignListFilter struct {
	Status CampaignStatus
	Search string
	Limit  int
	Offset int
}
