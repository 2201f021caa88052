package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mailfleet/mailfleet/internal/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, name, subject, html, from_email, from_name,
	ab_test_enabled, ab_subject_b, ab_from_name_b, ab_wait_hours,
	status, schedule_type, schedule_config, scheduled_at, last_sent_at,
	sent_at, ab_test_sent_at, ab_winner, recipient_count, created_at, updated_at`

// Create creates a new campaign
func (r *CampaignRepository) Create(c *models.Campaign) error {
	c.ID = uuid.New().String()
	if c.Status == "" {
		c.Status = models.CampaignDraft
	}
	if c.ScheduleType == "" {
		c.ScheduleType = models.ScheduleNone
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO campaigns (id, name, subject, html, from_email, from_name,
			ab_test_enabled, ab_subject_b, ab_from_name_b, ab_wait_hours,
			status, schedule_type, schedule_config, scheduled_at, ab_winner,
			recipient_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Subject, c.HTML, c.FromEmail, c.FromName,
		c.ABTestEnabled, c.ABSubjectB, c.ABFromNameB, c.ABWaitHours,
		c.Status, c.ScheduleType, c.ScheduleConfig, c.ScheduledAt, string(c.ABWinner),
		c.RecipientCount, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func scanCampaign(row interface{ Scan(...any) error }) (*models.Campaign, error) {
	c := &models.Campaign{}
	var scheduleConfig, abSubjectB, abFromNameB, fromName, html, winner sql.NullString
	var scheduledAt, lastSentAt, sentAt, abTestSentAt sql.NullTime

	err := row.Scan(&c.ID, &c.Name, &c.Subject, &html, &c.FromEmail, &fromName,
		&c.ABTestEnabled, &abSubjectB, &abFromNameB, &c.ABWaitHours,
		&c.Status, &c.ScheduleType, &scheduleConfig, &scheduledAt, &lastSentAt,
		&sentAt, &abTestSentAt, &winner, &c.RecipientCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.HTML = html.String
	c.FromName = fromName.String
	c.ABSubjectB = abSubjectB.String
	c.ABFromNameB = abFromNameB.String
	c.ScheduleConfig = scheduleConfig.String
	c.ABWinner = models.ABVariant(winner.String)
	if scheduledAt.Valid {
		c.ScheduledAt = &scheduledAt.Time
	}
	if lastSentAt.Valid {
		c.LastSentAt = &lastSentAt.Time
	}
	if sentAt.Valid {
		c.SentAt = &sentAt.Time
	}
	if abTestSentAt.Valid {
		c.ABTestSentAt = &abTestSentAt.Time
	}
	return c, nil
}

// GetByID returns a campaign by ID
func (r *CampaignRepository) GetByID(id string) (*models.Campaign, error) {
	row := r.db.QueryRow("SELECT "+campaignColumns+" FROM campaigns WHERE id = ?", id)
	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns campaigns with optional filtering
func (r *CampaignRepository) List(filter models.CampaignListFilter) ([]models.Campaign, int, error) {
	countQuery := "SELECT COUNT(*) FROM campaigns WHERE 1=1"
	args := []any{}

	if filter.Status != "" {
		countQuery += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		countQuery += " AND (name LIKE ? OR subject LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + campaignColumns + " FROM campaigns WHERE 1=1"
	args = []any{}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		query += " AND (name LIKE ? OR subject LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, *c)
	}

	return campaigns, total, nil
}

// Update updates campaign content and scheduling fields
func (r *CampaignRepository) Update(c *models.Campaign) error {
	c.UpdatedAt = time.Now()
	_, err := r.db.Exec(`
		UPDATE campaigns SET name = ?, subject = ?, html = ?, from_email = ?, from_name = ?,
			ab_test_enabled = ?, ab_subject_b = ?, ab_from_name_b = ?, ab_wait_hours = ?,
			status = ?, schedule_type = ?, schedule_config = ?, scheduled_at = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Subject, c.HTML, c.FromEmail, c.FromName,
		c.ABTestEnabled, c.ABSubjectB, c.ABFromNameB, c.ABWaitHours,
		c.Status, c.ScheduleType, c.ScheduleConfig, c.ScheduledAt, c.UpdatedAt, c.ID,
	)
	return err
}

// Delete deletes a campaign
func (r *CampaignRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM campaigns WHERE id = ?", id)
	return err
}

// GetDue returns campaigns with status 'scheduled' and scheduled_at <= now
func (r *CampaignRepository) GetDue(now time.Time) ([]models.Campaign, error) {
	rows, err := r.db.Query(`
		SELECT `+campaignColumns+` FROM campaigns
		WHERE status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?
		ORDER BY scheduled_at`,
		models.CampaignScheduled, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, nil
}

// GetABTesting returns campaigns in the test phase with no winner picked yet.
// The caller decides which of them have waited out their ab_wait_hours.
func (r *CampaignRepository) GetABTesting() ([]models.Campaign, error) {
	rows, err := r.db.Query(`
		SELECT `+campaignColumns+` FROM campaigns
		WHERE status = ? AND (ab_winner IS NULL OR ab_winner = '')
		ORDER BY ab_test_sent_at`,
		models.CampaignABTesting,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, nil
}

// MarkSent marks a non-recurring campaign as terminally sent
func (r *CampaignRepository) MarkSent(id string, sentAt time.Time, recipientCount int) error {
	_, err := r.db.Exec(`
		UPDATE campaigns SET status = ?, sent_at = ?, recipient_count = ?, updated_at = ?
		WHERE id = ?`,
		models.CampaignSent, sentAt, recipientCount, time.Now(), id,
	)
	return err
}

// MarkFailed marks a campaign as failed
func (r *CampaignRepository) MarkFailed(id string) error {
	_, err := r.db.Exec("UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ?",
		models.CampaignFailed, time.Now(), id)
	return err
}

// MarkABTesting records the start of the test phase
func (r *CampaignRepository) MarkABTesting(id string, testSentAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE campaigns SET status = ?, ab_test_sent_at = ?, updated_at = ?
		WHERE id = ?`,
		models.CampaignABTesting, testSentAt, time.Now(), id,
	)
	return err
}

// Reschedule keeps a recurring campaign in 'scheduled' with a new fire time
func (r *CampaignRepository) Reschedule(id string, lastSentAt, nextRun time.Time) error {
	_, err := r.db.Exec(`
		UPDATE campaigns SET status = ?, last_sent_at = ?, scheduled_at = ?, updated_at = ?
		WHERE id = ?`,
		models.CampaignScheduled, lastSentAt, nextRun, time.Now(), id,
	)
	return err
}

// CompleteABTest finishes an A/B campaign after the winner rollout
func (r *CampaignRepository) CompleteABTest(id string, winner models.ABVariant, sentAt time.Time, recipientCount int) error {
	_, err := r.db.Exec(`
		UPDATE campaigns SET status = ?, ab_winner = ?, sent_at = ?, recipient_count = ?, updated_at = ?
		WHERE id = ?`,
		models.CampaignSent, string(winner), sentAt, recipientCount, time.Now(), id,
	)
	return err
}
