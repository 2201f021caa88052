package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mailfleet/mailfleet/internal/models"
)

type DeliveryRepository struct {
	db *sql.DB
}

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// CreateLog inserts one delivery log row. If the caller pre-generated an id
// (the engine does, so tracking links can reference the row) it is kept.
func (r *DeliveryRepository) CreateLog(l *models.DeliveryLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = models.DeliverySent
	}
	l.CreatedAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO delivery_logs (id, campaign_id, subscriber_id, status, ab_variant,
			provider_id, error, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.CampaignID, l.SubscriberID, l.Status, string(l.ABVariant),
		l.ProviderID, l.Error, l.SentAt, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery log: %w", err)
	}
	return nil
}

// GetByID returns a delivery log by ID
func (r *DeliveryRepository) GetByID(id string) (*models.DeliveryLog, error) {
	l := &models.DeliveryLog{}
	var variant, providerID, errMsg sql.NullString
	var sentAt, deliveredAt, openedAt, clickedAt sql.NullTime

	err := r.db.QueryRow(`
		SELECT id, campaign_id, subscriber_id, status, ab_variant, provider_id, error,
			sent_at, delivered_at, opened_at, clicked_at, created_at
		FROM delivery_logs WHERE id = ?`, id,
	).Scan(&l.ID, &l.CampaignID, &l.SubscriberID, &l.Status, &variant, &providerID, &errMsg,
		&sentAt, &deliveredAt, &openedAt, &clickedAt, &l.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	l.ABVariant = models.ABVariant(variant.String)
	l.ProviderID = providerID.String
	l.Error = errMsg.String
	if sentAt.Valid {
		l.SentAt = &sentAt.Time
	}
	if deliveredAt.Valid {
		l.DeliveredAt = &deliveredAt.Time
	}
	if openedAt.Valid {
		l.OpenedAt = &openedAt.Time
	}
	if clickedAt.Valid {
		l.ClickedAt = &clickedAt.Time
	}
	return l, nil
}

// ListByCampaign returns all delivery logs for a campaign
func (r *DeliveryRepository) ListByCampaign(campaignID string) ([]models.DeliveryLog, error) {
	rows, err := r.db.Query(`
		SELECT dl.id, dl.campaign_id, dl.subscriber_id, COALESCE(s.email, ''), dl.status,
			dl.ab_variant, dl.provider_id, dl.error, dl.sent_at, dl.opened_at, dl.clicked_at, dl.created_at
		FROM delivery_logs dl
		LEFT JOIN subscribers s ON dl.subscriber_id = s.id
		WHERE dl.campaign_id = ?
		ORDER BY dl.created_at, dl.id`, campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.DeliveryLog{}
	for rows.Next() {
		var l models.DeliveryLog
		var variant, providerID, errMsg sql.NullString
		var sentAt, openedAt, clickedAt sql.NullTime

		err := rows.Scan(&l.ID, &l.CampaignID, &l.SubscriberID, &l.Email, &l.Status,
			&variant, &providerID, &errMsg, &sentAt, &openedAt, &clickedAt, &l.CreatedAt)
		if err != nil {
			return nil, err
		}
		l.ABVariant = models.ABVariant(variant.String)
		l.ProviderID = providerID.String
		l.Error = errMsg.String
		if sentAt.Valid {
			l.SentAt = &sentAt.Time
		}
		if openedAt.Valid {
			l.OpenedAt = &openedAt.Time
		}
		if clickedAt.Valid {
			l.ClickedAt = &clickedAt.Time
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

// MarkOpened records an open event. First open wins; later pixels are no-ops.
func (r *DeliveryRepository) MarkOpened(id string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE delivery_logs SET
			opened_at = COALESCE(opened_at, ?),
			status = CASE WHEN status = 'sent' THEN 'opened' ELSE status END
		WHERE id = ?`, at, id,
	)
	return err
}

// MarkClicked records a click event. A click implies an open.
func (r *DeliveryRepository) MarkClicked(id string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE delivery_logs SET
			clicked_at = COALESCE(clicked_at, ?),
			opened_at = COALESCE(opened_at, ?),
			status = CASE WHEN status IN ('sent', 'opened') THEN 'clicked' ELSE status END
		WHERE id = ?`, at, at, id,
	)
	return err
}

// VariantCounts tallies sent/opened/clicked for one experiment arm.
// "Opened" counts rows with opened_at set or a status that implies an open;
// a clicked row always counts as opened.
func (r *DeliveryRepository) VariantCounts(campaignID string, variant models.ABVariant) (models.VariantCounts, error) {
	var c models.VariantCounts
	err := r.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN opened_at IS NOT NULL OR status IN ('opened', 'clicked') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN clicked_at IS NOT NULL OR status = 'clicked' THEN 1 ELSE 0 END), 0)
		FROM delivery_logs
		WHERE campaign_id = ? AND ab_variant = ?`,
		campaignID, string(variant),
	).Scan(&c.Sent, &c.Opened, &c.Clicked)
	return c, err
}

// LoggedSubscriberIDs returns the set of subscribers that already have a
// delivery log for the campaign. Used to skip already-sent recipients when
// a rollout is retried after a partial failure.
func (r *DeliveryRepository) LoggedSubscriberIDs(campaignID string) (map[string]bool, error) {
	rows, err := r.db.Query(
		"SELECT subscriber_id FROM delivery_logs WHERE campaign_id = ?", campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// DistinctRecipientCount counts distinct subscribers with a delivery log
// for the campaign, across both test and rollout phases.
func (r *DeliveryRepository) DistinctRecipientCount(campaignID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		"SELECT COUNT(DISTINCT subscriber_id) FROM delivery_logs WHERE campaign_id = ?",
		campaignID,
	).Scan(&n)
	return n, err
}
