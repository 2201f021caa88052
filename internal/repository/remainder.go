package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// RemainderRepository persists the ab_test_remaining snapshot: the frozen
// list of subscriber ids excluded from the A/B test at test-send time. The
// winner rollout sends to exactly this set, hours later and possibly in a
// different process, instead of re-querying the live subscriber table.
type RemainderRepository struct {
	db *sql.DB
}

func NewRemainderRepository(db *sql.DB) *RemainderRepository {
	return &RemainderRepository{db: db}
}

// Save stores the remainder snapshot for a campaign, replacing any
// previous snapshot.
func (r *RemainderRepository) Save(campaignID string, subscriberIDs []string) error {
	data, err := json.Marshal(subscriberIDs)
	if err != nil {
		return fmt.Errorf("failed to encode remainder: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO ab_test_remaining (campaign_id, subscriber_ids, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(campaign_id) DO UPDATE SET subscriber_ids = excluded.subscriber_ids`,
		campaignID, string(data), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save remainder: %w", err)
	}
	return nil
}

// Get returns the remainder snapshot, or nil if none exists
func (r *RemainderRepository) Get(campaignID string) ([]string, error) {
	var data string
	err := r.db.QueryRow(
		"SELECT subscriber_ids FROM ab_test_remaining WHERE campaign_id = ?",
		campaignID,
	).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode remainder: %w", err)
	}
	return ids, nil
}

// Delete removes the remainder snapshot once the rollout has completed
func (r *RemainderRepository) Delete(campaignID string) error {
	_, err := r.db.Exec("DELETE FROM ab_test_remaining WHERE campaign_id = ?", campaignID)
	return err
}
