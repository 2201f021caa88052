package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mailfleet/mailfleet/internal/models"
)

type SubscriberRepository struct {
	db *sql.DB
}

func NewSubscriberRepository(db *sql.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// Create creates a new subscriber
func (r *SubscriberRepository) Create(s *models.Subscriber) error {
	s.ID = uuid.New().String()
	if s.Status == "" {
		s.Status = models.SubscriberPending
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO subscribers (id, email, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Email, s.Name, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscriber: %w", err)
	}
	return nil
}

// GetByID returns a subscriber by ID
func (r *SubscriberRepository) GetByID(id string) (*models.Subscriber, error) {
	s := &models.Subscriber{}
	var name sql.NullString
	err := r.db.QueryRow(`
		SELECT id, email, name, status, created_at, updated_at
		FROM subscribers WHERE id = ?`, id,
	).Scan(&s.ID, &s.Email, &name, &s.Status, &s.CreatedAt, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Name = name.String
	return s, nil
}

// List returns subscribers with optional filtering
func (r *SubscriberRepository) List(filter models.SubscriberListFilter) ([]models.Subscriber, int, error) {
	countQuery := "SELECT COUNT(*) FROM subscribers WHERE 1=1"
	args := []any{}

	if filter.Status != "" {
		countQuery += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		countQuery += " AND (email LIKE ? OR name LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT id, email, name, status, created_at, updated_at FROM subscribers WHERE 1=1"
	args = []any{}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		query += " AND (email LIKE ? OR name LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	query += " ORDER BY created_at, id"
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

	subs, err := scanSubscribers(rows)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// Update updates a subscriber
func (r *SubscriberRepository) Update(s *models.Subscriber) error {
	s.UpdatedAt = time.Now()
	_, err := r.db.Exec(`
		UPDATE subscribers SET email = ?, name = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		s.Email, s.Name, s.Status, s.UpdatedAt, s.ID,
	)
	return err
}

// Delete deletes a subscriber
func (r *SubscriberRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM subscribers WHERE id = ?", id)
	return err
}

// GetEligible returns active subscribers that have no delivery_log row for
// the campaign yet. The missing-row check is what makes a retried
// invocation skip recipients that were already sent to. Ordering is stable
// so the A/B split is deterministic for the same audience.
func (r *SubscriberRepository) GetEligible(campaignID string) ([]models.Subscriber, error) {
	rows, err := r.db.Query(`
		SELECT s.id, s.email, s.name, s.status, s.created_at, s.updated_at
		FROM subscribers s
		WHERE s.status = ?
		  AND NOT EXISTS (
			SELECT 1 FROM delivery_logs dl
			WHERE dl.campaign_id = ? AND dl.subscriber_id = s.id
		  )
		ORDER BY s.created_at, s.id`,
		models.SubscriberActive, campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscribers(rows)
}

// GetByIDs returns the subscribers for the given ids, in the order the ids
// were given. Ids that no longer resolve are silently dropped.
func (r *SubscriberRepository) GetByIDs(ids []string) ([]models.Subscriber, error) {
	if len(ids) == 0 {
		return []models.Subscriber{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.Query(`
		SELECT id, email, name, status, created_at, updated_at
		FROM subscribers WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found, err := scanSubscribers(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Subscriber, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	ordered := make([]models.Subscriber, 0, len(found))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
		}
	}
	return ordered, nil
}

func scanSubscribers(rows *sql.Rows) ([]models.Subscriber, error) {
	subs := []models.Subscriber{}
	for rows.Next() {
		var s models.Subscriber
		var name sql.NullString
		if err := rows.Scan(&s.ID, &s.Email, &name, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Name = name.String
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
