// Package deadletter keeps a durable record of per-recipient sends that
// failed permanently or exhausted their attempt. Failed recipients never
// get a delivery_log row (so a re-run retries them); this store preserves
// the failure for diagnosis.
package deadletter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// Entry is one failed recipient send
type Entry struct {
	ID           string    `json:"id"`
	CampaignID   string    `json:"campaign_id"`
	SubscriberID string    `json:"subscriber_id"`
	Email        string    `json:"email"`
	Subject      string    `json:"subject"`
	Phase        string    `json:"phase"` // dispatch, ab_test or rollout
	Error        string    `json:"error"`
	FailedAt     time.Time `json:"failed_at"`
}

// Store is a BoltDB-backed dead letter store
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the store at path
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open dead letter store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Add appends an entry. Keys are time-prefixed so iteration is
// chronological.
func (s *Store) Add(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.FailedAt.IsZero() {
		e.FailedAt = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	key := []byte(e.FailedAt.UTC().Format(time.RFC3339Nano) + "/" + e.ID)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put(key, data)
	})
}

// List returns up to limit entries, oldest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Entry, error) {
	entries := []Entry{}

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to decode entry %s: %w", k, err)
			}
			entries = append(entries, e)
			if limit > 0 && len(entries) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Remove deletes the entry with the given id
func (s *Store) Remove(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			if e.ID == id {
				return b.Delete(k)
			}
		}
		return fmt.Errorf("entry %s not found", id)
	})
}

// Count returns the number of stored entries
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketEntries).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
