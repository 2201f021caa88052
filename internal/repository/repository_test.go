package repository

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mailfleet/mailfleet/internal/db"
	"github.com/mailfleet/mailfleet/internal/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	for _, m := range db.Migrations {
		if _, err := conn.Exec(m); err != nil {
			t.Fatalf("migration failed: %v", err)
		}
	}
	return conn
}

func createTestCampaign(t *testing.T, conn *sql.DB) *models.Campaign {
	t.Helper()

	c := &models.Campaign{
		Name:      "test campaign",
		Subject:   "Hello",
		HTML:      "<p>Hi</p>",
		FromEmail: "news@example.com",
	}
	if err := NewCampaignRepository(conn).Create(c); err != nil {
		t.Fatalf("failed to create campaign: %v", err)
	}
	return c
}

func createTestSubscriber(t *testing.T, conn *sql.DB, email string, status models.SubscriberStatus) *models.Subscriber {
	t.Helper()

	s := &models.Subscriber{Email: email, Status: status}
	if err := NewSubscriberRepository(conn).Create(s); err != nil {
		t.Fatalf("failed to create subscriber: %v", err)
	}
	return s
}
