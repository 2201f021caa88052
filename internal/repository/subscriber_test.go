package repository

import (
	"testing"
	"time"

	"github.com/mailfleet/mailfleet/internal/models"
)

func TestSubscriberCreateAndGet(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewSubscriberRepository(conn)

	s := &models.Subscriber{Email: "jo@example.com", Name: "Jo"}
	if err := repo.Create(s); err != nil {
		t.Fatalf("failed to create subscriber: %v", err)
	}
	if s.Status != models.SubscriberPending {
		t.Errorf("default status = %s, want pending", s.Status)
	}

	got, err := repo.GetByID(s.ID)
	if err != nil {
		t.Fatalf("failed to get subscriber: %v", err)
	}
	if got == nil || got.Email != "jo@example.com" || got.Name != "Jo" {
		t.Errorf("got %+v", got)
	}
}

func TestSubscriberDuplicateEmail(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewSubscriberRepository(conn)

	createTestSubscriber(t, conn, "dup@example.com", models.SubscriberActive)
	if err := repo.Create(&models.Subscriber{Email: "dup@example.com"}); err == nil {
		t.Error("expected unique constraint error for duplicate email")
	}
}

func TestSubscriberGetEligible(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewSubscriberRepository(conn)

	c := createTestCampaign(t, conn)
	active := createTestSubscriber(t, conn, "active@example.com", models.SubscriberActive)
	logged := createTestSubscriber(t, conn, "logged@example.com", models.SubscriberActive)
	createTestSubscriber(t, conn, "pending@example.com", models.SubscriberPending)
	createTestSubscriber(t, conn, "gone@example.com", models.SubscriberUnsubscribed)

	sentAt := time.Now()
	err := NewDeliveryRepository(conn).CreateLog(&models.DeliveryLog{
		CampaignID:   c.ID,
		SubscriberID: logged.ID,
		SentAt:       &sentAt,
	})
	if err != nil {
		t.Fatalf("failed to create delivery log: %v", err)
	}

	got, err := repo.GetEligible(c.ID)
	if err != nil {
		t.Fatalf("GetEligible failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Errorf("eligible = %d subscribers, want only %s", len(got), active.Email)
	}
}

func TestSubscriberGetEligibleStableOrder(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewSubscriberRepository(conn)

	c := createTestCampaign(t, conn)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var created []string
	for i := 0; i < 5; i++ {
		s := createTestSubscriber(t, conn, "u"+string(rune('a'+i))+"@example.com", models.SubscriberActive)
		_, err := conn.Exec("UPDATE subscribers SET created_at = ? WHERE id = ?", base.Add(time.Duration(i)*time.Hour), s.ID)
		if err != nil {
			t.Fatalf("failed to backdate subscriber: %v", err)
		}
		created = append(created, s.ID)
	}

	got, err := repo.GetEligible(c.ID)
	if err != nil {
		t.Fatalf("GetEligible failed: %v", err)
	}
	for i, s := range got {
		if s.ID != created[i] {
			t.Fatalf("position %d: got %s, want %s", i, s.ID, created[i])
		}
	}
}

func TestSubscriberGetByIDsKeepsOrder(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewSubscriberRepository(conn)

	a := createTestSubscriber(t, conn, "a@example.com", models.SubscriberActive)
	b := createTestSubscriber(t, conn, "b@example.com", models.SubscriberActive)
	c := createTestSubscriber(t, conn, "c@example.com", models.SubscriberActive)

	got, err := repo.GetByIDs([]string{c.ID, a.ID, "deleted-id", b.ID})
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	want := []string{c.ID, a.ID, b.ID}
	if len(got) != len(want) {
		t.Fatalf("got %d subscribers, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, want[i])
		}
	}
}

func TestSubscriberGetByIDsEmpty(t *testing.T) {
	conn := setupTestDB(t)

	got, err := NewSubscriberRepository(conn).GetByIDs(nil)
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d subscribers, want 0", len(got))
	}
}

func TestSubscriberListFilter(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewSubscriberRepository(conn)

	createTestSubscriber(t, conn, "one@example.com", models.SubscriberActive)
	createTestSubscriber(t, conn, "two@example.com", models.SubscriberUnsubscribed)

	got, total, err := repo.List(models.SubscriberListFilter{Status: models.SubscriberActive})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].Email != "one@example.com" {
		t.Errorf("filtered list = %+v (total %d)", got, total)
	}
}
