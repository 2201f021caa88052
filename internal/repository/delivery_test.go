package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/mailfleet/mailfleet/internal/models"
)

func createTestLog(t *testing.T, conn *sql.DB, campaignID string, variant models.ABVariant) *models.DeliveryLog {
	t.Helper()

	s := createTestSubscriber(t, conn, "log-"+string(variant)+"-"+timeSuffix(), models.SubscriberActive)
	sentAt := time.Now()
	l := &models.DeliveryLog{
		CampaignID:   campaignID,
		SubscriberID: s.ID,
		ABVariant:    variant,
		SentAt:       &sentAt,
	}
	if err := NewDeliveryRepository(conn).CreateLog(l); err != nil {
		t.Fatalf("failed to create delivery log: %v", err)
	}
	return l
}

var logSeq int

func timeSuffix() string {
	logSeq++
	return time.Now().Format("150405.000000") + string(rune('a'+logSeq%26)) + "@example.com"
}

func TestDeliveryLogDuplicatePairRejected(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewDeliveryRepository(conn)

	c := createTestCampaign(t, conn)
	l := createTestLog(t, conn, c.ID, models.VariantA)

	err := repo.CreateLog(&models.DeliveryLog{
		CampaignID:   c.ID,
		SubscriberID: l.SubscriberID,
	})
	if err == nil {
		t.Error("expected unique constraint error for duplicate (campaign, subscriber) pair")
	}
}

func TestDeliveryMarkOpenedFirstWins(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewDeliveryRepository(conn)

	c := createTestCampaign(t, conn)
	l := createTestLog(t, conn, c.ID, models.VariantA)

	first := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	if err := repo.MarkOpened(l.ID, first); err != nil {
		t.Fatalf("MarkOpened failed: %v", err)
	}
	if err := repo.MarkOpened(l.ID, first.Add(time.Hour)); err != nil {
		t.Fatalf("second MarkOpened failed: %v", err)
	}

	got, _ := repo.GetByID(l.ID)
	if got.Status != models.DeliveryOpened {
		t.Errorf("status = %s, want opened", got.Status)
	}
	if got.OpenedAt == nil || !got.OpenedAt.Equal(first) {
		t.Errorf("opened_at = %v, want first open %v", got.OpenedAt, first)
	}
}

func TestDeliveryMarkClickedImpliesOpen(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewDeliveryRepository(conn)

	c := createTestCampaign(t, conn)
	l := createTestLog(t, conn, c.ID, models.VariantB)

	at := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	if err := repo.MarkClicked(l.ID, at); err != nil {
		t.Fatalf("MarkClicked failed: %v", err)
	}

	got, _ := repo.GetByID(l.ID)
	if got.Status != models.DeliveryClicked {
		t.Errorf("status = %s, want clicked", got.Status)
	}
	if got.OpenedAt == nil || got.ClickedAt == nil {
		t.Errorf("click must set both opened_at and clicked_at: %+v", got)
	}
}

func TestDeliveryClickAfterOpenKeepsFirstOpen(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewDeliveryRepository(conn)

	c := createTestCampaign(t, conn)
	l := createTestLog(t, conn, c.ID, models.VariantA)

	opened := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	clicked := opened.Add(30 * time.Minute)
	repo.MarkOpened(l.ID, opened)
	repo.MarkClicked(l.ID, clicked)

	got, _ := repo.GetByID(l.ID)
	if !got.OpenedAt.Equal(opened) {
		t.Errorf("opened_at = %v, want %v", got.OpenedAt, opened)
	}
	if !got.ClickedAt.Equal(clicked) {
		t.Errorf("clicked_at = %v, want %v", got.ClickedAt, clicked)
	}
}

func TestDeliveryVariantCounts(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewDeliveryRepository(conn)

	c := createTestCampaign(t, conn)
	at := time.Now()

	// Variant A: 3 sent, 2 opened, 1 clicked (the click also opens).
	a1 := createTestLog(t, conn, c.ID, models.VariantA)
	a2 := createTestLog(t, conn, c.ID, models.VariantA)
	createTestLog(t, conn, c.ID, models.VariantA)
	repo.MarkOpened(a1.ID, at)
	repo.MarkClicked(a2.ID, at)

	// Variant B: 2 sent, none engaged.
	createTestLog(t, conn, c.ID, models.VariantB)
	createTestLog(t, conn, c.ID, models.VariantB)

	counts, err := repo.VariantCounts(c.ID, models.VariantA)
	if err != nil {
		t.Fatalf("VariantCounts failed: %v", err)
	}
	if counts.Sent != 3 || counts.Opened != 2 || counts.Clicked != 1 {
		t.Errorf("variant A counts = %+v, want 3/2/1", counts)
	}

	counts, err = repo.VariantCounts(c.ID, models.VariantB)
	if err != nil {
		t.Fatalf("VariantCounts failed: %v", err)
	}
	if counts.Sent != 2 || counts.Opened != 0 || counts.Clicked != 0 {
		t.Errorf("variant B counts = %+v, want 2/0/0", counts)
	}
}

func TestDeliveryLoggedSubscriberIDs(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewDeliveryRepository(conn)

	c := createTestCampaign(t, conn)
	l1 := createTestLog(t, conn, c.ID, models.VariantA)
	l2 := createTestLog(t, conn, c.ID, models.VariantB)

	ids, err := repo.LoggedSubscriberIDs(c.ID)
	if err != nil {
		t.Fatalf("LoggedSubscriberIDs failed: %v", err)
	}
	if len(ids) != 2 || !ids[l1.SubscriberID] || !ids[l2.SubscriberID] {
		t.Errorf("logged ids = %v", ids)
	}

	n, err := repo.DistinctRecipientCount(c.ID)
	if err != nil {
		t.Fatalf("DistinctRecipientCount failed: %v", err)
	}
	if n != 2 {
		t.Errorf("distinct recipients = %d, want 2", n)
	}
}

func TestDeliveryListByCampaignJoinsEmail(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewDeliveryRepository(conn)

	c := createTestCampaign(t, conn)
	createTestLog(t, conn, c.ID, models.VariantA)

	logs, err := repo.ListByCampaign(c.ID)
	if err != nil {
		t.Fatalf("ListByCampaign failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want 1", len(logs))
	}
	if logs[0].Email == "" {
		t.Error("joined subscriber email missing")
	}
}
