package repository

import (
	"testing"
)

func TestRemainderSaveGetDelete(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewRemainderRepository(conn)

	c := createTestCampaign(t, conn)
	ids := []string{"s1", "s2", "s3"}

	if err := repo.Save(c.ID, ids); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.Get(c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d ids, want 3", len(got))
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i], ids[i])
		}
	}

	if err := repo.Delete(c.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err = repo.Get(c.ID)
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if got != nil {
		t.Errorf("snapshot should be gone, got %v", got)
	}
}

func TestRemainderSaveReplaces(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewRemainderRepository(conn)

	c := createTestCampaign(t, conn)
	if err := repo.Save(c.ID, []string{"a", "b"}); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := repo.Save(c.ID, []string{"c"}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := repo.Get(c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 1 || got[0] != "c" {
		t.Errorf("got %v, want [c]", got)
	}
}

func TestRemainderGetMissing(t *testing.T) {
	conn := setupTestDB(t)

	got, err := NewRemainderRepository(conn).Get("nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("missing snapshot should be nil, got %v", got)
	}
}

func TestRemainderEmptySnapshot(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewRemainderRepository(conn)

	c := createTestCampaign(t, conn)
	if err := repo.Save(c.ID, []string{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.Get(c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	// An empty snapshot is distinct from no snapshot at all.
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}
