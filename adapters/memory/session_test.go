package memory

import (
	"context"
	"testing"
	"time"

	"github.com/voxlead/server/domain/entities"
)

func TestSessionCreateAndGet(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	session := entities.NewSession("", entities.DefaultAgentProfile())
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if session.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	got, err := repo.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.ID != session.ID {
		t.Errorf("Expected session %s, got %s", session.ID, got.ID)
	}

	if got.Status != entities.SessionStatusActive {
		t.Errorf("Expected active status, got %s", got.Status)
	}
}

func TestSessionCreateDuplicate(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	session := entities.NewSession("dup", entities.DefaultAgentProfile())
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.Create(ctx, session); err == nil {
		t.Error("Creating the same session twice should fail")
	}
}

func TestSessionGetUnknown(t *testing.T) {
	repo := NewSessionRepository()

	if _, err := repo.GetByID(context.Background(), "missing"); err == nil {
		t.Error("Expected error for unknown session")
	}
}

func TestSessionUpdate(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	session := entities.NewSession("s1", entities.DefaultAgentProfile())
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	session.RecordAnswer("name", "John")
	if err := repo.Update(ctx, session); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.CurrentStep != 1 {
		t.Errorf("Expected step 1 after update, got %d", got.CurrentStep)
	}

	if got.Fields["name"] != "John" {
		t.Errorf("Expected stored answer, got %q", got.Fields["name"])
	}

	// Unknown sessions cannot be updated
	other := entities.NewSession("missing", entities.DefaultAgentProfile())
	if err := repo.Update(ctx, other); err == nil {
		t.Error("Updating an unknown session should fail")
	}
}

func TestSessionStoreIsolation(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	session := entities.NewSession("s1", entities.DefaultAgentProfile())
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Mutating the retrieved copy must not leak into the store
	got, _ := repo.GetByID(ctx, "s1")
	got.Fields["name"] = "Mallory"
	got.CurrentStep = 99

	fresh, _ := repo.GetByID(ctx, "s1")
	if fresh.CurrentStep != 0 || fresh.Fields["name"] != "" {
		t.Error("Store state leaked through a returned session")
	}
}

func TestExpireIdle(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	stale := entities.NewSession("stale", entities.DefaultAgentProfile())
	if err := repo.Create(ctx, stale); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	stale.LastActiveAt = time.Now().Add(-time.Hour)
	if err := repo.Update(ctx, stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fresh := entities.NewSession("fresh", entities.DefaultAgentProfile())
	if err := repo.Create(ctx, fresh); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.ExpireIdle(ctx, 30*time.Minute); err != nil {
		t.Fatalf("ExpireIdle failed: %v", err)
	}

	got, _ := repo.GetByID(ctx, "stale")
	if got.Status != entities.SessionStatusExpired {
		t.Errorf("Expected stale session expired, got %s", got.Status)
	}

	got, _ = repo.GetByID(ctx, "fresh")
	if got.Status != entities.SessionStatusActive {
		t.Errorf("Expected fresh session untouched, got %s", got.Status)
	}
}
