package memory

import (
	"context"
	"testing"
	"time"

	"github.com/voxlead/server/domain/entities"
)

func TestLeadCreateAndList(t *testing.T) {
	repo := NewLeadRepository()
	ctx := context.Background()

	lead := &entities.Lead{
		SessionID: "s1",
		Name:      "John",
		Email:     "john@example.com",
		Phone:     "5551234567",
		Interest:  "pricing",
	}

	if err := repo.Create(ctx, lead); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if lead.ID == "" {
		t.Error("Create should assign an ID")
	}

	if lead.CapturedAt.IsZero() {
		t.Error("Create should stamp CapturedAt")
	}

	leads, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(leads) != 1 {
		t.Fatalf("Expected 1 lead, got %d", len(leads))
	}

	if leads[0].Email != "john@example.com" {
		t.Errorf("Expected stored email, got %q", leads[0].Email)
	}
}

func TestLeadCreateInvalid(t *testing.T) {
	repo := NewLeadRepository()

	lead := &entities.Lead{SessionID: "s1", Name: "John"}
	if err := repo.Create(context.Background(), lead); err == nil {
		t.Error("Lead without email should be rejected")
	}
}

func TestLeadListOrderedByCapture(t *testing.T) {
	repo := NewLeadRepository()
	ctx := context.Background()

	older := &entities.Lead{
		SessionID:  "s1",
		Name:       "Alice",
		Email:      "alice@example.com",
		CapturedAt: time.Now().Add(-time.Hour),
	}
	newer := &entities.Lead{
		SessionID:  "s2",
		Name:       "Bob",
		Email:      "bob@example.com",
		CapturedAt: time.Now(),
	}

	if err := repo.Create(ctx, newer); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	leads, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(leads) != 2 {
		t.Fatalf("Expected 2 leads, got %d", len(leads))
	}

	if leads[0].Name != "Alice" || leads[1].Name != "Bob" {
		t.Errorf("Expected oldest first, got %s then %s", leads[0].Name, leads[1].Name)
	}
}
