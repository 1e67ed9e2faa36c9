package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxlead/server/domain/entities"
)

// LeadRepository is an in-memory implementation of
// repositories.LeadRepository
type LeadRepository struct {
	mu    sync.RWMutex
	leads map[string]*entities.Lead
}

// NewLeadRepository creates a new in-memory lead repository
func NewLeadRepository() *LeadRepository {
	return &LeadRepository{
		leads: make(map[string]*entities.Lead),
	}
}

// Create stores a captured lead
func (m *LeadRepository) Create(ctx context.Context, lead *entities.Lead) error {
	if lead == nil {
		return errors.New("lead cannot be nil")
	}

	if err := lead.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CapturedAt.IsZero() {
		lead.CapturedAt = time.Now()
	}

	leadCopy := *lead
	m.leads[lead.ID] = &leadCopy

	return nil
}

// List returns all captured leads, oldest first
func (m *LeadRepository) List(ctx context.Context) ([]*entities.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	leads := make([]*entities.Lead, 0, len(m.leads))
	for _, lead := range m.leads {
		leadCopy := *lead
		leads = append(leads, &leadCopy)
	}

	sort.Slice(leads, func(i, j int) bool {
		return leads[i].CapturedAt.Before(leads[j].CapturedAt)
	})

	return leads, nil
}
