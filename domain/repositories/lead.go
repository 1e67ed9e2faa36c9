package repositories

import (
	"context"

	"github.com/voxlead/server/domain/entities"
)

// LeadRepository defines data access methods for captured leads
type LeadRepository interface {
	Create(ctx context.Context, lead *entities.Lead) error
	List(ctx context.Context) ([]*entities.Lead, error)
}
