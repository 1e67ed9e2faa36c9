package repositories

import (
	"context"
	"time"

	"github.com/voxlead/server/domain/entities"
)

// SessionRepository defines data access methods for conversation sessions
type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	GetByID(ctx context.Context, id string) (*entities.Session, error)
	Update(ctx context.Context, session *entities.Session) error
	// ExpireIdle marks sessions inactive for longer than idleFor as expired
	ExpireIdle(ctx context.Context, idleFor time.Duration) error
}
