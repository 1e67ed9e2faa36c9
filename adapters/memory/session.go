package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxlead/server/domain/entities"
)

// SessionRepository is an in-memory implementation of
// repositories.SessionRepository. Sessions live for the process lifetime
// unless the cleanup sweeper expires them.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.Session
}

// NewSessionRepository creates a new in-memory session repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*entities.Session),
	}
}

// Create stores a new session, generating an ID when none is set
func (m *SessionRepository) Create(ctx context.Context, session *entities.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}

	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return errors.New("session already exists")
	}

	sessionCopy := cloneSession(session)
	m.sessions[session.ID] = sessionCopy

	return nil
}

// GetByID returns the session with the given ID
func (m *SessionRepository) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	if id == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}

	return cloneSession(session), nil
}

// Update replaces the stored state of an existing session
func (m *SessionRepository) Update(ctx context.Context, session *entities.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; !exists {
		return errors.New("session not found")
	}

	m.sessions[session.ID] = cloneSession(session)

	return nil
}

// ExpireIdle marks sessions inactive for longer than idleFor as expired
func (m *SessionRepository) ExpireIdle(ctx context.Context, idleFor time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, session := range m.sessions {
		if session.Status == entities.SessionStatusActive && session.IsIdle(idleFor) {
			session.Expire()
		}
	}

	return nil
}

// cloneSession copies a session so callers never share mutable state
// with the store
func cloneSession(s *entities.Session) *entities.Session {
	out := *s

	out.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		out.Fields[k] = v
	}

	out.Retries = make(map[string]int, len(s.Retries))
	for k, v := range s.Retries {
		out.Retries[k] = v
	}

	out.Messages = make([]entities.SessionMessage, len(s.Messages))
	copy(out.Messages, s.Messages)

	return &out
}
