package websocket

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voxlead/server/domain/repositories"
)

const (
	// Sessions idle for this long are marked expired
	sessionIdleTimeout = 30 * time.Minute

	cleanupInterval = 5 * time.Minute
)

// SessionCleanupService expires abandoned conversations in the background
type SessionCleanupService struct {
	sessionRepo repositories.SessionRepository
	logger      *zap.Logger
	stopChan    chan struct{}
}

// NewSessionCleanupService creates a new session cleanup service
func NewSessionCleanupService(sessionRepo repositories.SessionRepository, logger *zap.Logger) *SessionCleanupService {
	return &SessionCleanupService{
		sessionRepo: sessionRepo,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *SessionCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Session cleanup service started")
}

// Stop gracefully stops the cleanup service
func (s *SessionCleanupService) Stop() {
	close(s.stopChan)
	s.logger.Info("Session cleanup service stopped")
}

func (s *SessionCleanupService) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	// Run initial cleanup after 1 minute
	initialTimer := time.NewTimer(1 * time.Minute)
	defer initialTimer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-initialTimer.C:
			s.runCleanup()
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *SessionCleanupService) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err := s.sessionRepo.ExpireIdle(ctx, sessionIdleTimeout)
	if err != nil {
		s.logger.Error("Failed to expire idle sessions", zap.Error(err))
		return
	}

	s.logger.Debug("Session cleanup completed")
}
