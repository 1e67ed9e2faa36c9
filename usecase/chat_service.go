package usecase

import (
	"context"
	"errors"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voxlead/server/domain/entities"
	"github.com/voxlead/server/domain/repositories"
	"github.com/voxlead/server/internal/flow"
)

// ErrSessionExpired is returned when a message targets an expired session
var ErrSessionExpired = errors.New("session expired")

// ChatService orchestrates lead-collection conversations: it creates
// sessions, routes answers through the step engine and captures a lead
// when a conversation completes.
type ChatService struct {
	engine     *flow.Engine
	sessions   repositories.SessionRepository
	leads      repositories.LeadRepository
	summarizer repositories.LeadSummarizer
	logger     *zap.Logger
}

// NewChatService creates a new chat service. The summarizer is optional;
// pass nil to store leads without summaries.
func NewChatService(
	engine *flow.Engine,
	sessions repositories.SessionRepository,
	leads repositories.LeadRepository,
	summarizer repositories.LeadSummarizer,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		engine:     engine,
		sessions:   sessions,
		leads:      leads,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Start creates a new session and returns the opening prompt
func (s *ChatService) Start(ctx context.Context) (*entities.Session, flow.Reply, error) {
	profile := entities.AgentProfiles[rand.Intn(len(entities.AgentProfiles))]
	session := entities.NewSession(uuid.New().String(), profile)

	greeting := s.engine.Greeting()
	session.AddMessage(entities.MessageRoleAgent, greeting)

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, flow.Reply{}, err
	}

	s.logger.Info("Session started",
		zap.String("sessionID", session.ID),
		zap.String("agent", profile.Name))

	return session, flow.Reply{Message: greeting, ShouldAutoListen: true}, nil
}

// HandleMessage advances a session with one user answer. Completed
// sessions are never mutated; the closing message is echoed back.
func (s *ChatService) HandleMessage(ctx context.Context, sessionID, message string) (flow.Reply, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return flow.Reply{}, err
	}

	if session.Status == entities.SessionStatusExpired {
		return flow.Reply{}, ErrSessionExpired
	}

	wasComplete := session.IsComplete()
	reply := s.engine.Advance(session, message)

	if !wasComplete && reply.IsComplete {
		if err := s.captureLead(ctx, session); err != nil {
			// The conversation already succeeded from the user's point
			// of view; losing the lead record is an operator problem.
			s.logger.Error("Failed to capture lead",
				zap.String("sessionID", session.ID),
				zap.Error(err))
		}
	}

	if !wasComplete {
		if err := s.sessions.Update(ctx, session); err != nil {
			return flow.Reply{}, err
		}
	}

	return reply, nil
}

// GetSession returns a session by ID
func (s *ChatService) GetSession(ctx context.Context, sessionID string) (*entities.Session, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

// Leads returns all captured leads
func (s *ChatService) Leads(ctx context.Context) ([]*entities.Lead, error) {
	return s.leads.List(ctx)
}

func (s *ChatService) captureLead(ctx context.Context, session *entities.Session) error {
	lead := &entities.Lead{
		SessionID: session.ID,
		Name:      session.Fields[flow.FieldName],
		Email:     session.Fields[flow.FieldEmail],
		Phone:     session.Fields[flow.FieldPhone],
		Interest:  session.Fields[flow.FieldInterest],
	}

	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(ctx, lead)
		if err != nil {
			s.logger.Warn("Lead summary failed, storing without summary",
				zap.String("sessionID", session.ID),
				zap.Error(err))
		} else {
			lead.Summary = summary
		}
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return err
	}

	s.logger.Info("Lead captured",
		zap.String("leadID", lead.ID),
		zap.String("sessionID", session.ID))

	return nil
}
