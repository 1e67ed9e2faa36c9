package entities

import (
	"errors"
	"time"
)

// SessionStatus represents the status of a session
type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusExpired  SessionStatus = "expired"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleUser  MessageRole = "user"
	MessageRoleAgent MessageRole = "agent"
)

// SessionMessage represents a single exchanged message within a session
type SessionMessage struct {
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
	Role      MessageRole `json:"role" bson:"role"`
	Content   string      `json:"content" bson:"content"`
}

// Session represents one lead-collection conversation. It tracks the
// position in the scripted question sequence, every answer collected so
// far and how many times the current question had to be re-asked.
type Session struct {
	ID           string            `json:"id" bson:"_id,omitempty"`
	CurrentStep  int               `json:"current_step" bson:"current_step"`
	Fields       map[string]string `json:"fields" bson:"fields"`
	Retries      map[string]int    `json:"retries" bson:"retries"`
	Status       SessionStatus     `json:"status" bson:"status"`
	Voice        VoiceProfile      `json:"voice" bson:"voice"`
	Messages     []SessionMessage  `json:"messages" bson:"messages"`
	CreatedAt    time.Time         `json:"created_at" bson:"created_at"`
	LastActiveAt time.Time         `json:"last_active_at" bson:"last_active_at"`
}

// NewSession creates a new active session positioned at the first step
func NewSession(id string, voice VoiceProfile) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CurrentStep:  0,
		Fields:       make(map[string]string),
		Retries:      make(map[string]int),
		Status:       SessionStatusActive,
		Voice:        voice,
		Messages:     make([]SessionMessage, 0),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// AddMessage appends a message to the session history
func (s *Session) AddMessage(role MessageRole, content string) {
	s.Messages = append(s.Messages, SessionMessage{
		Timestamp: time.Now(),
		Role:      role,
		Content:   content,
	})
	s.Touch()
}

// Touch updates the last active timestamp
func (s *Session) Touch() {
	s.LastActiveAt = time.Now()
}

// IsComplete reports whether every scripted question has been answered
func (s *Session) IsComplete() bool {
	return s.Status == SessionStatusComplete
}

// Complete marks the session as finished. No further answers are accepted.
func (s *Session) Complete() {
	s.Status = SessionStatusComplete
	s.Touch()
}

// IsIdle reports whether the session has been inactive longer than the
// given duration
func (s *Session) IsIdle(d time.Duration) bool {
	return time.Since(s.LastActiveAt) > d
}

// Expire marks the session as expired
func (s *Session) Expire() {
	s.Status = SessionStatusExpired
}

// RecordAnswer stores a validated answer and advances to the next step
func (s *Session) RecordAnswer(field, value string) {
	s.Fields[field] = value
	s.CurrentStep++
	s.Touch()
}

// RecordRetry increments the retry counter for a field and returns the
// new count
func (s *Session) RecordRetry(field string) int {
	s.Retries[field]++
	s.Touch()
	return s.Retries[field]
}

// Validate validates the session data
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}

	if s.CurrentStep < 0 {
		return errors.New("current step cannot be negative")
	}

	if s.Status != SessionStatusActive && s.Status != SessionStatusComplete && s.Status != SessionStatusExpired {
		return errors.New("invalid session status")
	}

	return nil
}
