package entities

import (
	"errors"
	"time"
)

// Lead represents a completed lead record captured from a finished
// conversation session.
type Lead struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	SessionID  string    `json:"session_id" bson:"session_id"`
	Name       string    `json:"name" bson:"name"`
	Email      string    `json:"email" bson:"email"`
	Phone      string    `json:"phone" bson:"phone"`
	Interest   string    `json:"interest" bson:"interest"`
	Summary    string    `json:"summary,omitempty" bson:"summary,omitempty"`
	CapturedAt time.Time `json:"captured_at" bson:"captured_at"`
}

// Validate validates the lead data
func (l *Lead) Validate() error {
	if l.SessionID == "" {
		return errors.New("session id is required")
	}
	if l.Name == "" {
		return errors.New("name is required")
	}
	if l.Email == "" {
		return errors.New("email is required")
	}
	return nil
}
