package api

// StartResponse is returned by POST /api/chat/start
type StartResponse struct {
	SessionID        string `json:"session_id"`
	Message          string `json:"message"`
	ShouldAutoListen bool   `json:"should_auto_listen"`
	Agent            string `json:"agent"`
	Token            string `json:"token"`
}

// MessageRequest is the payload for POST /api/chat/message
type MessageRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

// MessageResponse is returned by POST /api/chat/message
type MessageResponse struct {
	AgentMessage     string `json:"agent_message"`
	IsComplete       bool   `json:"is_complete"`
	ValidationError  string `json:"validation_error,omitempty"`
	ShouldAutoListen bool   `json:"should_auto_listen"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
