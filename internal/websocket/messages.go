package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Messages the widget sends
const (
	MessageTypeListeningStart MessageType = "listening_start"
	MessageTypeListeningEnd   MessageType = "listening_end"
	MessageTypeManualMessage  MessageType = "manual_message"
	MessageTypeAudioToggled   MessageType = "audio_toggled"
)

// Messages the server sends
const (
	MessageTypeListeningStarted MessageType = "listening_started"
	MessageTypeStartListening   MessageType = "start_listening"
	MessageTypeStopListening    MessageType = "stop_listening"
	MessageTypeAgentMessage     MessageType = "agent_message"
	MessageTypeSpeakingStart    MessageType = "speaking_start"
	MessageTypeSpeakingEnd      MessageType = "speaking_end"
	MessageTypeNotice           MessageType = "notice"
	MessageTypeError            MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// ListeningStartMessage opens one listening turn. The widget follows it
// with binary audio frames and a listening_end.
type ListeningStartMessage struct {
	BaseMessage
	SampleRate int    `json:"sample_rate,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Language   string `json:"language,omitempty"`
}

// ManualMessage carries a typed answer from the widget
type ManualMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// AudioToggledMessage reports the widget's speaker/mic toggle
type AudioToggledMessage struct {
	BaseMessage
	Enabled bool `json:"enabled"`
}

// AgentMessage carries one agent reply to the widget
type AgentMessage struct {
	BaseMessage
	SessionID        string `json:"session_id"`
	Text             string `json:"text"`
	IsComplete       bool   `json:"is_complete"`
	ValidationError  string `json:"validation_error,omitempty"`
	ShouldAutoListen bool   `json:"should_auto_listen"`
}

// SpeakingMessage brackets a synthesized audio stream
type SpeakingMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
}

// NoticeMessage carries a user-facing instruction, such as the prompt to
// fall back to typed input
type NoticeMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ErrorMessage represents an error event
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// ParseIncoming decodes and validates one text frame from the widget.
// It returns the typed message, whose concrete type follows the type
// field.
func ParseIncoming(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid message format: %w", err)
	}

	switch base.Type {
	case MessageTypeListeningStart:
		var msg ListeningStartMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid listening_start message: %w", err)
		}
		return &msg, nil

	case MessageTypeListeningEnd:
		return &BaseMessage{Type: MessageTypeListeningEnd}, nil

	case MessageTypeManualMessage:
		var msg ManualMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid manual_message: %w", err)
		}
		if msg.Text == "" {
			return nil, fmt.Errorf("manual_message requires text")
		}
		return &msg, nil

	case MessageTypeAudioToggled:
		var msg AudioToggledMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid audio_toggled message: %w", err)
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("message missing type field")

	default:
		return nil, fmt.Errorf("unknown message type: %s", base.Type)
	}
}

func stamp(t MessageType) BaseMessage {
	return BaseMessage{
		Type:      t,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
