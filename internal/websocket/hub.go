package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxlead/server/domain/entities"
	"github.com/voxlead/server/domain/repositories"
	"github.com/voxlead/server/internal/turn"
	"github.com/voxlead/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	submitTimeout = 10 * time.Second
	speakTimeout  = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The widget token already gates the upgrade
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active voice bridge clients
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	chat *usecase.ChatService
	stt  repositories.SpeechToText
	tts  repositories.TextToSpeech

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	chat *usecase.ChatService,
	stt repositories.SpeechToText,
	tts repositories.TextToSpeech,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		chat:       chat,
		stt:        stt,
		tts:        tts,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Widget connected", zap.String("sessionID", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.sessionID]; ok {
				delete(h.clients, client.sessionID)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Widget disconnected", zap.String("sessionID", client.sessionID))
		}
	}
}

// WriteData is one outbound websocket frame
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client bridges one widget connection to the conversation services
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	sessionID string
	voice     entities.VoiceProfile

	controller *turn.Controller

	sttStream repositories.SpeechToTextStreaming

	mutex  sync.Mutex
	logger *zap.Logger
}

// HandleWebSocketWithAuth handles voice bridge connections for a
// pre-authenticated session ID
func HandleWebSocketWithAuth(hub *Hub, c echo.Context, sessionID string, logger *zap.Logger) error {
	session, err := hub.chat.GetSession(c.Request().Context(), sessionID)
	if err != nil {
		logger.Warn("Voice bridge rejected: unknown session",
			zap.String("sessionID", sessionID),
			zap.Error(err))
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "session_not_found",
		})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan WriteData, 256),
		sessionID: sessionID,
		voice:     session.Voice,
		logger:    logger,
	}

	client.controller = turn.NewController(turn.Config{
		AudioEnabled: true,
		OnSilenceTimeout: func() {
			client.applyEffect(client.controller.Dispatch(turn.Event{Type: turn.EventSilenceTimeout}))
		},
	}, logger)

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processAudioChunk(message)
		default:
			c.logger.Warn("Received unknown frame type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage dispatches one control message from the widget
func (c *Client) processMessage(message []byte) {
	msg, err := ParseIncoming(message)
	if err != nil {
		c.logger.Warn("Rejected widget message", zap.Error(err))
		c.sendJSON(ErrorMessage{
			BaseMessage: stamp(MessageTypeError),
			Code:        "invalid_message",
			Message:     err.Error(),
		})
		return
	}

	switch m := msg.(type) {
	case *ListeningStartMessage:
		c.handleListeningStart(m)
	case *BaseMessage:
		if m.Type == MessageTypeListeningEnd {
			c.handleListeningEnd()
		}
	case *ManualMessage:
		c.applyEffect(c.controller.Dispatch(turn.Event{
			Type: turn.EventManualSubmit,
			Text: m.Text,
		}))
	case *AudioToggledMessage:
		c.applyEffect(c.controller.Dispatch(turn.Event{
			Type:         turn.EventAudioToggled,
			AudioEnabled: m.Enabled,
		}))
	}
}

// processAudioChunk forwards mic audio into the active recognition
// stream
func (c *Client) processAudioChunk(data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.sttStream == nil {
		c.logger.Warn("Audio chunk without active listening turn",
			zap.String("sessionID", c.sessionID))
		return
	}

	if err := c.sttStream.Stream(data); err != nil {
		c.logger.Error("Failed to stream audio data",
			zap.String("sessionID", c.sessionID),
			zap.Error(err))
	}
}

// handleListeningStart opens a listening turn if the controller's guards
// allow it
func (c *Client) handleListeningStart(msg *ListeningStartMessage) {
	effect := c.controller.Dispatch(turn.Event{Type: turn.EventListenRequested})
	if !effect.StartListening {
		// Guarded off: speaking in progress, manual mode or complete
		c.sendJSON(ErrorMessage{
			BaseMessage: stamp(MessageTypeError),
			Code:        "listening_unavailable",
			Message:     "Cannot listen right now",
		})
		return
	}

	cfg := repositories.AudioConfig{
		SampleRate: 48000,
		Language:   "en-US",
		Encoding:   "WEBM_OPUS",
	}
	if msg.SampleRate > 0 {
		cfg.SampleRate = msg.SampleRate
	}
	if msg.Encoding != "" {
		cfg.Encoding = msg.Encoding
	}
	if msg.Language != "" {
		cfg.Language = msg.Language
	}

	if err := c.openRecognitionStream(cfg); err != nil {
		c.logger.Error("Failed to initialize streaming transcription",
			zap.String("sessionID", c.sessionID),
			zap.Error(err))
		c.applyEffect(c.controller.Dispatch(turn.Event{
			Type:      turn.EventRecognitionError,
			ErrorCode: repositories.RecognitionErrOther,
		}))
		return
	}

	c.sendJSON(SpeakingMessage{
		BaseMessage: stamp(MessageTypeListeningStarted),
		SessionID:   c.sessionID,
	})
}

func (c *Client) openRecognitionStream(cfg repositories.AudioConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.hub.stt.InitTranscribeStreaming(ctx, cfg)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	c.sttStream = stream
	c.mutex.Unlock()

	return nil
}

// handleListeningEnd closes the recognition stream and feeds its outcome
// into the turn controller
func (c *Client) handleListeningEnd() {
	c.mutex.Lock()
	stream := c.sttStream
	c.sttStream = nil
	c.mutex.Unlock()

	if stream == nil {
		return
	}

	transcript, err := stream.End()
	if err != nil {
		code := repositories.RecognitionErrOther
		if errors.Is(err, repositories.ErrNoSpeech) {
			code = repositories.RecognitionErrNoSpeech
		}
		c.logger.Info("Listening turn produced no transcript",
			zap.String("sessionID", c.sessionID),
			zap.String("code", code),
			zap.Error(err))
		c.applyEffect(c.controller.Dispatch(turn.Event{
			Type:      turn.EventRecognitionError,
			ErrorCode: code,
		}))
		return
	}

	c.logger.Info("Transcription completed",
		zap.String("sessionID", c.sessionID),
		zap.String("transcript", transcript))

	c.applyEffect(c.controller.Dispatch(turn.Event{
		Type:       turn.EventRecognitionResult,
		Transcript: transcript,
	}))
}

// applyEffect executes the side effects one dispatch asked for
func (c *Client) applyEffect(effect turn.Effect) {
	if effect.StopListening {
		c.closeRecognitionStream()
		c.sendJSON(BaseMessage{Type: MessageTypeStopListening})
	}

	if effect.StartListening {
		// The microphone lives in the widget; ask it to open a turn.
		// Its listening_start reply re-arms recognition.
		c.sendJSON(BaseMessage{Type: MessageTypeStartListening})
	}

	if effect.Notice != "" {
		c.sendJSON(NoticeMessage{
			BaseMessage: stamp(MessageTypeNotice),
			Text:        effect.Notice,
		})
	}

	if effect.ErrorMessage != "" {
		c.sendJSON(ErrorMessage{
			BaseMessage: stamp(MessageTypeError),
			Code:        "recognition_failed",
			Message:     effect.ErrorMessage,
		})
	}

	if effect.PromptManual {
		c.sendJSON(NoticeMessage{
			BaseMessage: stamp(MessageTypeNotice),
			Text:        "Please type your answer instead.",
		})
	}

	if effect.HasSubmit {
		go c.submit(effect.Submit)
	}

	if effect.Speak != "" {
		go c.speak(effect.Speak)
	}
}

// submit sends one answer through the step engine and routes the reply
// back into the turn cycle
func (c *Client) submit(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	reply, err := c.hub.chat.HandleMessage(ctx, c.sessionID, text)
	if err != nil {
		c.logger.Error("Failed to handle transcript",
			zap.String("sessionID", c.sessionID),
			zap.Error(err))
		c.sendJSON(ErrorMessage{
			BaseMessage: stamp(MessageTypeError),
			Code:        "submit_failed",
			Message:     "Something went wrong. Please try again.",
		})
		return
	}

	c.sendJSON(AgentMessage{
		BaseMessage:      stamp(MessageTypeAgentMessage),
		SessionID:        c.sessionID,
		Text:             reply.Message,
		IsComplete:       reply.IsComplete,
		ValidationError:  reply.ValidationError,
		ShouldAutoListen: reply.ShouldAutoListen,
	})

	c.applyEffect(c.controller.Dispatch(turn.Event{
		Type:  turn.EventReplyReceived,
		Reply: reply,
	}))
}

// speak streams synthesized audio for one agent message
func (c *Client) speak(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), speakTimeout)
	defer cancel()

	audioChan, err := c.hub.tts.Synthesize(ctx, text, c.voice)
	if err != nil {
		c.logger.Error("Failed to synthesize speech",
			zap.String("sessionID", c.sessionID),
			zap.Error(err))
		c.applyEffect(c.controller.Dispatch(turn.Event{Type: turn.EventSynthesisError}))
		return
	}

	c.applyEffect(c.controller.Dispatch(turn.Event{Type: turn.EventSynthesisStarted}))
	c.sendJSON(SpeakingMessage{
		BaseMessage: stamp(MessageTypeSpeakingStart),
		SessionID:   c.sessionID,
	})

	for audioData := range audioChan {
		c.send <- WriteData{
			Type:    websocket.BinaryMessage,
			Payload: audioData,
		}
	}

	c.sendJSON(SpeakingMessage{
		BaseMessage: stamp(MessageTypeSpeakingEnd),
		SessionID:   c.sessionID,
	})

	c.applyEffect(c.controller.Dispatch(turn.Event{Type: turn.EventSynthesisEnded}))
}

func (c *Client) closeRecognitionStream() {
	c.mutex.Lock()
	stream := c.sttStream
	c.sttStream = nil
	c.mutex.Unlock()

	if stream != nil {
		// Discard whatever partial audio arrived
		if _, err := stream.End(); err != nil && !errors.Is(err, repositories.ErrNoSpeech) {
			c.logger.Debug("Discarded recognition stream", zap.Error(err))
		}
	}
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Dropping message for slow widget",
			zap.String("sessionID", c.sessionID))
	}
}
