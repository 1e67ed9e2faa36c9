package turn

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxlead/server/domain/repositories"
	"github.com/voxlead/server/internal/flow"
)

const (
	// DefaultSilenceTimeout is how long a listening turn waits for speech
	// before giving up
	DefaultSilenceTimeout = 9 * time.Second

	// MaxNoSpeechRetries is how many times an empty listening turn is
	// silently restarted before the user is asked to type instead
	MaxNoSpeechRetries = 1
)

// State is the current phase of the voice turn cycle
type State string

const (
	StateIdle        State = "idle"
	StateSpeaking    State = "speaking"
	StateListening   State = "listening"
	StateSubmitting  State = "submitting"
	StateManualInput State = "manual_input"
	StateComplete    State = "complete"
)

// EventType tags an event delivered to the controller
type EventType string

const (
	EventSynthesisStarted  EventType = "synthesis_started"
	EventSynthesisEnded    EventType = "synthesis_ended"
	EventSynthesisError    EventType = "synthesis_error"
	EventRecognitionResult EventType = "recognition_result"
	EventRecognitionError  EventType = "recognition_error"
	EventSilenceTimeout    EventType = "silence_timeout"
	EventReplyReceived     EventType = "reply_received"
	EventManualSubmit      EventType = "manual_submit"
	EventAudioToggled      EventType = "audio_toggled"
	EventListenRequested   EventType = "listen_requested"
)

// Event is one tagged input to Dispatch. Only the fields relevant to the
// event type are set.
type Event struct {
	Type         EventType
	Transcript   string
	ErrorCode    string
	Text         string
	AudioEnabled bool
	Reply        flow.Reply
}

// Effect tells the owner what to do after a dispatch. Zero value means
// nothing to do.
type Effect struct {
	Speak          string
	StartListening bool
	StopListening  bool
	Submit         string
	HasSubmit      bool
	PromptManual   bool
	Notice         string
	ErrorMessage   string
}

// Config configures a Controller
type Config struct {
	SilenceTimeout time.Duration
	AudioEnabled   bool
	// OnSilenceTimeout fires from the watchdog timer goroutine. Owners
	// route it back in as an EventSilenceTimeout dispatch.
	OnSilenceTimeout func()
}

// Controller coordinates one conversation's speak/listen/submit cycle.
// All transitions go through Dispatch; pending timers are cancelled on
// every competing transition so a late timeout never duplicates work.
type Controller struct {
	mu sync.Mutex

	state           State
	audioEnabled    bool
	manualMode      bool
	complete        bool
	autoListen      bool
	noSpeechRetries int

	silenceTimeout time.Duration
	onTimeout      func()
	silenceTimer   *time.Timer

	logger *zap.Logger
}

// NewController creates a controller in the Idle state
func NewController(cfg Config, logger *zap.Logger) *Controller {
	timeout := cfg.SilenceTimeout
	if timeout == 0 {
		timeout = DefaultSilenceTimeout
	}

	return &Controller{
		state:          StateIdle,
		audioEnabled:   cfg.AudioEnabled,
		silenceTimeout: timeout,
		onTimeout:      cfg.OnSilenceTimeout,
		logger:         logger,
	}
}

// State returns the controller's current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ManualMode reports whether the conversation fell back to typed input
func (c *Controller) ManualMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manualMode
}

// Dispatch consumes one event and returns the effect the owner must
// apply. It is safe for concurrent use.
func (c *Controller) Dispatch(ev Event) Effect {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case EventReplyReceived:
		return c.handleReply(ev.Reply)
	case EventSynthesisStarted:
		return c.handleSynthesisStarted()
	case EventSynthesisEnded:
		return c.handleSynthesisEnded()
	case EventSynthesisError:
		return c.handleSynthesisError()
	case EventRecognitionResult:
		return c.handleRecognitionResult(ev.Transcript)
	case EventRecognitionError:
		return c.handleRecognitionError(ev.ErrorCode)
	case EventSilenceTimeout:
		return c.handleSilenceTimeout()
	case EventManualSubmit:
		return c.handleManualSubmit(ev.Text)
	case EventAudioToggled:
		return c.handleAudioToggled(ev.AudioEnabled)
	case EventListenRequested:
		return c.handleListenRequested()
	default:
		c.logger.Warn("Unknown turn event", zap.String("type", string(ev.Type)))
		return Effect{}
	}
}

func (c *Controller) handleReply(reply flow.Reply) Effect {
	c.cancelSilenceTimer()
	c.autoListen = reply.ShouldAutoListen

	if reply.IsComplete {
		c.complete = true
		c.state = StateComplete
		if c.audioEnabled {
			return Effect{Speak: reply.Message}
		}
		return Effect{}
	}

	if reply.ValidationError == flow.ValidationErrMaxRetries {
		c.manualMode = true
		c.state = StateManualInput
		effect := Effect{PromptManual: true}
		if c.audioEnabled {
			effect.Speak = reply.Message
		}
		return effect
	}

	if c.audioEnabled {
		c.state = StateSpeaking
		return Effect{Speak: reply.Message}
	}

	c.state = StateIdle
	return Effect{}
}

func (c *Controller) handleSynthesisStarted() Effect {
	if c.state == StateIdle || c.state == StateSubmitting {
		c.state = StateSpeaking
	}
	return Effect{}
}

// handleSynthesisEnded is the only transition that may open a listening
// turn: audio must be on, the session not complete and manual mode off.
func (c *Controller) handleSynthesisEnded() Effect {
	if c.complete {
		c.state = StateComplete
		return Effect{}
	}

	if c.manualMode {
		c.state = StateManualInput
		return Effect{}
	}

	if c.audioEnabled && c.autoListen {
		c.state = StateListening
		c.startSilenceTimer()
		return Effect{StartListening: true}
	}

	c.state = StateIdle
	return Effect{}
}

func (c *Controller) handleSynthesisError() Effect {
	// Synthesis failure is not fatal to the conversation. The text was
	// already shown, so settle without opening a listening turn.
	switch {
	case c.complete:
		c.state = StateComplete
	case c.manualMode:
		c.state = StateManualInput
	default:
		c.state = StateIdle
	}
	return Effect{}
}

func (c *Controller) handleRecognitionResult(transcript string) Effect {
	if c.state != StateListening {
		// Stale result after a competing transition already won
		return Effect{}
	}

	c.cancelSilenceTimer()
	c.noSpeechRetries = 0
	c.state = StateSubmitting

	return Effect{Submit: transcript, HasSubmit: true}
}

func (c *Controller) handleRecognitionError(code string) Effect {
	if c.state != StateListening {
		return Effect{}
	}

	c.cancelSilenceTimer()

	switch code {
	case repositories.RecognitionErrNoSpeech:
		return c.retryOrGiveUpListening()
	case repositories.RecognitionErrAborted:
		// Expected on manual stop
		c.state = StateIdle
		return Effect{}
	default:
		c.state = StateIdle
		return Effect{ErrorMessage: "Speech recognition failed. Please try again or type your answer."}
	}
}

func (c *Controller) handleSilenceTimeout() Effect {
	if c.state != StateListening {
		// Timer raced a result that already arrived
		return Effect{}
	}

	c.logger.Info("Silence watchdog fired")
	return c.retryOrGiveUpListening()
}

// retryOrGiveUpListening applies the single-retry policy for empty
// listening turns
func (c *Controller) retryOrGiveUpListening() Effect {
	if c.noSpeechRetries < MaxNoSpeechRetries {
		c.noSpeechRetries++
		c.startSilenceTimer()
		return Effect{StopListening: true, StartListening: true}
	}

	c.noSpeechRetries = 0
	c.state = StateIdle
	return Effect{
		StopListening: true,
		Notice:        "I didn't hear anything. Tap the microphone to try again, or type your answer.",
	}
}

func (c *Controller) handleManualSubmit(text string) Effect {
	if c.complete {
		return Effect{}
	}

	c.cancelSilenceTimer()

	effect := Effect{Submit: text, HasSubmit: true}
	if c.state == StateListening {
		effect.StopListening = true
	}
	c.state = StateSubmitting

	return effect
}

// handleListenRequested handles the user explicitly opening the
// microphone. Listening never starts over active synthesis, after
// completion or in manual mode.
func (c *Controller) handleListenRequested() Effect {
	if c.complete || c.manualMode || c.state == StateSpeaking || c.state == StateSubmitting || !c.audioEnabled {
		return Effect{}
	}

	c.state = StateListening
	c.startSilenceTimer()
	return Effect{StartListening: true}
}

func (c *Controller) handleAudioToggled(enabled bool) Effect {
	c.audioEnabled = enabled
	if enabled {
		return Effect{}
	}

	c.cancelSilenceTimer()
	if c.state == StateListening {
		c.state = StateIdle
		return Effect{StopListening: true}
	}

	return Effect{}
}

func (c *Controller) startSilenceTimer() {
	c.cancelSilenceTimer()
	if c.onTimeout == nil {
		return
	}
	c.silenceTimer = time.AfterFunc(c.silenceTimeout, c.onTimeout)
}

func (c *Controller) cancelSilenceTimer() {
	if c.silenceTimer != nil {
		c.silenceTimer.Stop()
		c.silenceTimer = nil
	}
}
