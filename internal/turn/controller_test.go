package turn

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/voxlead/server/domain/repositories"
	"github.com/voxlead/server/internal/flow"
)

func newTestController(t *testing.T) *Controller {
	return NewController(Config{AudioEnabled: true}, zaptest.NewLogger(t))
}

func TestReplyStartsSpeaking(t *testing.T) {
	c := newTestController(t)

	effect := c.Dispatch(Event{
		Type:  EventReplyReceived,
		Reply: flow.Reply{Message: "What is your email?", ShouldAutoListen: true},
	})

	if effect.Speak != "What is your email?" {
		t.Errorf("Expected speak effect, got %+v", effect)
	}

	if c.State() != StateSpeaking {
		t.Errorf("Expected speaking state, got %s", c.State())
	}
}

func TestSynthesisEndedOpensListening(t *testing.T) {
	c := newTestController(t)

	c.Dispatch(Event{
		Type:  EventReplyReceived,
		Reply: flow.Reply{Message: "What is your email?", ShouldAutoListen: true},
	})

	effect := c.Dispatch(Event{Type: EventSynthesisEnded})

	if !effect.StartListening {
		t.Errorf("Expected listening to open after synthesis, got %+v", effect)
	}

	if c.State() != StateListening {
		t.Errorf("Expected listening state, got %s", c.State())
	}
}

func TestSynthesisEndedWithoutAutoListenSettlesIdle(t *testing.T) {
	c := newTestController(t)

	// A reply that does not request auto listen, such as a max-retries
	// rejection followed by recovery, leaves the mic closed
	c.Dispatch(Event{
		Type:  EventReplyReceived,
		Reply: flow.Reply{Message: "Hello"},
	})

	effect := c.Dispatch(Event{Type: EventSynthesisEnded})

	if effect.StartListening {
		t.Error("Listening must not open when the reply did not request it")
	}

	if c.State() != StateIdle {
		t.Errorf("Expected idle state, got %s", c.State())
	}
}

func TestCompleteReplyClosesTheCycle(t *testing.T) {
	c := newTestController(t)

	effect := c.Dispatch(Event{
		Type:  EventReplyReceived,
		Reply: flow.Reply{Message: "Thank you!", IsComplete: true},
	})

	if effect.Speak == "" {
		t.Error("Closing message should still be spoken")
	}

	if c.State() != StateComplete {
		t.Errorf("Expected complete state, got %s", c.State())
	}

	// Synthesis of the closing message must not reopen the mic
	effect = c.Dispatch(Event{Type: EventSynthesisEnded})
	if effect.StartListening {
		t.Error("Listening must not open after completion")
	}
	if c.State() != StateComplete {
		t.Errorf("Expected complete state to stick, got %s", c.State())
	}
}

func TestMaxRetriesSwitchesToManualInput(t *testing.T) {
	c := newTestController(t)

	effect := c.Dispatch(Event{
		Type: EventReplyReceived,
		Reply: flow.Reply{
			Message:         "Please type your answer instead.",
			ValidationError: flow.ValidationErrMaxRetries,
		},
	})

	if !effect.PromptManual {
		t.Errorf("Expected manual input prompt, got %+v", effect)
	}

	if c.State() != StateManualInput {
		t.Errorf("Expected manual input state, got %s", c.State())
	}

	if !c.ManualMode() {
		t.Error("Controller should report manual mode")
	}

	// The mic stays closed for the rest of the conversation
	if eff := c.Dispatch(Event{Type: EventListenRequested}); eff.StartListening {
		t.Error("Listening must not open in manual mode")
	}

	// Typed answers still work
	eff := c.Dispatch(Event{Type: EventManualSubmit, Text: "john@example.com"})
	if !eff.HasSubmit || eff.Submit != "john@example.com" {
		t.Errorf("Expected manual submit effect, got %+v", eff)
	}
}

func TestRecognitionResultSubmits(t *testing.T) {
	c := newTestController(t)

	c.Dispatch(Event{Type: EventListenRequested})

	effect := c.Dispatch(Event{Type: EventRecognitionResult, Transcript: "John"})

	if !effect.HasSubmit || effect.Submit != "John" {
		t.Errorf("Expected submit effect with transcript, got %+v", effect)
	}

	if c.State() != StateSubmitting {
		t.Errorf("Expected submitting state, got %s", c.State())
	}
}

func TestStaleRecognitionResultIgnored(t *testing.T) {
	c := newTestController(t)

	// Not listening: a late result must not submit anything
	effect := c.Dispatch(Event{Type: EventRecognitionResult, Transcript: "John"})

	if effect.HasSubmit {
		t.Errorf("Stale result must be dropped, got %+v", effect)
	}

	if c.State() != StateIdle {
		t.Errorf("Expected idle state, got %s", c.State())
	}
}

func TestNoSpeechRetriesOnceThenGivesUp(t *testing.T) {
	c := newTestController(t)

	c.Dispatch(Event{Type: EventListenRequested})

	// First empty turn restarts listening silently
	effect := c.Dispatch(Event{Type: EventRecognitionError, ErrorCode: repositories.RecognitionErrNoSpeech})
	if !effect.StartListening || !effect.StopListening {
		t.Errorf("Expected a silent restart, got %+v", effect)
	}
	if effect.Notice != "" {
		t.Errorf("First empty turn should not notify, got %q", effect.Notice)
	}
	if c.State() != StateListening {
		t.Errorf("Expected to stay listening, got %s", c.State())
	}

	// Second empty turn gives up with a notice
	effect = c.Dispatch(Event{Type: EventRecognitionError, ErrorCode: repositories.RecognitionErrNoSpeech})
	if effect.StartListening {
		t.Errorf("Expected no further retry, got %+v", effect)
	}
	if effect.Notice == "" {
		t.Error("Giving up should carry a user-facing notice")
	}
	if c.State() != StateIdle {
		t.Errorf("Expected idle state after giving up, got %s", c.State())
	}
}

func TestAbortedRecognitionIsSilent(t *testing.T) {
	c := newTestController(t)

	c.Dispatch(Event{Type: EventListenRequested})

	effect := c.Dispatch(Event{Type: EventRecognitionError, ErrorCode: repositories.RecognitionErrAborted})

	if effect.Notice != "" || effect.ErrorMessage != "" || effect.StartListening {
		t.Errorf("Aborted recognition should settle silently, got %+v", effect)
	}

	if c.State() != StateIdle {
		t.Errorf("Expected idle state, got %s", c.State())
	}
}

func TestRecognitionFailureReportsError(t *testing.T) {
	c := newTestController(t)

	c.Dispatch(Event{Type: EventListenRequested})

	effect := c.Dispatch(Event{Type: EventRecognitionError, ErrorCode: repositories.RecognitionErrOther})

	if effect.ErrorMessage == "" {
		t.Errorf("Recognition failure should carry an error message, got %+v", effect)
	}

	if c.State() != StateIdle {
		t.Errorf("Expected idle state, got %s", c.State())
	}
}

func TestSilenceTimeoutFires(t *testing.T) {
	fired := make(chan struct{}, 1)

	var c *Controller
	c = NewController(Config{
		AudioEnabled:   true,
		SilenceTimeout: 50 * time.Millisecond,
		OnSilenceTimeout: func() {
			c.Dispatch(Event{Type: EventSilenceTimeout})
			select {
			case fired <- struct{}{}:
			default:
			}
		},
	}, zaptest.NewLogger(t))

	c.Dispatch(Event{Type: EventListenRequested})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Silence watchdog did not fire")
	}

	// One empty turn consumed the single retry, still listening
	if c.State() != StateListening {
		t.Errorf("Expected a listening retry after the first timeout, got %s", c.State())
	}

	// Disarm the rearmed watchdog
	c.Dispatch(Event{Type: EventRecognitionError, ErrorCode: repositories.RecognitionErrAborted})
}

func TestStaleSilenceTimeoutIgnored(t *testing.T) {
	c := newTestController(t)

	c.Dispatch(Event{Type: EventListenRequested})
	c.Dispatch(Event{Type: EventRecognitionResult, Transcript: "John"})

	// A timeout arriving after the result raced it must do nothing
	effect := c.Dispatch(Event{Type: EventSilenceTimeout})

	if effect.StartListening || effect.StopListening || effect.Notice != "" {
		t.Errorf("Stale timeout must be ignored, got %+v", effect)
	}

	if c.State() != StateSubmitting {
		t.Errorf("Expected submitting state to survive, got %s", c.State())
	}
}

func TestManualSubmitWhileListeningStopsMic(t *testing.T) {
	c := newTestController(t)

	c.Dispatch(Event{Type: EventListenRequested})

	effect := c.Dispatch(Event{Type: EventManualSubmit, Text: "typed instead"})

	if !effect.StopListening {
		t.Errorf("Expected the mic to close on manual submit, got %+v", effect)
	}

	if !effect.HasSubmit || effect.Submit != "typed instead" {
		t.Errorf("Expected submit effect, got %+v", effect)
	}
}

func TestListenRequestGuards(t *testing.T) {
	c := newTestController(t)

	// Speaking blocks the mic
	c.Dispatch(Event{
		Type:  EventReplyReceived,
		Reply: flow.Reply{Message: "hi", ShouldAutoListen: true},
	})
	if eff := c.Dispatch(Event{Type: EventListenRequested}); eff.StartListening {
		t.Error("Listening must not open over active synthesis")
	}

	// Audio off blocks the mic
	c = newTestController(t)
	c.Dispatch(Event{Type: EventAudioToggled, AudioEnabled: false})
	if eff := c.Dispatch(Event{Type: EventListenRequested}); eff.StartListening {
		t.Error("Listening must not open with audio disabled")
	}
}

func TestAudioToggleOffStopsListening(t *testing.T) {
	c := newTestController(t)

	c.Dispatch(Event{Type: EventListenRequested})

	effect := c.Dispatch(Event{Type: EventAudioToggled, AudioEnabled: false})

	if !effect.StopListening {
		t.Errorf("Expected the mic to close when audio is disabled, got %+v", effect)
	}

	if c.State() != StateIdle {
		t.Errorf("Expected idle state, got %s", c.State())
	}

	// With audio off, replies settle without speaking
	eff := c.Dispatch(Event{
		Type:  EventReplyReceived,
		Reply: flow.Reply{Message: "What is your email?", ShouldAutoListen: true},
	})
	if eff.Speak != "" {
		t.Errorf("Expected no speech with audio disabled, got %+v", eff)
	}
	if c.State() != StateIdle {
		t.Errorf("Expected idle state, got %s", c.State())
	}
}
