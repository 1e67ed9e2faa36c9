package flow

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/voxlead/server/domain/entities"
)

func newTestSession() *entities.Session {
	return entities.NewSession("session-123", entities.DefaultAgentProfile())
}

func TestGreetingIsFirstPrompt(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))

	if got := engine.Greeting(); got != "What is your name?" {
		t.Errorf("Expected name prompt as greeting, got %q", got)
	}
}

func TestAdvanceThroughFullScript(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	session := newTestSession()

	answers := []string{"John", "john@example.com", "+1 (555) 123-4567", "pricing"}
	prompts := []string{
		"What is your email?",
		"What is your phone number?",
		"What are you interested in?",
	}

	for i, answer := range answers {
		reply := engine.Advance(session, answer)

		if reply.ValidationError != "" {
			t.Fatalf("Answer %q should be accepted, got validation error %q", answer, reply.ValidationError)
		}

		if session.CurrentStep != i+1 {
			t.Errorf("Expected step %d after answer %d, got %d", i+1, i, session.CurrentStep)
		}

		if i < len(prompts) {
			if reply.Message != prompts[i] {
				t.Errorf("Expected prompt %q, got %q", prompts[i], reply.Message)
			}
			if !reply.ShouldAutoListen {
				t.Error("Mid-script reply should request auto listen")
			}
			if reply.IsComplete {
				t.Error("Mid-script reply should not be complete")
			}
		}
	}

	if !session.IsComplete() {
		t.Error("Session should be complete after the last answer")
	}

	if session.Fields["email"] != "john@example.com" {
		t.Errorf("Expected stored email, got %q", session.Fields["email"])
	}
}

func TestInvalidEmailKeepsStepAndCountsRetry(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	session := newTestSession()

	engine.Advance(session, "John")

	reply := engine.Advance(session, "not-an-email")

	if session.CurrentStep != 1 {
		t.Errorf("Invalid answer must not advance the step, got step %d", session.CurrentStep)
	}

	if session.Retries[FieldEmail] != 1 {
		t.Errorf("Expected 1 retry recorded, got %d", session.Retries[FieldEmail])
	}

	if reply.ValidationError != "" {
		t.Errorf("First rejection should not carry a validation error code, got %q", reply.ValidationError)
	}

	if !reply.ShouldAutoListen {
		t.Error("Rejection below the retry limit should request auto listen")
	}

	// The question is re-asked with a hint
	if reply.Message == "" || reply.Message == "What is your email?" {
		t.Errorf("Expected a rejection hint before the re-asked question, got %q", reply.Message)
	}
}

func TestMaxRetriesEmittedExactlyOnce(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	session := newTestSession()

	engine.Advance(session, "John")

	var codes []string
	for i := 0; i < MaxFieldRetries+1; i++ {
		reply := engine.Advance(session, "still not an email")
		codes = append(codes, reply.ValidationError)
	}

	emitted := 0
	for _, code := range codes {
		if code == ValidationErrMaxRetries {
			emitted++
		}
	}

	if emitted != 1 {
		t.Errorf("Expected %s exactly once, got %d occurrences in %v", ValidationErrMaxRetries, emitted, codes)
	}

	if codes[MaxFieldRetries-1] != ValidationErrMaxRetries {
		t.Errorf("Expected the code on rejection %d, got %v", MaxFieldRetries, codes)
	}

	// A later valid answer still moves the conversation forward
	reply := engine.Advance(session, "john@example.com")
	if reply.ValidationError != "" {
		t.Errorf("Valid answer after retries should be accepted, got %q", reply.ValidationError)
	}
	if session.CurrentStep != 2 {
		t.Errorf("Expected step 2 after recovery, got %d", session.CurrentStep)
	}
}

func TestCompleteSessionIsNeverMutated(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	session := newTestSession()

	for _, answer := range []string{"John", "john@example.com", "5551234567", "a demo"} {
		engine.Advance(session, answer)
	}

	step := session.CurrentStep
	messages := len(session.Messages)

	reply := engine.Advance(session, "anything else")

	if !reply.IsComplete {
		t.Error("Reply after completion should still report complete")
	}

	if session.CurrentStep != step {
		t.Errorf("Step changed after completion: %d -> %d", step, session.CurrentStep)
	}

	if len(session.Messages) != messages {
		t.Errorf("History grew after completion: %d -> %d", messages, len(session.Messages))
	}
}

func TestValidAnswer(t *testing.T) {
	tests := []struct {
		kind   FieldKind
		answer string
		want   bool
	}{
		{FieldKindText, "John", true},
		{FieldKindText, "   ", false},
		{FieldKindEmail, "john@example.com", true},
		{FieldKindEmail, "john@example", false},
		{FieldKindEmail, "not an email", false},
		{FieldKindEmail, "a@b.co", true},
		{FieldKindPhone, "+1 (555) 123-4567", true},
		{FieldKindPhone, "5551234567", true},
		{FieldKindPhone, "12345", false},
		{FieldKindPhone, "call me maybe", false},
	}

	for _, tt := range tests {
		if got := validAnswer(tt.kind, tt.answer); got != tt.want {
			t.Errorf("validAnswer(%v, %q) = %v, want %v", tt.kind, tt.answer, got, tt.want)
		}
	}
}
