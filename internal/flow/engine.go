package flow

import (
	"strings"

	"go.uber.org/zap"

	"github.com/voxlead/server/domain/entities"
)

const (
	// MaxFieldRetries is how many failed validations a field tolerates
	// before the widget is told to fall back to typed input
	MaxFieldRetries = 3

	// ValidationErrMaxRetries is emitted exactly once per field, on the
	// attempt that crosses the retry threshold
	ValidationErrMaxRetries = "max_retries_exceeded"
)

// Reply is the engine's answer to one submitted message
type Reply struct {
	Message          string
	IsComplete       bool
	ValidationError  string
	ShouldAutoListen bool
}

// Engine advances sessions through the static question script. It is
// stateless itself; all mutation happens on the session passed in.
type Engine struct {
	script []Step
	logger *zap.Logger
}

// NewEngine creates a step engine over the standard script
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		script: Script,
		logger: logger,
	}
}

// Greeting returns the prompt that opens a new conversation
func (e *Engine) Greeting() string {
	return e.script[0].Prompt
}

// StepCount returns the number of scripted questions
func (e *Engine) StepCount() int {
	return len(e.script)
}

// Advance validates one answer against the session's current step. On
// success the answer is stored and the session moves forward; on failure
// the retry counter for the field grows and the same question is asked
// again. Sessions that are already complete are never mutated.
func (e *Engine) Advance(session *entities.Session, answer string) Reply {
	if session.IsComplete() {
		return Reply{
			Message:    closingMessage,
			IsComplete: true,
		}
	}

	step := e.script[session.CurrentStep]
	answer = strings.TrimSpace(answer)
	session.AddMessage(entities.MessageRoleUser, answer)

	if !validAnswer(step.Kind, answer) {
		count := session.RecordRetry(step.Field)
		e.logger.Info("Answer rejected",
			zap.String("sessionID", session.ID),
			zap.String("field", step.Field),
			zap.Int("retries", count))

		var reply Reply
		if count == MaxFieldRetries {
			reply = Reply{
				Message:         "I'm having trouble understanding. Please type your answer instead.",
				ValidationError: ValidationErrMaxRetries,
			}
		} else {
			reply = Reply{
				Message:          rejectionMessage(step),
				ShouldAutoListen: true,
			}
		}

		session.AddMessage(entities.MessageRoleAgent, reply.Message)
		return reply
	}

	session.RecordAnswer(step.Field, answer)

	if session.CurrentStep >= len(e.script) {
		session.Complete()
		session.AddMessage(entities.MessageRoleAgent, closingMessage)
		e.logger.Info("Session completed", zap.String("sessionID", session.ID))
		return Reply{
			Message:    closingMessage,
			IsComplete: true,
		}
	}

	next := e.script[session.CurrentStep]
	session.AddMessage(entities.MessageRoleAgent, next.Prompt)

	return Reply{
		Message:          next.Prompt,
		ShouldAutoListen: true,
	}
}

func rejectionMessage(step Step) string {
	switch step.Kind {
	case FieldKindEmail:
		return "That doesn't look like a valid email address. " + step.Prompt
	case FieldKindPhone:
		return "That doesn't look like a valid phone number. " + step.Prompt
	default:
		return "Sorry, I didn't catch that. " + step.Prompt
	}
}
