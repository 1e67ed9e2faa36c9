package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/voxlead/server/domain/entities"
	"github.com/voxlead/server/domain/repositories"
)

// MockTextToSpeech is a no-network implementation of
// repositories.TextToSpeech for local development and tests
type MockTextToSpeech struct {
	logger *zap.Logger
	voices []entities.Voice
}

var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

// NewMockTextToSpeech creates a mock TTS engine with a small fixed voice
// catalog
func NewMockTextToSpeech(logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{
		logger: logger,
		voices: []entities.Voice{
			{ID: "mock-f-en", Name: "Mock Female", Gender: "female", Locale: "en-US"},
			{ID: "mock-m-en", Name: "Mock Male", Gender: "male", Locale: "en-GB"},
			{ID: "mock-f-id", Name: "Mock Indonesian", Gender: "female", Locale: "id-ID"},
		},
	}
}

// Synthesize returns the text itself as a single pseudo-audio chunk
func (m *MockTextToSpeech) Synthesize(ctx context.Context, text string, profile entities.VoiceProfile) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	m.logger.Info("Mock synthesis",
		zap.String("agent", profile.Name),
		zap.Int("textLength", len(text)))

	out := make(chan []byte, 1)
	out <- []byte(text)
	close(out)
	return out, nil
}

// ListVoices returns the fixed mock catalog
func (m *MockTextToSpeech) ListVoices(ctx context.Context) ([]entities.Voice, error) {
	return m.voices, nil
}
