package stt

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/voxlead/server/domain/repositories"
)

// MockSpeechToText is a canned-response implementation of
// repositories.SpeechToText for local development and tests
type MockSpeechToText struct {
	mu          sync.Mutex
	logger      *zap.Logger
	transcripts []string
	next        int
}

// NewMockSpeechToText creates a mock STT service that cycles through the
// given transcripts. With no transcripts every turn reports no speech.
func NewMockSpeechToText(logger *zap.Logger, transcripts ...string) *MockSpeechToText {
	return &MockSpeechToText{
		logger:      logger,
		transcripts: transcripts,
	}
}

// InitTranscribeStreaming creates a new mock streaming session
func (s *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s.logger.Info("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	return &mockStream{parent: s}, nil
}

// TranscribeAudio implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", repositories.ErrNoSpeech
	}
	return s.takeTranscript()
}

func (s *MockSpeechToText) takeTranscript() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.transcripts) == 0 {
		return "", repositories.ErrNoSpeech
	}

	transcript := s.transcripts[s.next%len(s.transcripts)]
	s.next++
	return transcript, nil
}

type mockStream struct {
	parent        *MockSpeechToText
	audioReceived bool
}

func (m *mockStream) Stream(data []byte) error {
	if len(data) > 0 {
		m.audioReceived = true
	}
	return nil
}

func (m *mockStream) End() (string, error) {
	if !m.audioReceived {
		return "", repositories.ErrNoSpeech
	}
	return m.parent.takeTranscript()
}
