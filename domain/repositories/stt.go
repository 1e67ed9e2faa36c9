package repositories

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned by recognition when a listening turn produced
// no recognizable speech
var ErrNoSpeech = errors.New("no speech detected in audio")

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeAudio converts audio data to text
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
	// InitTranscribeStreaming initializes a streaming transcription session
	InitTranscribeStreaming(ctx context.Context, config AudioConfig) (SpeechToTextStreaming, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

type SpeechToTextStreaming interface {
	Stream(data []byte) error
	End() (string, error)
}

// Recognition error codes, mirrored to the widget so it can apply its
// retry and manual-fallback policy.
const (
	RecognitionErrNoSpeech = "no-speech"
	RecognitionErrAborted  = "aborted"
	RecognitionErrOther    = "recognition-failed"
)
