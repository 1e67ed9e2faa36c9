package repositories

import (
	"context"

	"github.com/voxlead/server/domain/entities"
)

// TextToSpeech abstracts speech synthesis services
type TextToSpeech interface {
	// Synthesize converts text to an audio stream using the given voice
	// profile. The returned channel is closed when synthesis finishes.
	Synthesize(ctx context.Context, text string, profile entities.VoiceProfile) (<-chan []byte, error)
	// ListVoices returns the voices the engine exposes
	ListVoices(ctx context.Context) ([]entities.Voice, error)
}
