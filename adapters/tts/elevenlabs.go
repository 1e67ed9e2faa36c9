package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxlead/server/domain/entities"
	"github.com/voxlead/server/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultChunkSize    = 1024
	defaultOutputFormat = "pcm_24000"
	defaultModelID      = "eleven_multilingual_v2"
	defaultStability    = 0.5
	defaultClarity      = 0.75
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter.
// Only APIKey is required; every other field falls back to a default.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	ChunkSize    int
	Stability    float64
	Clarity      float64
}

// ElevenLabsTTS implements repositories.TextToSpeech using the Eleven
// Labs API. Voice selection is resolved per agent profile against the
// engine's voice catalog, cached after the first fetch.
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	outputFormat string
	chunkSize    int
	stability    float64
	clarity      float64
	logger       *zap.Logger

	mu     sync.Mutex
	voices []entities.Voice
}

var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for the API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the synthesis request payload
type ElevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	VoiceSettings          ElevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	if config.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}

	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
	}

	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
	}

	chunkSize := config.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}

	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
	}

	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
	}

	return &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   apiBaseURL,
		voiceID:      voiceID,
		modelID:      modelID,
		outputFormat: outputFormat,
		chunkSize:    chunkSize,
		stability:    stability,
		clarity:      clarity,
		logger:       logger,
	}, nil
}

// NewElevenLabsConfigFromEnv creates an ElevenLabsConfig from environment
// variables
func NewElevenLabsConfigFromEnv() ElevenLabsConfig {
	config := ElevenLabsConfig{
		APIKey:       os.Getenv("ELEVENLABS_API_KEY"),
		APIBaseURL:   os.Getenv("ELEVENLABS_API_BASE_URL"),
		VoiceID:      os.Getenv("ELEVENLABS_VOICE_ID"),
		ModelID:      os.Getenv("ELEVENLABS_MODEL_ID"),
		OutputFormat: os.Getenv("ELEVENLABS_OUTPUT_FORMAT"),
	}

	if chunkSizeStr := os.Getenv("ELEVENLABS_CHUNK_SIZE"); chunkSizeStr != "" {
		if chunkSize, err := strconv.Atoi(chunkSizeStr); err == nil && chunkSize > 0 {
			config.ChunkSize = chunkSize
		}
	}

	if stabilityStr := os.Getenv("ELEVENLABS_STABILITY"); stabilityStr != "" {
		if stability, err := strconv.ParseFloat(stabilityStr, 64); err == nil && stability >= 0 && stability <= 1 {
			config.Stability = stability
		}
	}

	if clarityStr := os.Getenv("ELEVENLABS_CLARITY"); clarityStr != "" {
		if clarity, err := strconv.ParseFloat(clarityStr, 64); err == nil && clarity >= 0 && clarity <= 1 {
			config.Clarity = clarity
		}
	}

	return config
}

// Synthesize converts text to a streamed audio response for the given
// agent profile
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string, profile entities.VoiceProfile) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceID := e.resolveVoiceID(ctx, profile)

	e.logger.Info("Converting text to speech",
		zap.String("agent", profile.Name),
		zap.String("voiceID", voiceID),
		zap.String("modelID", e.modelID))

	request := ElevenLabsRequest{
		Text:                   text,
		ModelID:                e.modelID,
		ApplyTextNormalization: "auto",
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s&enable_logging=false",
		e.apiBaseURL, voiceID, e.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	// PCM formats require the audio/pcm accept header
	acceptHeader := "audio/mpeg"
	if strings.HasPrefix(e.outputFormat, "pcm") {
		acceptHeader = "audio/pcm"
	}
	httpReq.Header.Set("Accept", acceptHeader)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	client := &http.Client{
		Timeout: 60 * time.Second,
	}

	audioChan := make(chan []byte, 10)

	go func() {
		defer close(audioChan)

		resp, err := client.Do(httpReq)
		if err != nil {
			e.logger.Error("Failed to execute HTTP request", zap.Error(err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errorBody, _ := io.ReadAll(resp.Body)
			e.logger.Error("Eleven Labs API returned error",
				zap.Int("statusCode", resp.StatusCode),
				zap.String("response", string(errorBody)))
			return
		}

		buffer := make([]byte, e.chunkSize)
		for {
			select {
			case <-ctx.Done():
				e.logger.Warn("Context cancelled while streaming audio data")
				return
			default:
				n, err := resp.Body.Read(buffer)
				if n > 0 {
					chunk := make([]byte, n)
					copy(chunk, buffer[:n])

					select {
					case audioChan <- chunk:
					case <-ctx.Done():
						return
					}
				}

				if err == io.EOF {
					return
				}
				if err != nil {
					e.logger.Error("Error reading response body", zap.Error(err))
					return
				}
			}
		}
	}()

	return audioChan, nil
}

// ListVoices returns the voices the engine exposes, fetched once and
// cached for the process lifetime
func (e *ElevenLabsTTS) ListVoices(ctx context.Context) ([]entities.Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.voices != nil {
		return e.voices, nil
	}

	url := fmt.Sprintf("%s/voices", e.apiBaseURL)

	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", e.apiKey)

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned error %d: %s", resp.StatusCode, string(errorBody))
	}

	var voicesResponse struct {
		Voices []struct {
			VoiceID string            `json:"voice_id"`
			Name    string            `json:"name"`
			Labels  map[string]string `json:"labels"`
		} `json:"voices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&voicesResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	voices := make([]entities.Voice, 0, len(voicesResponse.Voices))
	for _, v := range voicesResponse.Voices {
		locale := v.Labels["language"]
		if locale == "" {
			// The voices API labels accents rather than locales; the
			// default catalog is English
			locale = "en"
		}
		voices = append(voices, entities.Voice{
			ID:     v.VoiceID,
			Name:   v.Name,
			Gender: v.Labels["gender"],
			Locale: locale,
		})
	}

	e.voices = voices
	e.logger.Info("Retrieved available voices", zap.Int("count", len(voices)))
	return voices, nil
}

// resolveVoiceID maps an agent profile to an engine voice, falling back
// to the configured default when the catalog is unavailable
func (e *ElevenLabsTTS) resolveVoiceID(ctx context.Context, profile entities.VoiceProfile) string {
	voices, err := e.ListVoices(ctx)
	if err != nil {
		e.logger.Warn("Failed to list voices, using default",
			zap.String("voiceID", e.voiceID),
			zap.Error(err))
		return e.voiceID
	}

	voice, ok := profile.SelectVoice(voices)
	if !ok {
		return e.voiceID
	}
	return voice.ID
}
