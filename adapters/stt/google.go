package stt

import (
	"context"
	"fmt"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/voxlead/server/domain/repositories"
)

// GoogleSpeechToText implements repositories.SpeechToText using Google
// Cloud Speech-to-Text
type GoogleSpeechToText struct{}

// NewGoogleSpeechToText creates a Google Cloud STT adapter. Credentials
// come from the usual GOOGLE_APPLICATION_CREDENTIALS environment.
func NewGoogleSpeechToText() *GoogleSpeechToText {
	return &GoogleSpeechToText{}
}

func (g *GoogleSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("unsupported audio encoding: %s", config.Encoding)
	}

	language := config.Language
	if language == "" {
		language = "en-US"
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:        encoding,
		SampleRateHertz: int32(config.SampleRate),
		LanguageCode:    language,
	}

	// One answer per listening turn, so single-utterance final results only
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:          recognitionConfig,
				InterimResults:  false,
				SingleUtterance: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	return &googleStream{
		client:     client,
		stream:     stream,
		ctx:        ctx,
		resultChan: make(chan string, 1),
		errorChan:  make(chan error, 1),
	}, nil
}

// TranscribeAudio converts audio data to text in one shot
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	stream, err := g.InitTranscribeStreaming(ctx, config)
	if err != nil {
		return "", fmt.Errorf("failed to initialize streaming: %w", err)
	}

	if err := stream.Stream(audioData); err != nil {
		return "", fmt.Errorf("failed to stream audio data: %w", err)
	}

	return stream.End()
}

type googleStream struct {
	client         *speech.Client
	stream         speechpb.Speech_StreamingRecognizeClient
	ctx            context.Context
	audioReceived  bool
	receiverActive bool
	resultChan     chan string
	errorChan      chan error
}

func (g *googleStream) Stream(data []byte) error {
	if !g.receiverActive {
		g.receiverActive = true
		go g.receiveResults()
	}

	if len(data) == 0 {
		return nil
	}
	g.audioReceived = true

	if err := g.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}

	return nil
}

func (g *googleStream) End() (string, error) {
	defer g.client.Close()

	if !g.audioReceived {
		return "", repositories.ErrNoSpeech
	}

	if err := g.stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}

	select {
	case <-g.ctx.Done():
		return "", fmt.Errorf("context cancelled while waiting for result: %w", g.ctx.Err())
	case err := <-g.errorChan:
		return "", err
	case result := <-g.resultChan:
		if result == "" {
			return "", repositories.ErrNoSpeech
		}
		return result, nil
	}
}

func (g *googleStream) receiveResults() {
	var finalTranscription string

	for {
		resp, err := g.stream.Recv()
		if err == io.EOF {
			g.resultChan <- finalTranscription
			return
		}
		if err != nil {
			g.errorChan <- fmt.Errorf("failed to receive response: %w", err)
			return
		}

		for _, result := range resp.GetResults() {
			if result.IsFinal && len(result.Alternatives) > 0 {
				finalTranscription = result.Alternatives[0].Transcript
			}
		}
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
