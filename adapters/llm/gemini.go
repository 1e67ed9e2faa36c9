package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/voxlead/server/domain/entities"
	"github.com/voxlead/server/domain/repositories"
)

const (
	defaultModel           = "gemini-2.0-flash"
	defaultTimeoutSeconds  = 15
	defaultMaxOutputTokens = 256

	summaryPrompt = "Write a two-sentence summary of this sales lead for the " +
		"sales team. Mention the person's name and what they are interested " +
		"in. Do not invent details.\n\nName: %s\nEmail: %s\nPhone: %s\nInterest: %s"
)

// GeminiSummarizer implements repositories.LeadSummarizer using Google's
// Gemini API
type GeminiSummarizer struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

var _ repositories.LeadSummarizer = (*GeminiSummarizer)(nil)

// NewGeminiSummarizer creates a new Gemini lead summarizer
func NewGeminiSummarizer(logger *zap.Logger) (*GeminiSummarizer, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &GeminiSummarizer{
		client: client,
		logger: logger,
		model:  model,
	}, nil
}

// Summarize produces a short natural-language summary of a captured lead
func (g *GeminiSummarizer) Summarize(ctx context.Context, lead *entities.Lead) (string, error) {
	prompt := fmt.Sprintf(summaryPrompt, lead.Name, lead.Email, lead.Phone, lead.Interest)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: defaultMaxOutputTokens,
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeoutSeconds*time.Second)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate lead summary, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < 2 {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate lead summary: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated for lead summary")
	}

	var summary strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			summary.WriteString(part.Text)
		}
	}

	if summary.Len() == 0 {
		return "", fmt.Errorf("empty lead summary response")
	}

	g.logger.Info("Lead summary generated",
		zap.String("leadID", lead.ID),
		zap.Int("length", summary.Len()))

	return strings.TrimSpace(summary.String()), nil
}
