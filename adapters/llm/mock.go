package llm

import (
	"context"
	"fmt"

	"github.com/voxlead/server/domain/entities"
	"github.com/voxlead/server/domain/repositories"
)

// MockSummarizer is a deterministic implementation of
// repositories.LeadSummarizer for local development and tests
type MockSummarizer struct{}

var _ repositories.LeadSummarizer = (*MockSummarizer)(nil)

// NewMockSummarizer creates a mock lead summarizer
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize builds a template summary from the lead's fields
func (m *MockSummarizer) Summarize(ctx context.Context, lead *entities.Lead) (string, error) {
	return fmt.Sprintf("%s is interested in %s. Reach them at %s or %s.",
		lead.Name, lead.Interest, lead.Email, lead.Phone), nil
}
