package repositories

import (
	"context"

	"github.com/voxlead/server/domain/entities"
)

// LeadSummarizer produces a short natural-language summary of a captured
// lead for the sales team
type LeadSummarizer interface {
	Summarize(ctx context.Context, lead *entities.Lead) (string, error)
}
