package summarize

import (
	"context"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

// Reasoner runs one LLM reasoning call.
type Reasoner interface {
	Reason(ctx context.Context, prompt, material string) (domain.ReasonResult, error)
}

// TraceStore persists reasoning steps as they are produced and replays them
// on resume.
type TraceStore interface {
	AppendStep(ctx context.Context, articleID string, step domain.ReasoningStep) error
	Load(ctx context.Context, articleID string) ([]domain.ReasoningStep, error)
	Ref(articleID string) string
}
