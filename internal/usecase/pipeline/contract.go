package pipeline

import (
	"context"

	"github.com/kailas-cloud/newsflow/internal/domain"
	"github.com/kailas-cloud/newsflow/internal/usecase/dedup"
	"github.com/kailas-cloud/newsflow/internal/usecase/relevance"
)

// Embedder vectorizes article text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Classifier scores an embedding against the configured topics.
type Classifier interface {
	Classify(vector []float32) (relevance.Match, error)
}

// Deduper decides whether an article was seen before and claims its identity.
type Deduper interface {
	CheckAndRecord(ctx context.Context, art domain.Article, vector []float32) (dedup.Result, error)
}

// Summarizer produces the finalized summary for an admitted article.
type Summarizer interface {
	Summarize(ctx context.Context, art domain.Article, topic string, score float64) (domain.Summary, error)
}

// SummaryStore persists finalized summaries.
type SummaryStore interface {
	Insert(ctx context.Context, sum domain.Summary) (inserted bool, err error)
}

// Requeuer offers a transiently failed article for a later run.
type Requeuer interface {
	Push(ctx context.Context, art domain.Article) error
}

// EventRecorder accepts stage events; implementations must not block.
type EventRecorder interface {
	Record(ev domain.StageEvent)
}
