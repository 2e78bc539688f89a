package domain

import (
	"context"
	"time"
)

// KeyPrefix namespaces all store keys written by the pipeline.
const KeyPrefix = "newsflow:"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage through the
// decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Reasoner is the language-reasoning contract. A single call takes an
// instruction prompt plus source material and returns generated text.
type Reasoner interface {
	Reason(ctx context.Context, prompt, material string) (ReasonResult, error)
}

// ReasonResult carries generated text and token usage.
type ReasonResult struct {
	Text        string
	TotalTokens int
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Source yields articles published (or indexed) since the given time.
// It may return fewer than available and must be safe to call with
// overlapping windows; the deduplicator absorbs the overlap.
type Source interface {
	Fetch(ctx context.Context, since time.Time) ([]Article, error)
}
