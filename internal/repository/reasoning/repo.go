// Package reasoning persists summarization reasoning traces as append-only
// step lists, one list per article. Steps are written as each state completes
// so an interrupted summarization can resume from the last recorded step.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "trace:"

type store interface {
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
}

// Repo stores reasoning steps keyed by article fingerprint.
type Repo struct {
	store store
}

// New creates a reasoning trace repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// TraceRef returns the stable reference recorded on summaries for an
// article's trace.
func TraceRef(articleID string) string {
	return keyPrefix + articleID
}

// Ref returns the trace reference for an article.
func (r *Repo) Ref(articleID string) string {
	return TraceRef(articleID)
}

// AppendStep durably records one reasoning step.
func (r *Repo) AppendStep(ctx context.Context, articleID string, step domain.ReasoningStep) error {
	raw, err := json.Marshal(stepDTO{
		Index:      step.Index,
		State:      string(step.State),
		Thought:    step.Thought,
		Conclusion: step.Conclusion,
	})
	if err != nil {
		return fmt.Errorf("marshal reasoning step: %w", err)
	}
	if err := r.store.RPush(ctx, keyPrefix+articleID, raw); err != nil {
		return fmt.Errorf("append reasoning step: %w", err)
	}
	return nil
}

// Load returns the recorded steps for an article in order. An article with no
// recorded steps yields an empty slice. Unreadable or out-of-order entries
// mean the trace list was tampered with or partially lost and are reported as
// a corrupted trace.
func (r *Repo) Load(ctx context.Context, articleID string) ([]domain.ReasoningStep, error) {
	raws, err := r.store.LRange(ctx, keyPrefix+articleID, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("load reasoning trace: %w", err)
	}
	steps := make([]domain.ReasoningStep, 0, len(raws))
	for i, raw := range raws {
		var dto stepDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			return nil, fmt.Errorf("decode reasoning step %d: %w", i, domain.ErrTraceCorrupted)
		}
		if dto.Index != i {
			return nil, fmt.Errorf(
				"reasoning step %d recorded with index %d: %w", i, dto.Index, domain.ErrTraceCorrupted,
			)
		}
		steps = append(steps, domain.ReasoningStep{
			Index:      dto.Index,
			State:      domain.ReasoningState(dto.State),
			Thought:    dto.Thought,
			Conclusion: dto.Conclusion,
		})
	}
	return steps, nil
}

type stepDTO struct {
	Index      int    `json:"index"`
	State      string `json:"state"`
	Thought    string `json:"thought"`
	Conclusion string `json:"conclusion"`
}
