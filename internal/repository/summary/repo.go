// Package summary persists finalized article summaries. Writes are
// conditional so a summary is recorded exactly once per article; a bounded
// recent-IDs list backs the read API's listing endpoint.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/newsflow/internal/db"
	"github.com/kailas-cloud/newsflow/internal/domain"
)

const (
	keyPrefix = domain.KeyPrefix + "summary:"
	recentKey = domain.KeyPrefix + "summary:recent"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
}

// Repo stores summaries keyed by article fingerprint.
type Repo struct {
	store  store
	window int
}

// New creates a summary repository. window bounds the recent-IDs list used by
// the listing endpoint.
func New(s store, window int) *Repo {
	if window <= 0 {
		window = 256
	}
	return &Repo{store: s, window: window}
}

// Insert writes the summary if no summary exists for the article yet. It
// reports whether this call performed the write.
func (r *Repo) Insert(ctx context.Context, sum domain.Summary) (bool, error) {
	raw, err := marshalSummary(sum)
	if err != nil {
		return false, err
	}
	inserted, err := r.store.SetNX(ctx, keyPrefix+sum.ArticleID(), raw)
	if err != nil {
		return false, fmt.Errorf("insert summary: %w", err)
	}
	if !inserted {
		return false, nil
	}
	if err := r.store.RPush(ctx, recentKey, []byte(sum.ArticleID())); err != nil {
		return true, fmt.Errorf("record recent summary: %w", err)
	}
	if err := r.store.LTrim(ctx, recentKey, int64(-r.window), -1); err != nil {
		return true, fmt.Errorf("trim recent summaries: %w", err)
	}
	return true, nil
}

// Has reports whether a summary was already recorded for an article, without
// loading it.
func (r *Repo) Has(ctx context.Context, articleID string) (bool, error) {
	ok, err := r.store.Exists(ctx, keyPrefix+articleID)
	if err != nil {
		return false, fmt.Errorf("summary exists: %w", err)
	}
	return ok, nil
}

// Get loads the summary for an article.
func (r *Repo) Get(ctx context.Context, articleID string) (domain.Summary, error) {
	raw, err := r.store.Get(ctx, keyPrefix+articleID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Summary{}, domain.ErrSummaryNotFound
		}
		return domain.Summary{}, fmt.Errorf("get summary: %w", err)
	}
	return unmarshalSummary(raw)
}

// List loads the most recently produced summaries, newest last. Entries whose
// summary record has expired or cannot be read are skipped.
func (r *Repo) List(ctx context.Context) ([]domain.Summary, error) {
	ids, err := r.store.LRange(ctx, recentKey, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("list recent summaries: %w", err)
	}
	out := make([]domain.Summary, 0, len(ids))
	for _, id := range ids {
		sum, err := r.Get(ctx, string(id))
		if err != nil {
			continue
		}
		out = append(out, sum)
	}
	return out, nil
}

type summaryDTO struct {
	ArticleID  string  `json:"article_id"`
	Text       string  `json:"text"`
	Topic      string  `json:"topic"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	TraceRef   string  `json:"trace_ref"`
	ProducedAt int64   `json:"produced_at_unix"`
}

func marshalSummary(sum domain.Summary) ([]byte, error) {
	dto := summaryDTO{
		ArticleID:  sum.ArticleID(),
		Text:       sum.Text(),
		Topic:      sum.Topic(),
		Score:      sum.Score(),
		Confidence: sum.Confidence(),
		TraceRef:   sum.TraceRef(),
		ProducedAt: sum.ProducedAt().Unix(),
	}
	raw, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return raw, nil
}

func unmarshalSummary(raw []byte) (domain.Summary, error) {
	var dto summaryDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return domain.Summary{}, fmt.Errorf("unmarshal summary: %w", err)
	}
	return domain.ReconstructSummary(
		dto.ArticleID,
		dto.Text,
		dto.Topic,
		dto.Score,
		dto.Confidence,
		dto.TraceRef,
		time.Unix(dto.ProducedAt, 0).UTC(),
	), nil
}
