// Package requeue holds articles whose pipeline pass failed transiently.
// The queue is a plain list; ingestion drains it before fetching new work so
// requeued articles are retried ahead of fresh ones.
package requeue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

const queueKey = domain.KeyPrefix + "requeue"

type store interface {
	RPush(ctx context.Context, key string, values ...[]byte) error
	LPop(ctx context.Context, key string, count int64) ([][]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
}

// Repo is the transient-failure retry queue.
type Repo struct {
	store store
}

// New creates a requeue repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Push enqueues an article for a later retry.
func (r *Repo) Push(ctx context.Context, art domain.Article) error {
	raw, err := json.Marshal(articleDTO{
		Fingerprint: art.Fingerprint(),
		Title:       art.Title(),
		Body:        art.Body(),
		Source:      art.Source(),
		URL:         art.URL(),
		PublishedAt: art.PublishedAt().Unix(),
		RetrievedAt: art.RetrievedAt().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal requeued article: %w", err)
	}
	if err := r.store.RPush(ctx, queueKey, raw); err != nil {
		return fmt.Errorf("push requeued article: %w", err)
	}
	return nil
}

// Drain removes and returns up to max queued articles in enqueue order.
// Entries that cannot be decoded are dropped.
func (r *Repo) Drain(ctx context.Context, max int) ([]domain.Article, error) {
	if max <= 0 {
		return nil, nil
	}
	raws, err := r.store.LPop(ctx, queueKey, int64(max))
	if err != nil {
		return nil, fmt.Errorf("drain requeue: %w", err)
	}
	out := make([]domain.Article, 0, len(raws))
	for _, raw := range raws {
		var dto articleDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			continue
		}
		out = append(out, domain.ReconstructArticle(
			dto.Fingerprint,
			dto.Title,
			dto.Body,
			dto.Source,
			dto.URL,
			time.Unix(dto.PublishedAt, 0).UTC(),
			time.Unix(dto.RetrievedAt, 0).UTC(),
		))
	}
	return out, nil
}

// Len reports how many articles are waiting for a retry.
func (r *Repo) Len(ctx context.Context) (int64, error) {
	n, err := r.store.LLen(ctx, queueKey)
	if err != nil {
		return 0, fmt.Errorf("requeue length: %w", err)
	}
	return n, nil
}

type articleDTO struct {
	Fingerprint string `json:"fingerprint"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt int64  `json:"published_at_unix"`
	RetrievedAt int64  `json:"retrieved_at_unix"`
}
