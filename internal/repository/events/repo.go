// Package events persists per-article stage event logs. Each article gets a
// bounded append-only list so the read API can show how an article moved
// through the pipeline without growing storage without limit.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "events:"

type store interface {
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
}

// Repo stores stage events keyed by article fingerprint.
type Repo struct {
	store     store
	retention int
}

// New creates an event repository. retention bounds how many events are kept
// per article, oldest dropped first.
func New(s store, retention int) *Repo {
	if retention <= 0 {
		retention = 256
	}
	return &Repo{store: s, retention: retention}
}

// Append records a batch of events for one article. All events in the batch
// must share the same article id.
func (r *Repo) Append(ctx context.Context, articleID string, events []domain.StageEvent) error {
	if len(events) == 0 {
		return nil
	}
	raws := make([][]byte, 0, len(events))
	for _, ev := range events {
		raw, err := json.Marshal(eventDTO{
			RunID:  ev.RunID,
			Stage:  string(ev.Stage),
			Status: string(ev.Status),
			At:     ev.At.UnixMilli(),
			Detail: ev.Detail,
		})
		if err != nil {
			return fmt.Errorf("marshal stage event: %w", err)
		}
		raws = append(raws, raw)
	}
	key := keyPrefix + articleID
	if err := r.store.RPush(ctx, key, raws...); err != nil {
		return fmt.Errorf("append stage events: %w", err)
	}
	if err := r.store.LTrim(ctx, key, int64(-r.retention), -1); err != nil {
		return fmt.Errorf("trim stage events: %w", err)
	}
	return nil
}

// List returns the retained events for an article in recorded order.
// Unreadable entries are skipped.
func (r *Repo) List(ctx context.Context, articleID string) ([]domain.StageEvent, error) {
	raws, err := r.store.LRange(ctx, keyPrefix+articleID, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("list stage events: %w", err)
	}
	out := make([]domain.StageEvent, 0, len(raws))
	for _, raw := range raws {
		var dto eventDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			continue
		}
		out = append(out, domain.StageEvent{
			RunID:     dto.RunID,
			ArticleID: articleID,
			Stage:     domain.Stage(dto.Stage),
			Status:    domain.EventStatus(dto.Status),
			At:        time.UnixMilli(dto.At).UTC(),
			Detail:    dto.Detail,
		})
	}
	return out, nil
}

type eventDTO struct {
	RunID  string `json:"run_id"`
	Stage  string `json:"stage"`
	Status string `json:"status"`
	At     int64  `json:"at_ms"`
	Detail string `json:"detail,omitempty"`
}
