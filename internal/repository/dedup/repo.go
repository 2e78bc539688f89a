package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/newsflow/internal/db"
	"github.com/kailas-cloud/newsflow/internal/domain"
)

var (
	recordKeyPrefix = domain.KeyPrefix + "dedup:"
	recentKey       = domain.KeyPrefix + "dedup:recent"
)

// store is the consumer interface for dedup persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
}

// Repo persists DedupRecords: one write-once key per fingerprint plus a
// bounded recent window used for near-duplicate scans. Store failures are
// reported as ErrDedupStoreUnavailable so the caller requeues instead of
// risking a duplicate summary.
type Repo struct {
	store  store
	window int
}

// New creates a dedup repository keeping the last window records for
// near-duplicate scans.
func New(s store, window int) *Repo {
	if window <= 0 {
		window = 512
	}
	return &Repo{store: s, window: window}
}

// Get returns the record for a fingerprint, reporting whether it exists.
func (r *Repo) Get(ctx context.Context, fingerprint string) (domain.DedupRecord, bool, error) {
	raw, err := r.store.Get(ctx, recordKeyPrefix+fingerprint)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.DedupRecord{}, false, nil
		}
		return domain.DedupRecord{}, false, fmt.Errorf("get %s: %w: %w", fingerprint, domain.ErrDedupStoreUnavailable, err)
	}

	rec, err := unmarshalRecord(raw)
	if err != nil {
		return domain.DedupRecord{}, false, fmt.Errorf("parse record %s: %w", fingerprint, err)
	}
	return rec, true, nil
}

// Insert writes a record if its fingerprint was never seen. Returns true when
// this call created the record; false means a concurrent writer won the SET NX
// race. Only the winner's record enters the recent window. inserted=true is
// authoritative even when an error is returned alongside it: the claim
// committed and only the recent-window update failed.
func (r *Repo) Insert(ctx context.Context, rec domain.DedupRecord) (bool, error) {
	data, err := marshalRecord(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	inserted, err := r.store.SetNX(ctx, recordKeyPrefix+rec.Fingerprint(), data)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w: %w", rec.Fingerprint(), domain.ErrDedupStoreUnavailable, err)
	}
	if !inserted {
		return false, nil
	}

	if err := r.store.RPush(ctx, recentKey, data); err != nil {
		return true, fmt.Errorf("push recent: %w", err)
	}
	if err := r.store.LTrim(ctx, recentKey, int64(-r.window), -1); err != nil {
		return true, fmt.Errorf("trim recent: %w", err)
	}
	return true, nil
}

// Recent returns the bounded window of most recently inserted records.
func (r *Repo) Recent(ctx context.Context) ([]domain.DedupRecord, error) {
	items, err := r.store.LRange(ctx, recentKey, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("recent: %w: %w", domain.ErrDedupStoreUnavailable, err)
	}

	records := make([]domain.DedupRecord, 0, len(items))
	for _, raw := range items {
		rec, err := unmarshalRecord(raw)
		if err != nil {
			// skip unreadable entries rather than blocking the whole scan
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

type recordDTO struct {
	Fingerprint string    `json:"fingerprint"`
	Vector      []float32 `json:"vector"`
	FirstSeen   int64     `json:"first_seen_unix"`
}

func marshalRecord(rec domain.DedupRecord) ([]byte, error) {
	return json.Marshal(recordDTO{
		Fingerprint: rec.Fingerprint(),
		Vector:      rec.Vector(),
		FirstSeen:   rec.FirstSeen().Unix(),
	})
}

func unmarshalRecord(raw []byte) (domain.DedupRecord, error) {
	var dto recordDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return domain.DedupRecord{}, err
	}
	return domain.ReconstructDedupRecord(dto.Fingerprint, dto.Vector, time.Unix(dto.FirstSeen, 0).UTC()), nil
}
