package dedup

import (
	"context"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

// Repository defines the storage contract for dedup records.
type Repository interface {
	Get(ctx context.Context, fingerprint string) (domain.DedupRecord, bool, error)
	Insert(ctx context.Context, rec domain.DedupRecord) (inserted bool, err error)
	Recent(ctx context.Context) ([]domain.DedupRecord, error)
}

// SummaryChecker reports whether an article's summary was already stored.
// The dedup decision needs it to tell a finished article apart from one whose
// earlier pass claimed the fingerprint and then failed.
type SummaryChecker interface {
	Has(ctx context.Context, articleID string) (bool, error)
}
