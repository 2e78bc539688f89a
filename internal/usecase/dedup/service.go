// Package dedup suppresses repeated articles: exact repeats by fingerprint
// and near-repeats by embedding similarity over a bounded window of recently
// admitted articles.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
	logpkg "github.com/kailas-cloud/newsflow/internal/logger"
	"github.com/kailas-cloud/newsflow/internal/metrics"
)

// Result reports one dedup decision.
type Result struct {
	IsDuplicate bool
	// MatchedFingerprint identifies the earlier article on a duplicate; empty
	// for unique articles.
	MatchedFingerprint string
	// Score is the similarity to the matched article for near-duplicates.
	Score float64
}

// Service decides whether an article has been seen before and claims its
// fingerprint when it has not.
type Service struct {
	repo      Repository
	summaries SummaryChecker
	threshold float64
}

// New creates a dedup service. threshold is the near-duplicate cosine
// similarity bound.
func New(repo Repository, summaries SummaryChecker, threshold float64) *Service {
	return &Service{repo: repo, summaries: summaries, threshold: threshold}
}

// CheckAndRecord runs the full dedup decision for one article. An exact
// fingerprint hit or a near-duplicate in the recent window is reported
// without writing anything; otherwise the fingerprint is claimed with a
// conditional write, and losing that write to a concurrent worker also counts
// as a duplicate. An exact hit whose summary was never stored is the
// article's own claim from a pass that failed after dedup and was requeued:
// it is not a duplicate and continues so the recorded reasoning trace
// resumes.
func (s *Service) CheckAndRecord(ctx context.Context, art domain.Article, vector []float32) (Result, error) {
	prior, found, err := s.repo.Get(ctx, art.Fingerprint())
	if err != nil {
		return Result{}, fmt.Errorf("dedup lookup: %w", err)
	}
	if found {
		done, err := s.summaries.Has(ctx, art.Fingerprint())
		if err != nil {
			return Result{}, fmt.Errorf("dedup summary check: %w: %w", domain.ErrDedupStoreUnavailable, err)
		}
		if !done {
			metrics.DedupResultsTotal.WithLabelValues("resumed").Inc()
			logpkg.FromContext(ctx).Info("Resuming article claimed by an unfinished pass",
				zap.String("fingerprint", art.Fingerprint()))
			return Result{}, nil
		}
		metrics.DedupResultsTotal.WithLabelValues("exact").Inc()
		return Result{IsDuplicate: true, MatchedFingerprint: prior.Fingerprint()}, nil
	}

	recent, err := s.repo.Recent(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("dedup recent window: %w", err)
	}
	for i := range recent {
		score, err := domain.Cosine(vector, recent[i].Vector())
		if err != nil {
			// A record written under a different embedding model; it cannot
			// match, skip it.
			if errors.Is(err, domain.ErrDimensionMismatch) {
				continue
			}
			return Result{}, fmt.Errorf("dedup similarity: %w", err)
		}
		if score >= s.threshold {
			metrics.DedupResultsTotal.WithLabelValues("near").Inc()
			logpkg.FromContext(ctx).Debug("Near-duplicate article",
				zap.String("fingerprint", art.Fingerprint()),
				zap.String("matched", recent[i].Fingerprint()),
				zap.Float64("score", score))
			return Result{
				IsDuplicate:        true,
				MatchedFingerprint: recent[i].Fingerprint(),
				Score:              score,
			}, nil
		}
	}

	rec, err := domain.NewDedupRecord(art.Fingerprint(), vector, time.Now().UTC())
	if err != nil {
		return Result{}, fmt.Errorf("dedup record: %w", err)
	}
	inserted, err := s.repo.Insert(ctx, rec)
	if err != nil {
		if !inserted {
			return Result{}, fmt.Errorf("dedup insert: %w", err)
		}
		// The claim committed; the recent-window update is best-effort.
		logpkg.FromContext(ctx).Warn("Recent window update failed after claim",
			zap.String("fingerprint", art.Fingerprint()),
			zap.Error(err))
	}
	if !inserted {
		// Another worker claimed the fingerprint between the lookup and the
		// write.
		metrics.DedupResultsTotal.WithLabelValues("race").Inc()
		return Result{IsDuplicate: true, MatchedFingerprint: art.Fingerprint()}, nil
	}

	metrics.DedupResultsTotal.WithLabelValues("unique").Inc()
	return Result{}, nil
}
