// Package ingest feeds the pipeline with articles: requeued articles first,
// then fresh ones polled from the configured source. The poll watermark
// advances with the newest published article; anything fetched twice across
// overlapping polls is caught by the dedup stage.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

// Source fetches articles published after a point in time.
type Source interface {
	Fetch(ctx context.Context, since time.Time) ([]domain.Article, error)
}

// Drainer takes requeued articles for a retry pass.
type Drainer interface {
	Drain(ctx context.Context, max int) ([]domain.Article, error)
}

// Config holds the polling settings.
type Config struct {
	Source  Source
	Requeue Drainer
	// Interval between polls. Zero means 5m.
	Interval time.Duration
	// Lookback bounds how far back the first poll reaches.
	Lookback time.Duration
	// RequeueBatch caps how many requeued articles one tick replays.
	RequeueBatch int
	Logger       *zap.Logger
}

// Service is the polling ingestion loop.
type Service struct {
	source       Source
	requeue      Drainer
	interval     time.Duration
	lookback     time.Duration
	requeueBatch int
	logger       *zap.Logger
}

// New creates the ingestion scheduler.
func New(cfg Config) *Service {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = time.Hour
	}
	batch := cfg.RequeueBatch
	if batch <= 0 {
		batch = 50
	}
	return &Service{
		source:       cfg.Source,
		requeue:      cfg.Requeue,
		interval:     interval,
		lookback:     lookback,
		requeueBatch: batch,
		logger:       cfg.Logger,
	}
}

// Run polls until ctx is canceled, sending articles to out. The first poll
// happens immediately. Run does not close out.
func (s *Service) Run(ctx context.Context, out chan<- domain.Article) error {
	since := time.Now().UTC().Add(-s.lookback)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		since = s.tick(ctx, out, since)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// tick runs one ingestion round and returns the advanced watermark.
func (s *Service) tick(ctx context.Context, out chan<- domain.Article, since time.Time) time.Time {
	requeued, err := s.requeue.Drain(ctx, s.requeueBatch)
	if err != nil {
		s.logger.Warn("Failed to drain requeue", zap.Error(err))
	}
	for _, art := range requeued {
		if !s.send(ctx, out, art) {
			return since
		}
	}
	if len(requeued) > 0 {
		s.logger.Info("Replayed requeued articles", zap.Int("count", len(requeued)))
	}

	fresh, err := s.source.Fetch(ctx, since)
	if err != nil {
		s.logger.Warn("Failed to fetch articles", zap.Error(err))
		return since
	}

	watermark := since
	for _, art := range fresh {
		if art.PublishedAt().After(watermark) {
			watermark = art.PublishedAt()
		}
		if !s.send(ctx, out, art) {
			return watermark
		}
	}
	if len(fresh) > 0 {
		s.logger.Info("Fetched articles",
			zap.Int("count", len(fresh)),
			zap.Time("watermark", watermark))
	}
	return watermark
}

func (s *Service) send(ctx context.Context, out chan<- domain.Article, art domain.Article) bool {
	select {
	case out <- art:
		return true
	case <-ctx.Done():
		return false
	}
}
