// Package pipeline orchestrates one article's pass through the processing
// stages: embed, filter, dedup, summarize, persist. Each pass runs under a
// per-article deadline and emits stage events; transiently failed articles
// are requeued for a later run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
	logpkg "github.com/kailas-cloud/newsflow/internal/logger"
	"github.com/kailas-cloud/newsflow/internal/metrics"
	"github.com/kailas-cloud/newsflow/internal/retry"
)

// Service runs the article pipeline.
type Service struct {
	embedder   Embedder
	classifier Classifier
	deduper    Deduper
	summarizer Summarizer
	summaries  SummaryStore
	requeue    Requeuer
	recorder   EventRecorder
	timeout    time.Duration
	policy     retry.Policy
	logger     *zap.Logger
}

// Config wires the pipeline dependencies.
type Config struct {
	Embedder   Embedder
	Classifier Classifier
	Deduper    Deduper
	Summarizer Summarizer
	Summaries  SummaryStore
	Requeue    Requeuer
	Recorder   EventRecorder
	// Timeout bounds one article's full pass. Zero means 120s.
	Timeout time.Duration
	Policy  retry.Policy
	Logger  *zap.Logger
}

// New creates the pipeline orchestrator.
func New(cfg Config) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	policy := cfg.Policy
	if policy.Retryable == nil {
		policy.Retryable = domain.IsTransient
	}
	return &Service{
		embedder:   cfg.Embedder,
		classifier: cfg.Classifier,
		deduper:    cfg.Deduper,
		summarizer: cfg.Summarizer,
		summaries:  cfg.Summaries,
		requeue:    cfg.Requeue,
		recorder:   cfg.Recorder,
		timeout:    timeout,
		policy:     policy,
		logger:     cfg.Logger,
	}
}

// Process runs one article through every stage and returns its terminal
// outcome. It never returns a partial result: an article ends summarized,
// rejected, duplicate, failed, or timed out.
func (s *Service) Process(ctx context.Context, art domain.Article) domain.Outcome {
	runID := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log := s.logger.With(
		zap.String("run_id", runID),
		zap.String("article_id", art.Fingerprint()),
	)
	// Carry the per-article logger to the stage services.
	ctx = logpkg.ContextWithLogger(ctx, log)

	// embed
	var vector []float32
	err := s.stage(runID, art, domain.StageEmbed, func() error {
		return s.policy.Do(ctx, func() error {
			res, err := s.embedder.Embed(ctx, art.Text())
			if err != nil {
				return err
			}
			vector = res.Embedding
			return nil
		})
	})
	if err != nil {
		return s.fail(ctx, runID, art, domain.StageEmbed, err, log)
	}

	// filter
	var match struct {
		accepted bool
		topic    string
		score    float64
	}
	err = s.stage(runID, art, domain.StageFilter, func() error {
		m, err := s.classifier.Classify(vector)
		if err != nil {
			return err
		}
		match.accepted, match.topic, match.score = m.Accepted, m.Topic, m.Score
		return nil
	})
	if err != nil {
		return s.fail(ctx, runID, art, domain.StageFilter, err, log)
	}
	if !match.accepted {
		s.skipRemaining(runID, art.Fingerprint(), domain.StageFilter)
		metrics.ArticlesTotal.WithLabelValues(string(domain.OutcomeRejected)).Inc()
		log.Debug("Article rejected by relevance filter")
		return domain.Outcome{
			RunID: runID, ArticleID: art.Fingerprint(), Status: domain.OutcomeRejected,
		}
	}

	// dedup
	var dup bool
	err = s.stage(runID, art, domain.StageDedup, func() error {
		return s.policy.Do(ctx, func() error {
			res, err := s.deduper.CheckAndRecord(ctx, art, vector)
			if err != nil {
				return err
			}
			dup = res.IsDuplicate
			return nil
		})
	})
	if err != nil {
		return s.fail(ctx, runID, art, domain.StageDedup, err, log)
	}
	if dup {
		s.skipRemaining(runID, art.Fingerprint(), domain.StageDedup)
		metrics.ArticlesTotal.WithLabelValues(string(domain.OutcomeDuplicate)).Inc()
		log.Debug("Article suppressed as duplicate")
		return domain.Outcome{
			RunID: runID, ArticleID: art.Fingerprint(), Status: domain.OutcomeDuplicate,
		}
	}

	// summarize
	var summary domain.Summary
	err = s.stage(runID, art, domain.StageSummarize, func() error {
		sum, err := s.summarizer.Summarize(ctx, art, match.topic, match.score)
		if err != nil {
			return err
		}
		summary = sum
		return nil
	})
	if err != nil {
		return s.fail(ctx, runID, art, domain.StageSummarize, err, log)
	}

	// persist
	err = s.stage(runID, art, domain.StagePersist, func() error {
		return s.policy.Do(ctx, func() error {
			// inserted=false means another worker already persisted this
			// article's summary; the write is idempotent either way
			_, err := s.summaries.Insert(ctx, summary)
			return err
		})
	})
	if err != nil {
		return s.fail(ctx, runID, art, domain.StagePersist, err, log)
	}

	metrics.ArticlesTotal.WithLabelValues(string(domain.OutcomeSummarized)).Inc()
	log.Info("Article summarized",
		zap.String("topic", summary.Topic()),
		zap.Float64("score", summary.Score()),
		zap.Float64("confidence", summary.Confidence()))
	return domain.Outcome{
		RunID:     runID,
		ArticleID: art.Fingerprint(),
		Status:    domain.OutcomeSummarized,
		Summary:   &summary,
	}
}

// stage wraps one stage with events and metrics.
func (s *Service) stage(runID string, art domain.Article, st domain.Stage, fn func() error) error {
	s.emit(runID, art.Fingerprint(), st, domain.EventStarted, "")

	start := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(string(st)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.StageTotal.WithLabelValues(string(st), string(domain.EventFailed)).Inc()
		s.emit(runID, art.Fingerprint(), st, domain.EventFailed, err.Error())
		return fmt.Errorf("%s stage: %w", st, err)
	}
	metrics.StageTotal.WithLabelValues(string(st), string(domain.EventSucceeded)).Inc()
	s.emit(runID, art.Fingerprint(), st, domain.EventSucceeded, "")
	return nil
}

// fail converts a stage error into the terminal outcome, requeueing the
// article when the failure is worth another run.
func (s *Service) fail(ctx context.Context, runID string, art domain.Article, st domain.Stage, err error, log *zap.Logger) domain.Outcome {
	s.skipRemaining(runID, art.Fingerprint(), st)

	status := domain.OutcomeFailed
	if errors.Is(err, context.DeadlineExceeded) {
		status = domain.OutcomeTimeout
		err = fmt.Errorf("%w: %w", domain.ErrArticleTimeout, err)
	}
	metrics.ArticlesTotal.WithLabelValues(string(status)).Inc()

	if domain.IsRequeueable(err) {
		// the per-article deadline may already be spent; the requeue write
		// must still go through
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if pushErr := s.requeue.Push(pushCtx, art); pushErr != nil {
			log.Error("Failed to requeue article", zap.Error(pushErr))
		} else {
			log.Warn("Article requeued", zap.String("stage", string(st)), zap.Error(err))
		}
	} else {
		log.Error("Article failed", zap.String("stage", string(st)), zap.Error(err))
	}

	return domain.Outcome{RunID: runID, ArticleID: art.Fingerprint(), Status: status, Err: err}
}

// skipRemaining emits skipped events for every stage after the one that ended
// the pass, keeping the per-article event sequence complete.
func (s *Service) skipRemaining(runID, articleID string, after domain.Stage) {
	seen := false
	for _, st := range domain.Stages {
		if st == after {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		metrics.StageTotal.WithLabelValues(string(st), string(domain.EventSkipped)).Inc()
		s.emit(runID, articleID, st, domain.EventSkipped, "")
	}
}

func (s *Service) emit(runID, articleID string, st domain.Stage, status domain.EventStatus, detail string) {
	s.recorder.Record(domain.StageEvent{
		RunID:     runID,
		ArticleID: articleID,
		Stage:     st,
		Status:    status,
		At:        time.Now().UTC(),
		Detail:    detail,
	})
}
