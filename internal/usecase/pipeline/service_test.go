package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
	"github.com/kailas-cloud/newsflow/internal/retry"
	"github.com/kailas-cloud/newsflow/internal/usecase/dedup"
	"github.com/kailas-cloud/newsflow/internal/usecase/relevance"
)

type mockEmbedder struct {
	fn    func(ctx context.Context) ([]float32, error)
	calls int
}

func (m *mockEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.fn != nil {
		vec, err := m.fn(ctx)
		return domain.EmbeddingResult{Embedding: vec}, err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

type mockClassifier struct {
	match relevance.Match
	err   error
	calls int
}

func (m *mockClassifier) Classify(_ []float32) (relevance.Match, error) {
	m.calls++
	return m.match, m.err
}

type mockDeduper struct {
	result dedup.Result
	err    error
	calls  int
}

func (m *mockDeduper) CheckAndRecord(_ context.Context, _ domain.Article, _ []float32) (dedup.Result, error) {
	m.calls++
	return m.result, m.err
}

type mockSummarizer struct {
	err   error
	calls int
}

func (m *mockSummarizer) Summarize(_ context.Context, art domain.Article, topic string, score float64) (domain.Summary, error) {
	m.calls++
	if m.err != nil {
		return domain.Summary{}, m.err
	}
	return domain.NewSummary(art.Fingerprint(), "summary text", topic, score, 0.9, "trace", time.Now())
}

type mockSummaryStore struct {
	err    error
	calls  int
	stored map[string]bool
}

func (m *mockSummaryStore) Insert(_ context.Context, sum domain.Summary) (bool, error) {
	m.calls++
	if m.err != nil {
		return true, m.err
	}
	if m.stored == nil {
		m.stored = map[string]bool{}
	}
	m.stored[sum.ArticleID()] = true
	return true, nil
}

func (m *mockSummaryStore) Has(_ context.Context, articleID string) (bool, error) {
	return m.stored[articleID], nil
}

type mockRequeuer struct {
	mu    sync.Mutex
	calls int
}

func (m *mockRequeuer) Push(_ context.Context, _ domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return nil
}

func (m *mockRequeuer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockRecorder struct {
	mu     sync.Mutex
	events []domain.StageEvent
}

func (m *mockRecorder) Record(ev domain.StageEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockRecorder) byStage(stage domain.Stage) []domain.EventStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EventStatus
	for _, ev := range m.events {
		if ev.Stage == stage {
			out = append(out, ev.Status)
		}
	}
	return out
}

type deps struct {
	embedder   *mockEmbedder
	classifier *mockClassifier
	deduper    *mockDeduper
	summarizer *mockSummarizer
	summaries  *mockSummaryStore
	requeue    *mockRequeuer
	recorder   *mockRecorder
}

func newDeps() *deps {
	return &deps{
		embedder:   &mockEmbedder{},
		classifier: &mockClassifier{match: relevance.Match{Accepted: true, Topic: "ai", Score: 0.9}},
		deduper:    &mockDeduper{},
		summarizer: &mockSummarizer{},
		summaries:  &mockSummaryStore{},
		requeue:    &mockRequeuer{},
		recorder:   &mockRecorder{},
	}
}

func (d *deps) service(timeout time.Duration) *Service {
	return New(Config{
		Embedder:   d.embedder,
		Classifier: d.classifier,
		Deduper:    d.deduper,
		Summarizer: d.summarizer,
		Summaries:  d.summaries,
		Requeue:    d.requeue,
		Recorder:   d.recorder,
		Timeout:    timeout,
		Policy:     retry.Policy{MaxAttempts: 2, BaseDelay: 0, Retryable: domain.IsTransient},
		Logger:     zap.NewNop(),
	})
}

func pipelineArticle(t *testing.T, url string) domain.Article {
	t.Helper()
	art, err := domain.NewArticle(
		"Title", "Body.", "src", url,
		time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), time.Now(),
	)
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}
	return art
}

func TestProcess_Summarized(t *testing.T) {
	d := newDeps()
	svc := d.service(time.Minute)

	out := svc.Process(context.Background(), pipelineArticle(t, "https://e.com/1"))
	if out.Status != domain.OutcomeSummarized {
		t.Fatalf("expected summarized, got %s (err %v)", out.Status, out.Err)
	}
	if out.Summary == nil || out.Summary.Text() != "summary text" {
		t.Fatal("outcome must carry the summary")
	}
	if out.Summary.Topic() != "ai" || out.Summary.Score() != 0.9 {
		t.Error("relevance decision must flow onto the summary")
	}
	if d.summaries.calls != 1 {
		t.Errorf("expected one persist call, got %d", d.summaries.calls)
	}
	if out.RunID == "" {
		t.Error("outcome must carry a run id")
	}

	// every stage started and succeeded
	for _, st := range domain.Stages {
		got := d.recorder.byStage(st)
		if len(got) != 2 || got[0] != domain.EventStarted || got[1] != domain.EventSucceeded {
			t.Errorf("stage %s events = %v", st, got)
		}
	}
}

func TestProcess_RejectedShortCircuits(t *testing.T) {
	d := newDeps()
	d.classifier.match = relevance.Match{}
	svc := d.service(time.Minute)

	out := svc.Process(context.Background(), pipelineArticle(t, "https://e.com/1"))
	if out.Status != domain.OutcomeRejected {
		t.Fatalf("expected rejected, got %s", out.Status)
	}
	if d.deduper.calls != 0 || d.summarizer.calls != 0 || d.summaries.calls != 0 {
		t.Error("rejected article must not reach later stages")
	}

	for _, st := range []domain.Stage{domain.StageDedup, domain.StageSummarize, domain.StagePersist} {
		got := d.recorder.byStage(st)
		if len(got) != 1 || got[0] != domain.EventSkipped {
			t.Errorf("stage %s events = %v, want skipped only", st, got)
		}
	}
}

func TestProcess_DuplicateShortCircuits(t *testing.T) {
	d := newDeps()
	d.deduper.result = dedup.Result{IsDuplicate: true, MatchedFingerprint: "earlier"}
	svc := d.service(time.Minute)

	out := svc.Process(context.Background(), pipelineArticle(t, "https://e.com/1"))
	if out.Status != domain.OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", out.Status)
	}
	if d.summarizer.calls != 0 {
		t.Error("duplicate article must not be summarized")
	}
}

func TestProcess_TransientFailureRequeues(t *testing.T) {
	d := newDeps()
	d.embedder.fn = func(context.Context) ([]float32, error) {
		return nil, domain.ErrEmbeddingUnavailable
	}
	svc := d.service(time.Minute)

	out := svc.Process(context.Background(), pipelineArticle(t, "https://e.com/1"))
	if out.Status != domain.OutcomeFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if !errors.Is(out.Err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("unexpected error %v", out.Err)
	}
	if d.requeue.count() != 1 {
		t.Errorf("transient failure must requeue once, got %d", d.requeue.count())
	}
	// retry policy gives the embed call its attempt budget
	if d.embedder.calls != 2 {
		t.Errorf("expected 2 embed attempts, got %d", d.embedder.calls)
	}
}

func TestProcess_TimeoutOutcome(t *testing.T) {
	d := newDeps()
	d.embedder.fn = func(ctx context.Context) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	svc := d.service(20 * time.Millisecond)

	out := svc.Process(context.Background(), pipelineArticle(t, "https://e.com/1"))
	if out.Status != domain.OutcomeTimeout {
		t.Fatalf("expected timeout, got %s", out.Status)
	}
	if !errors.Is(out.Err, domain.ErrArticleTimeout) {
		t.Fatalf("expected ErrArticleTimeout, got %v", out.Err)
	}
	if d.requeue.count() != 1 {
		t.Errorf("timed-out article must be requeued, got %d", d.requeue.count())
	}
}

func TestProcess_ConfigurationErrorNotRequeued(t *testing.T) {
	d := newDeps()
	d.classifier.err = domain.ErrDimensionMismatch
	svc := d.service(time.Minute)

	out := svc.Process(context.Background(), pipelineArticle(t, "https://e.com/1"))
	if out.Status != domain.OutcomeFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if !domain.IsConfiguration(out.Err) {
		t.Fatalf("expected a configuration error, got %v", out.Err)
	}
	if d.requeue.count() != 0 {
		t.Error("configuration errors must not requeue")
	}
}

// memDedupRepo is an in-memory Repository for exercising the real dedup
// decision through the orchestrator.
type memDedupRepo struct {
	records map[string]domain.DedupRecord
	recent  []domain.DedupRecord
}

func (m *memDedupRepo) Get(_ context.Context, fp string) (domain.DedupRecord, bool, error) {
	rec, ok := m.records[fp]
	return rec, ok, nil
}

func (m *memDedupRepo) Insert(_ context.Context, rec domain.DedupRecord) (bool, error) {
	if m.records == nil {
		m.records = map[string]domain.DedupRecord{}
	}
	if _, ok := m.records[rec.Fingerprint()]; ok {
		return false, nil
	}
	m.records[rec.Fingerprint()] = rec
	m.recent = append(m.recent, rec)
	return true, nil
}

func (m *memDedupRepo) Recent(_ context.Context) ([]domain.DedupRecord, error) {
	return m.recent, nil
}

func TestProcess_RequeuedArticleResumesInsteadOfDuplicate(t *testing.T) {
	d := newDeps()
	svc := New(Config{
		Embedder:   d.embedder,
		Classifier: d.classifier,
		Deduper:    dedup.New(&memDedupRepo{}, d.summaries, 0.95),
		Summarizer: d.summarizer,
		Summaries:  d.summaries,
		Requeue:    d.requeue,
		Recorder:   d.recorder,
		Timeout:    time.Minute,
		Policy:     retry.Policy{MaxAttempts: 2, BaseDelay: 0, Retryable: domain.IsTransient},
		Logger:     zap.NewNop(),
	})
	art := pipelineArticle(t, "https://e.com/1")

	// first pass claims the fingerprint, then dies at summarization
	d.summarizer.err = domain.ErrSummarizationFailed
	out := svc.Process(context.Background(), art)
	if out.Status != domain.OutcomeFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if d.requeue.count() != 1 {
		t.Fatalf("failed summarization must requeue, got %d", d.requeue.count())
	}
	if d.summaries.calls != 0 {
		t.Fatalf("no summary may be persisted on the failed pass, got %d", d.summaries.calls)
	}

	// the requeued article's second pass must not match its own claim
	d.summarizer.err = nil
	out = svc.Process(context.Background(), art)
	if out.Status != domain.OutcomeSummarized {
		t.Fatalf("expected summarized on the second pass, got %s (err %v)", out.Status, out.Err)
	}
	if d.summaries.calls != 1 {
		t.Errorf("expected the summary persisted once, got %d", d.summaries.calls)
	}

	// with the summary stored, a further repeat is a true duplicate
	out = svc.Process(context.Background(), art)
	if out.Status != domain.OutcomeDuplicate {
		t.Fatalf("expected duplicate after completion, got %s", out.Status)
	}
	if d.summaries.calls != 1 {
		t.Errorf("duplicate must not persist again, got %d", d.summaries.calls)
	}
}

func TestProcess_SummarizationFailureRequeues(t *testing.T) {
	d := newDeps()
	d.summarizer.err = domain.ErrSummarizationFailed
	svc := d.service(time.Minute)

	out := svc.Process(context.Background(), pipelineArticle(t, "https://e.com/1"))
	if out.Status != domain.OutcomeFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if d.requeue.count() != 1 {
		t.Errorf("failed summarization must requeue, got %d", d.requeue.count())
	}
}
