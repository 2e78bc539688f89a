package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

type mockSource struct {
	mu     sync.Mutex
	pages  [][]domain.Article
	sinces []time.Time
	err    error
}

func (m *mockSource) Fetch(_ context.Context, since time.Time) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinces = append(m.sinces, since)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.pages) == 0 {
		return nil, nil
	}
	page := m.pages[0]
	m.pages = m.pages[1:]
	return page, nil
}

type mockDrainer struct {
	articles []domain.Article
}

func (m *mockDrainer) Drain(_ context.Context, max int) ([]domain.Article, error) {
	if max < len(m.articles) {
		out := m.articles[:max]
		m.articles = m.articles[max:]
		return out, nil
	}
	out := m.articles
	m.articles = nil
	return out, nil
}

func ingestArticle(t *testing.T, url string, publishedAt time.Time) domain.Article {
	t.Helper()
	art, err := domain.NewArticle("Title", "Body.", "src", url, publishedAt, time.Now())
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}
	return art
}

func collect(out chan domain.Article, n int, timeout time.Duration) []domain.Article {
	var got []domain.Article
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case art := <-out:
			got = append(got, art)
		case <-deadline:
			return got
		}
	}
	return got
}

func TestTick_RequeuedBeforeFresh(t *testing.T) {
	pub := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	retried := ingestArticle(t, "https://e.com/retry", pub.Add(-time.Hour))
	fresh := ingestArticle(t, "https://e.com/fresh", pub)

	svc := New(Config{
		Source:  &mockSource{pages: [][]domain.Article{{fresh}}},
		Requeue: &mockDrainer{articles: []domain.Article{retried}},
		Logger:  zap.NewNop(),
	})

	out := make(chan domain.Article, 4)
	svc.tick(context.Background(), out, pub.Add(-2*time.Hour))

	got := collect(out, 2, time.Second)
	if len(got) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(got))
	}
	if got[0].Fingerprint() != retried.Fingerprint() {
		t.Error("requeued articles must be replayed before fresh ones")
	}
	if got[1].Fingerprint() != fresh.Fingerprint() {
		t.Error("fresh article must follow")
	}
}

func TestTick_AdvancesWatermark(t *testing.T) {
	pub := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	src := &mockSource{pages: [][]domain.Article{{
		ingestArticle(t, "https://e.com/1", pub),
		ingestArticle(t, "https://e.com/2", pub.Add(30*time.Minute)),
	}}}
	svc := New(Config{Source: src, Requeue: &mockDrainer{}, Logger: zap.NewNop()})

	out := make(chan domain.Article, 4)
	since := pub.Add(-time.Hour)
	next := svc.tick(context.Background(), out, since)

	if !next.Equal(pub.Add(30 * time.Minute)) {
		t.Errorf("watermark must advance to the newest article, got %v", next)
	}

	// the next tick must ask the source for articles after the watermark
	svc.tick(context.Background(), out, next)
	if len(src.sinces) != 2 || !src.sinces[1].Equal(next) {
		t.Errorf("unexpected since arguments %v", src.sinces)
	}
}

func TestTick_FetchErrorKeepsWatermark(t *testing.T) {
	src := &mockSource{err: errors.New("quota exceeded")}
	svc := New(Config{Source: src, Requeue: &mockDrainer{}, Logger: zap.NewNop()})

	out := make(chan domain.Article, 4)
	since := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	next := svc.tick(context.Background(), out, since)

	if !next.Equal(since) {
		t.Errorf("a failed poll must not move the watermark, got %v", next)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	svc := New(Config{
		Source:   &mockSource{},
		Requeue:  &mockDrainer{},
		Interval: 10 * time.Millisecond,
		Logger:   zap.NewNop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan domain.Article, 4)

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, out) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
