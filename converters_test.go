package newsflow

import (
	"testing"
	"time"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

func TestSummaryFromDomain_CopiesAllFields(t *testing.T) {
	producedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	sum := domain.ReconstructSummary(
		"art-1", "summary text", "ai-research",
		0.82, 0.9,
		"newsflow:trace:art-1", producedAt,
	)

	got := summaryFromDomain(&sum)

	if got.ArticleID != "art-1" {
		t.Errorf("ArticleID = %q, want art-1", got.ArticleID)
	}
	if got.Text != "summary text" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Topic != "ai-research" {
		t.Errorf("Topic = %q", got.Topic)
	}
	if got.Score != 0.82 || got.Confidence != 0.9 {
		t.Errorf("Score/Confidence = %v/%v", got.Score, got.Confidence)
	}
	if got.TraceRef != "newsflow:trace:art-1" {
		t.Errorf("TraceRef = %q", got.TraceRef)
	}
	if !got.ProducedAt.Equal(producedAt) {
		t.Errorf("ProducedAt = %v", got.ProducedAt)
	}
}

func TestStageEventFromDomain_CopiesAllFields(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	got := stageEventFromDomain(domain.StageEvent{
		RunID:     "run-1",
		ArticleID: "art-1",
		Stage:     domain.StageEmbed,
		Status:    domain.EventSucceeded,
		At:        at,
		Detail:    "cached",
	})

	if got.RunID != "run-1" {
		t.Errorf("RunID = %q", got.RunID)
	}
	if got.Stage != string(domain.StageEmbed) {
		t.Errorf("Stage = %q", got.Stage)
	}
	if got.Status != string(domain.EventSucceeded) {
		t.Errorf("Status = %q", got.Status)
	}
	if !got.At.Equal(at) || got.Detail != "cached" {
		t.Errorf("At/Detail = %v/%q", got.At, got.Detail)
	}
}

func TestOptions_Apply(t *testing.T) {
	cfg := &clientConfig{}
	WithRedis("localhost:6379", "secret").apply(cfg)

	if len(cfg.addrs) != 1 || cfg.addrs[0] != "localhost:6379" {
		t.Errorf("addrs = %v", cfg.addrs)
	}
	if cfg.password != "secret" {
		t.Errorf("password = %q", cfg.password)
	}

	cluster := &clientConfig{}
	WithRedisCluster([]string{"n1:6379", "n2:6379"}, "").apply(cluster)
	if len(cluster.addrs) != 2 {
		t.Errorf("cluster addrs = %v", cluster.addrs)
	}
}
