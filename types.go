package newsflow

import (
	"time"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

// Summary is a finalized article summary as stored by the pipeline.
type Summary struct {
	ArticleID  string
	Text       string
	Topic      string
	Score      float64
	Confidence float64
	TraceRef   string
	ProducedAt time.Time
}

// StageEvent is one recorded pipeline stage transition for an article.
type StageEvent struct {
	RunID  string
	Stage  string
	Status string
	At     time.Time
	Detail string
}

func summaryFromDomain(s *domain.Summary) Summary {
	return Summary{
		ArticleID:  s.ArticleID(),
		Text:       s.Text(),
		Topic:      s.Topic(),
		Score:      s.Score(),
		Confidence: s.Confidence(),
		TraceRef:   s.TraceRef(),
		ProducedAt: s.ProducedAt(),
	}
}

func stageEventFromDomain(ev domain.StageEvent) StageEvent {
	return StageEvent{
		RunID:  ev.RunID,
		Stage:  string(ev.Stage),
		Status: string(ev.Status),
		At:     ev.At,
		Detail: ev.Detail,
	}
}
