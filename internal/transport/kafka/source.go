// Package kafka consumes articles from a Kafka topic as an alternative to
// polling a news API. Offsets are committed only after the article has been
// handed to the pipeline so nothing is lost on a crash between fetch and
// hand-off.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

// rawArticle mirrors the JSON published to the articles topic.
type rawArticle struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

// Config holds the Kafka consumer settings.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
	Logger  *zap.Logger
}

// Source is a Kafka-backed article source.
type Source struct {
	reader *kafka.Reader
	logger *zap.Logger
}

// New creates a Kafka article source.
func New(cfg *Config) *Source {
	return &Source{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          cfg.Topic,
			GroupID:        cfg.GroupID,
			MinBytes:       1e3,
			MaxBytes:       10e6,
			CommitInterval: 0, // manual commit only
		}),
		logger: cfg.Logger,
	}
}

// Run consumes the topic until ctx is canceled, sending decoded articles to
// out. Undecodable messages are committed and dropped so they do not wedge
// the partition.
func (s *Source) Run(ctx context.Context, out chan<- domain.Article) error {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		art, err := decodeArticle(msg.Value)
		if err != nil {
			s.logger.Warn("Dropping undecodable article message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			if err := s.reader.CommitMessages(ctx, msg); err != nil {
				s.logger.Error("Failed to commit dropped message", zap.Error(err))
			}
			continue
		}

		select {
		case out <- art:
		case <-ctx.Done():
			return nil
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			s.logger.Error("Failed to commit message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
	}
}

// Close releases the underlying reader.
func (s *Source) Close() error {
	return s.reader.Close()
}

func decodeArticle(value []byte) (domain.Article, error) {
	var raw rawArticle
	if err := json.Unmarshal(value, &raw); err != nil {
		return domain.Article{}, fmt.Errorf("unmarshal article: %w", err)
	}

	publishedAt := parseTimestamp(raw.PublishedAt)
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	art, err := domain.NewArticle(
		strings.TrimSpace(raw.Title),
		strings.TrimSpace(raw.Body),
		strings.TrimSpace(raw.Source),
		strings.TrimSpace(raw.URL),
		publishedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return domain.Article{}, err
	}
	return art, nil
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
