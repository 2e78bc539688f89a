// Package relevance classifies article embeddings against the configured
// topic set.
package relevance

import (
	"fmt"

	"github.com/kailas-cloud/newsflow/internal/domain"
)

// Match is the classification result for one article embedding.
type Match struct {
	Accepted bool
	Topic    string
	Score    float64
}

// Service scores article embeddings against a fixed topic set. The topic set
// is immutable for the life of the service, so Classify is safe for
// concurrent use.
type Service struct {
	topics domain.TopicSet
}

// New creates a relevance classifier.
func New(topics domain.TopicSet) *Service {
	return &Service{topics: topics}
}

// Classify scores the embedding against every topic. The article is accepted
// when at least one topic's score reaches its threshold; among accepted
// topics the highest score wins and ties keep the earlier-declared topic.
func (s *Service) Classify(vector []float32) (Match, error) {
	best := Match{}
	for _, topic := range s.topics.Topics() {
		score, err := domain.Cosine(vector, topic.Vector())
		if err != nil {
			return Match{}, fmt.Errorf("score topic %q: %w", topic.Name(), err)
		}
		if score < topic.Threshold() {
			continue
		}
		if !best.Accepted || score > best.Score {
			best = Match{Accepted: true, Topic: topic.Name(), Score: score}
		}
	}
	return best, nil
}
