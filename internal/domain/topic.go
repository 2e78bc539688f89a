package domain

import "fmt"

// Topic is a tracked subject with its activation threshold (immutable value object).
// The vector is computed once at startup from the topic's query text and is
// read-only for the rest of the run.
type Topic struct {
	name      string
	threshold float64
	vector    []float32
}

// NewTopic validates and creates a Topic.
func NewTopic(name string, threshold float64, vector []float32) (Topic, error) {
	if name == "" {
		return Topic{}, fmt.Errorf("topic name is required")
	}
	if threshold < -1 || threshold > 1 {
		return Topic{}, fmt.Errorf("topic %q threshold must be in [-1, 1], got %f", name, threshold)
	}
	if len(vector) == 0 {
		return Topic{}, fmt.Errorf("topic %q vector is required: %w", name, ErrDimensionMismatch)
	}
	return Topic{name: name, threshold: threshold, vector: vector}, nil
}

// Name returns the topic name.
func (t *Topic) Name() string { return t.name }

// Threshold returns the activation threshold.
func (t *Topic) Threshold() float64 { return t.threshold }

// Vector returns the topic embedding vector.
func (t *Topic) Vector() []float32 { return t.vector }

// TopicSet is an ordered, immutable collection of topics. Declaration order is
// significant: it breaks score ties during classification.
type TopicSet struct {
	topics []Topic
}

// NewTopicSet validates and creates a TopicSet. All topic vectors must share
// one dimension; an empty set is a configuration error.
func NewTopicSet(topics []Topic) (TopicSet, error) {
	if len(topics) == 0 {
		return TopicSet{}, ErrNoTopics
	}

	seen := make(map[string]bool, len(topics))
	dim := len(topics[0].vector)
	for _, t := range topics {
		if seen[t.name] {
			return TopicSet{}, fmt.Errorf("duplicate topic %q", t.name)
		}
		seen[t.name] = true
		if len(t.vector) != dim {
			return TopicSet{}, fmt.Errorf(
				"topic %q has dim %d, expected %d: %w",
				t.name, len(t.vector), dim, ErrDimensionMismatch,
			)
		}
	}

	cloned := make([]Topic, len(topics))
	copy(cloned, topics)
	return TopicSet{topics: cloned}, nil
}

// Topics returns the topics in declaration order.
func (s *TopicSet) Topics() []Topic { return s.topics }

// Dimension returns the shared vector dimension.
func (s *TopicSet) Dimension() int {
	if len(s.topics) == 0 {
		return 0
	}
	return len(s.topics[0].vector)
}

// Len returns the number of topics.
func (s *TopicSet) Len() int { return len(s.topics) }
