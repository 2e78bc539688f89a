package domain

import (
	"fmt"
	"time"
)

// ReasoningState names one phase of the summarization state machine.
type ReasoningState string

// Summarizer states. Drafting, Critiquing, and Revising may repeat up to the
// iteration bound; Finalized is terminal.
const (
	StateDrafting   ReasoningState = "drafting"
	StateCritiquing ReasoningState = "critiquing"
	StateRevising   ReasoningState = "revising"
	StateFinalized  ReasoningState = "finalized"
)

// ReasoningStep is one durably recorded step of a reasoning trace.
// Conclusion carries the best candidate summary as of this step; the terminal
// step's conclusion is, by construction, the final summary text.
type ReasoningStep struct {
	Index      int
	State      ReasoningState
	Thought    string
	Conclusion string
}

// ReasoningTrace is the ordered step record of one article's summarization.
// It is never mutated after the terminal step.
type ReasoningTrace struct {
	articleID string
	steps     []ReasoningStep
}

// NewReasoningTrace validates and creates a ReasoningTrace. A trace always has
// at least one step and its step indexes are contiguous from zero.
func NewReasoningTrace(articleID string, steps []ReasoningStep) (ReasoningTrace, error) {
	if articleID == "" {
		return ReasoningTrace{}, fmt.Errorf("trace article id is required")
	}
	if len(steps) == 0 {
		return ReasoningTrace{}, fmt.Errorf("trace must have at least one step")
	}
	for i, s := range steps {
		if s.Index != i {
			return ReasoningTrace{}, fmt.Errorf(
				"trace step %d has index %d: %w", i, s.Index, ErrTraceCorrupted,
			)
		}
	}
	cloned := make([]ReasoningStep, len(steps))
	copy(cloned, steps)
	return ReasoningTrace{articleID: articleID, steps: cloned}, nil
}

// ArticleID returns the article this trace belongs to.
func (t *ReasoningTrace) ArticleID() string { return t.articleID }

// Steps returns the recorded steps in order.
func (t *ReasoningTrace) Steps() []ReasoningStep { return t.steps }

// Len returns the number of recorded steps.
func (t *ReasoningTrace) Len() int { return len(t.steps) }

// Last returns the most recent step.
func (t *ReasoningTrace) Last() ReasoningStep { return t.steps[len(t.steps)-1] }

// Finalized reports whether the trace reached its terminal step.
func (t *ReasoningTrace) Finalized() bool {
	return len(t.steps) > 0 && t.steps[len(t.steps)-1].State == StateFinalized
}

// Summary is the condensed result of one article's pipeline pass (immutable
// value object). Written once; the idempotency key is the article fingerprint.
type Summary struct {
	articleID  string
	text       string
	topic      string
	score      float64
	confidence float64
	traceRef   string
	producedAt time.Time
}

// NewSummary validates and creates a Summary.
func NewSummary(
	articleID, text, topic string,
	score, confidence float64,
	traceRef string, producedAt time.Time,
) (Summary, error) {
	if articleID == "" {
		return Summary{}, fmt.Errorf("summary article id is required")
	}
	if text == "" {
		return Summary{}, fmt.Errorf("summary text is required")
	}
	if confidence < 0 || confidence > 1 {
		return Summary{}, fmt.Errorf("summary confidence must be in [0, 1], got %f", confidence)
	}
	if producedAt.IsZero() {
		producedAt = time.Now().UTC()
	}
	return Summary{
		articleID:  articleID,
		text:       text,
		topic:      topic,
		score:      score,
		confidence: confidence,
		traceRef:   traceRef,
		producedAt: producedAt.UTC(),
	}, nil
}

// ReconstructSummary creates a Summary without validation (storage hydration).
func ReconstructSummary(
	articleID, text, topic string,
	score, confidence float64,
	traceRef string, producedAt time.Time,
) Summary {
	return Summary{
		articleID:  articleID,
		text:       text,
		topic:      topic,
		score:      score,
		confidence: confidence,
		traceRef:   traceRef,
		producedAt: producedAt,
	}
}

// ArticleID returns the summarized article's fingerprint.
func (s *Summary) ArticleID() string { return s.articleID }

// Text returns the final summary text.
func (s *Summary) Text() string { return s.text }

// Topic returns the matched topic name.
func (s *Summary) Topic() string { return s.topic }

// Score returns the relevance score that admitted the article.
func (s *Summary) Score() float64 { return s.score }

// Confidence returns the summarizer's confidence in [0, 1].
func (s *Summary) Confidence() float64 { return s.confidence }

// TraceRef returns the reasoning trace reference.
func (s *Summary) TraceRef() string { return s.traceRef }

// ProducedAt returns when the summary was finalized.
func (s *Summary) ProducedAt() time.Time { return s.producedAt }
