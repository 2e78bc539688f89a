// Package summarize produces article summaries through a bounded
// draft/critique/revise loop. Every step is persisted before the next one
// runs, so an interrupted summarization resumes from its last recorded step
// instead of repeating completed LLM calls.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
	"github.com/kailas-cloud/newsflow/internal/retry"
)

// Service runs the reasoning summarizer for admitted articles.
type Service struct {
	reasoner      Reasoner
	traces        TraceStore
	maxIterations int
	policy        retry.Policy
	logger        *zap.Logger
}

// New creates a summarizer. maxIterations bounds how many critique passes an
// article may receive before the candidate is finalized as-is.
func New(reasoner Reasoner, traces TraceStore, maxIterations int, policy retry.Policy, logger *zap.Logger) *Service {
	if maxIterations <= 0 {
		maxIterations = 3
	}
	if policy.Retryable == nil {
		policy.Retryable = domain.IsTransient
	}
	return &Service{
		reasoner:      reasoner,
		traces:        traces,
		maxIterations: maxIterations,
		policy:        policy,
		logger:        logger,
	}
}

// Summarize drives the article through the state machine to a finalized
// summary. topic and score come from the relevance decision and are carried
// onto the resulting summary.
func (s *Service) Summarize(ctx context.Context, art domain.Article, topic string, score float64) (domain.Summary, error) {
	steps, err := s.traces.Load(ctx, art.Fingerprint())
	if err != nil {
		return domain.Summary{}, fmt.Errorf("load trace: %w", err)
	}
	if len(steps) > 0 {
		s.logger.Info("Resuming summarization from recorded trace",
			zap.String("article_id", art.Fingerprint()),
			zap.Int("steps", len(steps)))
	}

	for {
		var next domain.ReasoningStep

		switch {
		case len(steps) == 0:
			next, err = s.draft(ctx, art)
		default:
			last := steps[len(steps)-1]
			switch last.State {
			case domain.StateFinalized:
				return s.buildSummary(art, topic, score, steps)
			case domain.StateDrafting, domain.StateRevising:
				next, err = s.critique(ctx, art, last.Conclusion, len(steps))
			case domain.StateCritiquing:
				var final bool
				next, final = s.afterCritique(art, steps)
				if !final {
					next, err = s.revise(ctx, art, last.Conclusion, last.Thought, len(steps))
				}
			default:
				return domain.Summary{}, fmt.Errorf(
					"trace step %d has unknown state %q: %w",
					last.Index, last.State, domain.ErrTraceCorrupted,
				)
			}
		}
		if err != nil {
			return domain.Summary{}, err
		}

		if err := s.traces.AppendStep(ctx, art.Fingerprint(), next); err != nil {
			return domain.Summary{}, fmt.Errorf("record step: %w", err)
		}
		steps = append(steps, next)
	}
}

func (s *Service) draft(ctx context.Context, art domain.Article) (domain.ReasoningStep, error) {
	text, err := s.reason(ctx, "draft", draftPrompt, art.Text())
	if err != nil {
		return domain.ReasoningStep{}, err
	}
	return domain.ReasoningStep{
		Index:      0,
		State:      domain.StateDrafting,
		Thought:    "drafted from article text",
		Conclusion: text,
	}, nil
}

func (s *Service) critique(ctx context.Context, art domain.Article, candidate string, index int) (domain.ReasoningStep, error) {
	material := art.Text() + "\n\n--- DRAFT SUMMARY ---\n" + candidate
	verdict, err := s.reason(ctx, "critique", critiquePrompt, material)
	if err != nil {
		return domain.ReasoningStep{}, err
	}
	return domain.ReasoningStep{
		Index:      index,
		State:      domain.StateCritiquing,
		Thought:    verdict,
		Conclusion: candidate,
	}, nil
}

func (s *Service) revise(ctx context.Context, art domain.Article, candidate, critique string, index int) (domain.ReasoningStep, error) {
	material := art.Text() +
		"\n\n--- DRAFT SUMMARY ---\n" + candidate +
		"\n\n--- CRITIQUE ---\n" + critique
	text, err := s.reason(ctx, "revise", revisePrompt, material)
	if err != nil {
		return domain.ReasoningStep{}, err
	}
	return domain.ReasoningStep{
		Index:      index,
		State:      domain.StateRevising,
		Thought:    "revised after critique",
		Conclusion: text,
	}, nil
}

// afterCritique decides the transition out of a critique step: finalize on an
// accepting verdict, finalize as-is when the iteration budget is spent, or
// revise. It reports final=true when the returned step is terminal; otherwise
// the caller performs the revise call.
func (s *Service) afterCritique(art domain.Article, steps []domain.ReasoningStep) (domain.ReasoningStep, bool) {
	last := steps[len(steps)-1]
	iterations := critiqueCount(steps)

	if accepted(last.Thought) {
		return domain.ReasoningStep{
			Index:      len(steps),
			State:      domain.StateFinalized,
			Thought:    fmt.Sprintf("accepted after %d critique passes", iterations),
			Conclusion: last.Conclusion,
		}, true
	}
	if iterations >= s.maxIterations {
		s.logger.Warn("Finalizing summary at iteration limit",
			zap.String("article_id", art.Fingerprint()),
			zap.Int("iterations", iterations))
		return domain.ReasoningStep{
			Index:      len(steps),
			State:      domain.StateFinalized,
			Thought:    "iteration limit reached",
			Conclusion: last.Conclusion,
		}, true
	}
	return domain.ReasoningStep{}, false
}

// reason wraps one LLM call in the retry policy, surfacing exhausted retries
// as a summarization failure so the article can be requeued.
func (s *Service) reason(ctx context.Context, stage, prompt, material string) (string, error) {
	var out string
	err := s.policy.Do(ctx, func() error {
		res, err := s.reasoner.Reason(ctx, prompt, material)
		if err != nil {
			return err
		}
		out = res.Text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s call: %w: %w", stage, domain.ErrSummarizationFailed, err)
	}
	return out, nil
}

func (s *Service) buildSummary(art domain.Article, topic string, score float64, steps []domain.ReasoningStep) (domain.Summary, error) {
	terminal := steps[len(steps)-1]
	sum, err := domain.NewSummary(
		art.Fingerprint(),
		terminal.Conclusion,
		topic,
		score,
		s.confidence(steps),
		s.traces.Ref(art.Fingerprint()),
		time.Now().UTC(),
	)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("build summary: %w", err)
	}
	return sum, nil
}

// confidence derives the summary confidence from the recorded trace: a first
// critique pass that accepts yields 0.9, each extra pass costs 0.1 down to a
// floor of 0.5, and a forced finalize at the iteration limit yields 0.25.
func (s *Service) confidence(steps []domain.ReasoningStep) float64 {
	iterations := critiqueCount(steps)
	if iterations == 0 {
		return 0.25
	}
	// the step before the terminal one is the deciding critique
	deciding := steps[len(steps)-2]
	if !accepted(deciding.Thought) {
		return 0.25
	}
	conf := 0.9 - 0.1*float64(iterations-1)
	if conf < 0.5 {
		conf = 0.5
	}
	return conf
}

func critiqueCount(steps []domain.ReasoningStep) int {
	n := 0
	for _, st := range steps {
		if st.State == domain.StateCritiquing {
			n++
		}
	}
	return n
}

func accepted(verdict string) bool {
	return strings.HasPrefix(strings.TrimSpace(verdict), acceptPrefix)
}
