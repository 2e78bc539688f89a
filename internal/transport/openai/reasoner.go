package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
	"github.com/kailas-cloud/newsflow/internal/metrics"
)

// Reasoner is a chat-completion client used by the summarizer for its
// draft, critique, and revise calls.
type Reasoner struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewReasoner creates a chat-completion client.
func NewReasoner(cfg *Config, model string, temperature float32, maxTokens int) *Reasoner {
	return &Reasoner{
		client:      newClient(cfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      cfg.Logger,
	}
}

// Reason implements domain.Reasoner. prompt sets the instruction, material is
// the text the instruction operates on.
func (r *Reasoner) Reason(ctx context.Context, prompt, material string) (domain.ReasonResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: material},
		},
	}

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("reason", r.model, "error").Inc()
		return domain.ReasonResult{}, parseAPIError("reason", err, domain.ErrProviderUnavailable)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.ProviderRequestsTotal.WithLabelValues("reason", r.model, "error").Inc()
		return domain.ReasonResult{}, fmt.Errorf("empty completion response: %w", domain.ErrProviderUnavailable)
	}

	metrics.ProviderRequestsTotal.WithLabelValues("reason", r.model, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues("reason", r.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues("reason", r.model).Add(float64(resp.Usage.TotalTokens))
	}

	return domain.ReasonResult{
		Text:        resp.Choices[0].Message.Content,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
