package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rag-governor/internal/domain"
)

const noGroundedAnswer = "The supplied passages do not contain enough information to answer the question."

// LLMSynthesizer generates answers through an external chat model.
// Every provider or format failure becomes *domain.GenerationError; nothing is retried here.
type LLMSynthesizer struct {
	promptBuilder PromptBuilder
	llmClient     domain.LLMClient
	validator     OutputValidator
	promptVersion string
	maxTokens     int
	logger        *slog.Logger
}

// NewLLMSynthesizer wires a prompt builder and LLM client into a Synthesizer.
func NewLLMSynthesizer(
	promptBuilder PromptBuilder,
	llmClient domain.LLMClient,
	validator OutputValidator,
	promptVersion string,
	maxTokens int,
	logger *slog.Logger,
) *LLMSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMSynthesizer{
		promptBuilder: promptBuilder,
		llmClient:     llmClient,
		validator:     validator,
		promptVersion: promptVersion,
		maxTokens:     maxTokens,
		logger:        logger,
	}
}

func (s *LLMSynthesizer) Name() string {
	return "llm:" + s.llmClient.Version()
}

func (s *LLMSynthesizer) Generate(ctx context.Context, question string, passages []domain.Passage) (string, error) {
	messages, err := s.promptBuilder.Build(PromptInput{
		Question:      question,
		PromptVersion: s.promptVersion,
		Passages:      passages,
	})
	if err != nil {
		return "", s.fail(fmt.Errorf("failed to build prompt: %w", err))
	}

	start := time.Now()
	resp, err := s.llmClient.Chat(ctx, messages, s.maxTokens)
	if err != nil {
		return "", s.fail(fmt.Errorf("llm generation failed: %w", err))
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", s.fail(errors.New("empty llm response"))
	}
	if !resp.Done {
		return "", s.fail(errors.New("llm response incomplete"))
	}

	parsed, err := s.validator.Validate(resp.Text, passages)
	if err != nil {
		return "", s.fail(fmt.Errorf("validation failed: %w", err))
	}

	s.logger.Info("llm_generation_completed",
		slog.String("model", s.llmClient.Version()),
		slog.Int("passage_count", len(passages)),
		slog.Int("citation_count", len(parsed.Citations)),
		slog.Bool("fallback", parsed.Fallback),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	if parsed.Fallback || strings.TrimSpace(parsed.Answer) == "" {
		return noGroundedAnswer, nil
	}
	return strings.TrimSpace(parsed.Answer), nil
}

func (s *LLMSynthesizer) fail(err error) error {
	s.logger.Warn("llm_generation_failed",
		slog.String("model", s.llmClient.Version()),
		slog.String("error", err.Error()))
	return &domain.GenerationError{Provider: s.Name(), Err: err}
}

var _ domain.Synthesizer = (*LLMSynthesizer)(nil)
