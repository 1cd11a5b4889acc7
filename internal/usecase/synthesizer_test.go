package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rag-governor/internal/domain"
	"rag-governor/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func samplePassages() []domain.Passage {
	return []domain.Passage{
		{DocID: "doc_2", Text: "Privacy guarantees and GDPR", Score: 1.8},
		{DocID: "doc_0", Text: "Intro to the system", Score: 0.4},
	}
}

func TestTemplateSynthesizer_Deterministic(t *testing.T) {
	s := usecase.NewTemplateSynthesizer()

	first, err := s.Generate(context.Background(), "privacy", samplePassages())
	require.NoError(t, err)
	second, err := s.Generate(context.Background(), "privacy", samplePassages())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "2 passage(s)")
	assert.Contains(t, first, "[doc_2, doc_0]")
	assert.Contains(t, first, "Privacy guarantees and GDPR\n---\nIntro to the system")
	assert.Equal(t, "template", s.Name())
}

func TestTemplateSynthesizer_NoPassages(t *testing.T) {
	answer, err := usecase.NewTemplateSynthesizer().Generate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
}

func TestTemplateSynthesizer_BoundsExcerpt(t *testing.T) {
	long := strings.Repeat("あ", 2000)
	answer, err := usecase.NewTemplateSynthesizer().Generate(context.Background(), "q", []domain.Passage{{DocID: "big", Text: long}})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(answer, "\n..."))
	assert.Equal(t, 800, strings.Count(answer, "あ"))
}

func TestTemplateSynthesizer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := usecase.NewTemplateSynthesizer().Generate(ctx, "q", samplePassages())
	var ge *domain.GenerationError
	assert.True(t, errors.As(err, &ge))
}

func newTestLLMSynthesizer(llm domain.LLMClient) *usecase.LLMSynthesizer {
	return usecase.NewLLMSynthesizer(usecase.NewXMLPromptBuilder(), llm, usecase.NewOutputValidator(), "v1", 256, testLogger())
}

func TestLLMSynthesizer_Success(t *testing.T) {
	llm := new(mockLLMClient)
	llm.On("Chat", mock.Anything, mock.MatchedBy(func(msgs []domain.Message) bool {
		return len(msgs) == 2 && strings.Contains(msgs[1].Content, "<doc_id>doc_2</doc_id>")
	}), 256).Return(&domain.LLMResponse{
		Text: `{"answer": "GDPR is covered [doc_2]", "citations": [{"doc_id": "doc_2"}], "fallback": false, "reason": ""}`,
		Done: true,
	}, nil)

	answer, err := newTestLLMSynthesizer(llm).Generate(context.Background(), "privacy?", samplePassages())
	require.NoError(t, err)
	assert.Equal(t, "GDPR is covered [doc_2]", answer)
	llm.AssertExpectations(t)
}

func TestLLMSynthesizer_Fallback(t *testing.T) {
	llm := new(mockLLMClient)
	llm.On("Chat", mock.Anything, mock.Anything, mock.Anything).Return(&domain.LLMResponse{
		Text: `{"answer": "", "citations": [], "fallback": true, "reason": "nothing relevant"}`,
		Done: true,
	}, nil)

	answer, err := newTestLLMSynthesizer(llm).Generate(context.Background(), "weather?", samplePassages())
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
}

func TestLLMSynthesizer_Failures(t *testing.T) {
	tests := []struct {
		name string
		resp *domain.LLMResponse
		err  error
	}{
		{name: "provider error", err: errors.New("quota exceeded")},
		{name: "empty response", resp: &domain.LLMResponse{Text: " ", Done: true}},
		{name: "incomplete response", resp: &domain.LLMResponse{Text: `{"answer":"x"}`, Done: false}},
		{name: "invalid json", resp: &domain.LLMResponse{Text: "not json", Done: true}},
		{name: "unknown citation", resp: &domain.LLMResponse{
			Text: `{"answer": "x", "citations": [{"doc_id": "doc_9"}], "fallback": false}`,
			Done: true,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := new(mockLLMClient)
			if tt.err != nil {
				llm.On("Chat", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			} else {
				llm.On("Chat", mock.Anything, mock.Anything, mock.Anything).Return(tt.resp, nil)
			}

			_, err := newTestLLMSynthesizer(llm).Generate(context.Background(), "q", samplePassages())
			var ge *domain.GenerationError
			require.True(t, errors.As(err, &ge))
			assert.Equal(t, "llm:mock", ge.Provider)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestOutputValidator_Validate(t *testing.T) {
	validator := usecase.NewOutputValidator()

	t.Run("escape sequences survive parsing", func(t *testing.T) {
		parsed, err := validator.Validate(`{"answer": "Line 1\nLine 2 \"quoted\"", "citations": [{"doc_id": "doc_0"}], "fallback": false}`, samplePassages())
		require.NoError(t, err)
		assert.Equal(t, "Line 1\nLine 2 \"quoted\"", parsed.Answer)
	})

	t.Run("missing citations", func(t *testing.T) {
		_, err := validator.Validate(`{"answer": "x", "citations": [], "fallback": false}`, samplePassages())
		assert.Error(t, err)
	})

	t.Run("citations not required without passages", func(t *testing.T) {
		_, err := validator.Validate(`{"answer": "x", "citations": [], "fallback": false}`, nil)
		assert.NoError(t, err)
	})

	t.Run("empty doc id", func(t *testing.T) {
		_, err := validator.Validate(`{"answer": "x", "citations": [{"doc_id": ""}], "fallback": false}`, samplePassages())
		assert.Error(t, err)
	})

	t.Run("fallback skips checks", func(t *testing.T) {
		parsed, err := validator.Validate(`{"fallback": true, "reason": "no context"}`, samplePassages())
		require.NoError(t, err)
		assert.True(t, parsed.Fallback)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := validator.Validate("  ", samplePassages())
		assert.Error(t, err)
	})
}

func TestXMLPromptBuilder_Build(t *testing.T) {
	builder := usecase.NewXMLPromptBuilder("Answer in English.")

	msgs, err := builder.Build(usecase.PromptInput{
		Question:      "What about <privacy> & \"GDPR\"?",
		PromptVersion: "v1",
		Passages:      samplePassages(),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "<line>Answer in English.</line>")
	assert.Contains(t, msgs[0].Content, "\"doc_id\"")

	assert.Equal(t, "user", msgs[1].Role)
	assert.Contains(t, msgs[1].Content, `<context version="v1">`)
	assert.Contains(t, msgs[1].Content, "<doc_id>doc_2</doc_id>")
	assert.Contains(t, msgs[1].Content, "<score>1.800000</score>")
	assert.Contains(t, msgs[1].Content, "What about &lt;privacy&gt; &amp; &quot;GDPR&quot;?")

	_, err = builder.Build(usecase.PromptInput{Question: "q"})
	assert.Error(t, err, "prompt version is required")

	_, err = builder.Build(usecase.PromptInput{Question: " ", PromptVersion: "v1"})
	assert.Error(t, err)
}
