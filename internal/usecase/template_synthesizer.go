package usecase

import (
	"context"
	"fmt"
	"strings"

	"rag-governor/internal/domain"
)

const (
	templateExcerptRunes = 800
	passageSeparator     = "\n---\n"
)

// TemplateSynthesizer composes a deterministic answer from the passages
// without calling any provider.
type TemplateSynthesizer struct{}

// NewTemplateSynthesizer creates the built-in synthesizer.
func NewTemplateSynthesizer() *TemplateSynthesizer {
	return &TemplateSynthesizer{}
}

func (s *TemplateSynthesizer) Name() string { return "template" }

// Generate names the passage count and ids, followed by an excerpt of their text.
func (s *TemplateSynthesizer) Generate(ctx context.Context, question string, passages []domain.Passage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.GenerationError{Provider: s.Name(), Err: err}
	}
	if len(passages) == 0 {
		return "No passages matched the question.", nil
	}

	ids := make([]string, len(passages))
	texts := make([]string, len(passages))
	for i, p := range passages {
		ids[i] = p.DocID
		texts[i] = p.Text
	}

	excerpt := []rune(strings.Join(texts, passageSeparator))
	truncated := len(excerpt) > templateExcerptRunes
	if truncated {
		excerpt = excerpt[:templateExcerptRunes]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Answer from %d passage(s) [%s]:\n", len(passages), strings.Join(ids, ", "))
	sb.WriteString(string(excerpt))
	if truncated {
		sb.WriteString("\n...")
	}
	return sb.String(), nil
}

var _ domain.Synthesizer = (*TemplateSynthesizer)(nil)
