package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rag-governor/internal/domain"
)

// OutputValidator ensures the LLM output follows expected structure and only cites supplied passages.
type OutputValidator struct{}

// NewOutputValidator creates a validator instance (currently stateless).
func NewOutputValidator() OutputValidator {
	return OutputValidator{}
}

// Validate parses and checks the JSON output emitted by the LLM.
func (v OutputValidator) Validate(raw string, passages []domain.Passage) (*LLMAnswer, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("llm response is empty")
	}

	var answer LLMAnswer
	if err := json.Unmarshal([]byte(trimmed), &answer); err != nil {
		return nil, fmt.Errorf("failed to parse llm response: %w", err)
	}

	if answer.Fallback {
		return &answer, nil
	}
	if strings.TrimSpace(answer.Answer) == "" {
		return nil, errors.New("missing answer in response")
	}
	if len(passages) > 0 && len(answer.Citations) == 0 {
		return nil, errors.New("missing citations in response")
	}

	allowed := make(map[string]struct{}, len(passages))
	for _, p := range passages {
		allowed[p.DocID] = struct{}{}
	}
	for _, cite := range answer.Citations {
		if cite.DocID == "" {
			return nil, errors.New("citation missing doc_id")
		}
		if _, ok := allowed[cite.DocID]; !ok {
			return nil, fmt.Errorf("citation references unknown document %s", cite.DocID)
		}
	}

	return &answer, nil
}

// LLMAnswer models the JSON output the prompt format section enforces.
type LLMAnswer struct {
	Answer    string        `json:"answer"`
	Citations []LLMCitation `json:"citations"`
	Fallback  bool          `json:"fallback"`
	Reason    string        `json:"reason"`
}

// LLMCitation declares a passage referenced in the final answer.
type LLMCitation struct {
	DocID string `json:"doc_id"`
}
