package domain

import "context"

// Synthesizer produces an answer from a masked question and gathered passages.
// Provider failures must surface as *GenerationError.
type Synthesizer interface {
	Generate(ctx context.Context, question string, passages []Passage) (string, error)
	Name() string
}
