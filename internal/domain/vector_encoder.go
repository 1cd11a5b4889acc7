package domain

import (
	"context"
)

// VectorEncoder defines the interface for generating embeddings.
// The same encoder must embed the corpus and every query against it.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
