package retrieval

import (
	"fmt"

	"rag-governor/internal/domain"
)

// Router maps a variant tag to its ranker. The mapping is fixed at construction.
type Router struct {
	lexical Ranker
	vector  Ranker
}

// NewRouter wires the two rankers.
func NewRouter(lexical, vector Ranker) *Router {
	return &Router{lexical: lexical, vector: vector}
}

// Resolve parses tag and returns its ranker. Tags other than "A" and "B"
// fail with *domain.InvalidVariantError.
func (r *Router) Resolve(tag string) (Ranker, error) {
	v, err := domain.ParseVariant(tag)
	if err != nil {
		return nil, err
	}
	return r.ResolveVariant(v)
}

// ResolveVariant returns the ranker for an already parsed variant.
func (r *Router) ResolveVariant(v domain.Variant) (Ranker, error) {
	var ranker Ranker
	switch v {
	case domain.VariantLexical:
		ranker = r.lexical
	case domain.VariantVector:
		ranker = r.vector
	default:
		return nil, &domain.InvalidVariantError{Tag: string(v)}
	}
	if ranker == nil {
		return nil, fmt.Errorf("no ranker configured for variant %s", v)
	}
	return ranker, nil
}
