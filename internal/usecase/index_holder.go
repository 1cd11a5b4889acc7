package usecase

import (
	"sync/atomic"

	"rag-governor/internal/domain"
)

// IndexHolder publishes the current corpus index. Readers take one snapshot
// per request; a rebuild swaps in a new index without touching in-flight readers.
type IndexHolder struct {
	current atomic.Pointer[domain.CorpusIndex]
}

// NewIndexHolder creates a holder, optionally pre-loaded.
func NewIndexHolder(initial *domain.CorpusIndex) *IndexHolder {
	h := &IndexHolder{}
	if initial != nil {
		h.current.Store(initial)
	}
	return h
}

// Load returns the current snapshot or nil before the first build.
func (h *IndexHolder) Load() *domain.CorpusIndex {
	return h.current.Load()
}

// Swap publishes idx and returns the previous snapshot.
func (h *IndexHolder) Swap(idx *domain.CorpusIndex) *domain.CorpusIndex {
	return h.current.Swap(idx)
}
