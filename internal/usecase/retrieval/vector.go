package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rag-governor/internal/domain"
)

// VectorRanker implements variant B: the query is embedded with the same
// encoder as the corpus and compared by inner product against every document.
type VectorRanker struct {
	encoder domain.VectorEncoder
	timeout time.Duration
	logger  *slog.Logger
}

// NewVectorRanker creates the vector ranker. timeout bounds each embedding call; zero disables it.
func NewVectorRanker(encoder domain.VectorEncoder, timeout time.Duration, logger *slog.Logger) *VectorRanker {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorRanker{encoder: encoder, timeout: timeout, logger: logger}
}

func (r *VectorRanker) Variant() domain.Variant { return domain.VariantVector }

// Rank embeds query and runs the exhaustive scan. Provider failures are
// returned as *domain.EmbeddingUnavailableError.
func (r *VectorRanker) Rank(ctx context.Context, idx *domain.CorpusIndex, query string, k int) ([]domain.RankedHit, error) {
	if idx.Len() == 0 || k <= 0 {
		return []domain.RankedHit{}, nil
	}

	embedCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	vectors, err := r.encoder.Encode(embedCtx, []string{query})
	if err != nil {
		r.logger.Warn("query_embedding_failed",
			slog.String("encoder", r.encoder.Version()),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return nil, &domain.EmbeddingUnavailableError{Provider: r.encoder.Version(), Err: err}
	}
	if len(vectors) != 1 {
		return nil, &domain.EmbeddingUnavailableError{
			Provider: r.encoder.Version(),
			Err:      fmt.Errorf("expected 1 embedding, got %d", len(vectors)),
		}
	}

	hits, err := ScoreInnerProduct(idx, vectors[0], k)
	if err != nil {
		return nil, &domain.EmbeddingUnavailableError{Provider: r.encoder.Version(), Err: err}
	}
	return hits, nil
}

// ScoreInnerProduct normalizes queryVec and returns the top k documents by
// inner product. Every document is scored.
func ScoreInnerProduct(idx *domain.CorpusIndex, queryVec []float32, k int) ([]domain.RankedHit, error) {
	if idx.Len() == 0 || k <= 0 {
		return []domain.RankedHit{}, nil
	}
	if len(queryVec) != idx.Dimension() {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(queryVec), idx.Dimension())
	}

	q := domain.Normalize(queryVec)
	hits := make([]domain.RankedHit, idx.Len())
	for i := 0; i < idx.Len(); i++ {
		hits[i] = domain.RankedHit{
			DocID: idx.DocumentAt(i).ID,
			Score: domain.Dot(q, idx.Vector(i)),
		}
	}
	return topK(hits, k), nil
}

var _ Ranker = (*VectorRanker)(nil)
