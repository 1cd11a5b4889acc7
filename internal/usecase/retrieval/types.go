package retrieval

import (
	"context"
	"sort"

	"rag-governor/internal/domain"
)

// Ranker scores a query against a corpus snapshot and returns at most k hits,
// ordered by descending score with ties broken by ascending doc id.
type Ranker interface {
	Rank(ctx context.Context, idx *domain.CorpusIndex, query string, k int) ([]domain.RankedHit, error)
	Variant() domain.Variant
}

// sortHits orders hits by descending score, then ascending doc id.
func sortHits(hits []domain.RankedHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocID < hits[j].DocID
	})
}

// topK sorts hits and truncates them to k.
func topK(hits []domain.RankedHit, k int) []domain.RankedHit {
	sortHits(hits)
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
