package retrieval

import (
	"context"
	"math"

	"rag-governor/internal/domain"
)

// BM25 constants.
const (
	BM25K1 = 1.5
	BM25B  = 0.75
)

// LexicalRanker implements variant A with BM25 over the index term statistics.
type LexicalRanker struct{}

// NewLexicalRanker creates the BM25 ranker.
func NewLexicalRanker() *LexicalRanker {
	return &LexicalRanker{}
}

func (r *LexicalRanker) Variant() domain.Variant { return domain.VariantLexical }

// Rank tokenizes query with the index tokenizer and scores it. It never fails.
func (r *LexicalRanker) Rank(_ context.Context, idx *domain.CorpusIndex, query string, k int) ([]domain.RankedHit, error) {
	terms := idx.Tokenizer().Tokenize(query)
	return ScoreBM25(idx, terms, k), nil
}

// ScoreBM25 returns up to k documents containing at least one of terms.
// Documents sharing no term are omitted, so the result is never padded.
// Repeated query terms contribute once per occurrence.
func ScoreBM25(idx *domain.CorpusIndex, terms []string, k int) []domain.RankedHit {
	if len(terms) == 0 || idx.Len() == 0 || k <= 0 {
		return []domain.RankedHit{}
	}

	n := float64(idx.Len())
	idf := make(map[string]float64, len(terms))
	for _, term := range terms {
		if _, ok := idf[term]; ok {
			continue
		}
		df := float64(idx.DocumentFrequency(term))
		if df == 0 {
			continue
		}
		idf[term] = math.Log(1 + (n-df+0.5)/(df+0.5))
	}
	if len(idf) == 0 {
		return []domain.RankedHit{}
	}

	avgdl := idx.AverageDocumentLength()
	hits := make([]domain.RankedHit, 0, idx.Len())
	for i := 0; i < idx.Len(); i++ {
		var score float64
		matched := false
		norm := 1.0
		if avgdl > 0 {
			norm = 1 - BM25B + BM25B*float64(idx.DocumentLength(i))/avgdl
		}
		for _, term := range terms {
			w, ok := idf[term]
			if !ok {
				continue
			}
			tf := float64(idx.TermFrequency(i, term))
			if tf == 0 {
				continue
			}
			matched = true
			score += w * (tf * (BM25K1 + 1)) / (tf + BM25K1*norm)
		}
		if matched {
			hits = append(hits, domain.RankedHit{DocID: idx.DocumentAt(i).ID, Score: score})
		}
	}

	return topK(hits, k)
}

var _ Ranker = (*LexicalRanker)(nil)
