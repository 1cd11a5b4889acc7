package usecase_test

import (
	"errors"
	"testing"

	"rag-governor/internal/domain"
	"rag-governor/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatherContexts(t *testing.T) {
	idx := sampleIndex(t)

	tests := []struct {
		name     string
		hits     []domain.RankedHit
		maxChars int
		wantIDs  []string
	}{
		{
			name:     "preserves hit order",
			hits:     []domain.RankedHit{{DocID: "doc_2", Score: 2}, {DocID: "doc_0", Score: 1}},
			maxChars: 0,
			wantIDs:  []string{"doc_2", "doc_0"},
		},
		{
			name:     "drops repeated ids",
			hits:     []domain.RankedHit{{DocID: "doc_1"}, {DocID: "doc_1"}, {DocID: "doc_0"}},
			maxChars: 0,
			wantIDs:  []string{"doc_1", "doc_0"},
		},
		{
			// doc_2 is 27 chars, doc_0 is 19 chars.
			name:     "stops before the passage that overflows",
			hits:     []domain.RankedHit{{DocID: "doc_2"}, {DocID: "doc_0"}, {DocID: "doc_1"}},
			maxChars: 40,
			wantIDs:  []string{"doc_2"},
		},
		{
			name:     "exact fit is kept",
			hits:     []domain.RankedHit{{DocID: "doc_2"}, {DocID: "doc_0"}},
			maxChars: 46,
			wantIDs:  []string{"doc_2", "doc_0"},
		},
		{
			name:     "first passage larger than budget",
			hits:     []domain.RankedHit{{DocID: "doc_2"}},
			maxChars: 5,
			wantIDs:  []string{},
		},
		{
			name:     "no hits",
			hits:     nil,
			maxChars: 100,
			wantIDs:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passages, err := usecase.GatherContexts(tt.hits, idx, tt.maxChars)
			require.NoError(t, err)
			ids := make([]string, 0, len(passages))
			for _, p := range passages {
				ids = append(ids, p.DocID)
				doc, ok := idx.Document(p.DocID)
				require.True(t, ok)
				assert.Equal(t, doc.Text, p.Text, "passages are never truncated")
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGatherContexts_UnknownDocument(t *testing.T) {
	idx := sampleIndex(t)
	_, err := usecase.GatherContexts([]domain.RankedHit{{DocID: "doc_0"}, {DocID: "doc_404"}}, idx, 5)

	var ude *domain.UnknownDocumentError
	require.True(t, errors.As(err, &ude))
	assert.Equal(t, "doc_404", ude.DocID)
}

func TestGatherContexts_CountsRunesNotBytes(t *testing.T) {
	docs := []domain.Document{{ID: "ja", Text: "日本語"}, {ID: "en", Text: "abc"}}
	idx, err := domain.BuildCorpusIndex(docs, [][]float32{{1}, {1}}, nil, domain.BuildOptions{})
	require.NoError(t, err)

	passages, err := usecase.GatherContexts([]domain.RankedHit{{DocID: "ja"}, {DocID: "en"}}, idx, 6)
	require.NoError(t, err)
	assert.Len(t, passages, 2)
}
