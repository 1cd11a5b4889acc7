package usecase

import (
	"unicode/utf8"

	"rag-governor/internal/domain"
)

// GatherContexts resolves hits to passages in hit order. Repeated ids are
// dropped. Passages are added whole until the next one would push the total
// past maxChars; that passage and everything after it are omitted.
// maxChars <= 0 disables the budget.
func GatherContexts(hits []domain.RankedHit, idx *domain.CorpusIndex, maxChars int) ([]domain.Passage, error) {
	for _, h := range hits {
		if _, ok := idx.Document(h.DocID); !ok {
			return nil, &domain.UnknownDocumentError{DocID: h.DocID}
		}
	}

	passages := make([]domain.Passage, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	used := 0
	for _, h := range hits {
		if _, dup := seen[h.DocID]; dup {
			continue
		}
		seen[h.DocID] = struct{}{}

		doc, _ := idx.Document(h.DocID)
		size := utf8.RuneCountInString(doc.Text)
		if maxChars > 0 && used+size > maxChars {
			break
		}
		used += size
		passages = append(passages, domain.Passage{DocID: doc.ID, Text: doc.Text, Score: h.Score})
	}
	return passages, nil
}
