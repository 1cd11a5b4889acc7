package domain

import (
	"encoding/json"
	"fmt"
)

// Document is a single corpus entry. It is never mutated after load.
type Document struct {
	ID   string
	Text string
}

// Passage is the text of a ranked document handed to the synthesizer.
type Passage struct {
	DocID string
	Text  string
	Score float64
}

// RankedHit is a document id with the score of the ranker that produced it.
// Scores from different rankers are not comparable.
type RankedHit struct {
	DocID string
	Score float64
}

// MarshalJSON encodes the hit as a two-element array: ["doc_2", 1.23].
func (h RankedHit) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{h.DocID, h.Score})
}

// UnmarshalJSON decodes the two-element array form.
func (h *RankedHit) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("ranked hit: expected 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &h.DocID); err != nil {
		return fmt.Errorf("ranked hit id: %w", err)
	}
	if err := json.Unmarshal(raw[1], &h.Score); err != nil {
		return fmt.Errorf("ranked hit score: %w", err)
	}
	return nil
}
