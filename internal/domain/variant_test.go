package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"rag-governor/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariant(t *testing.T) {
	for _, tag := range []string{"A", "B"} {
		v, err := domain.ParseVariant(tag)
		require.NoError(t, err)
		assert.Equal(t, tag, v.String())
	}

	for _, tag := range []string{"", "a", "b", "C", "AB", " A", "A "} {
		_, err := domain.ParseVariant(tag)
		var ive *domain.InvalidVariantError
		require.True(t, errors.As(err, &ive), "tag %q", tag)
		assert.Equal(t, tag, ive.Tag)
		assert.True(t, domain.IsClientError(err))
	}
}

func TestRankedHit_JSON(t *testing.T) {
	hits := []domain.RankedHit{{DocID: "doc_2", Score: 1.5}, {DocID: "doc_0", Score: 0}}
	data, err := json.Marshal(hits)
	require.NoError(t, err)
	assert.JSONEq(t, `[["doc_2", 1.5], ["doc_0", 0]]`, string(data))

	var decoded []domain.RankedHit
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, hits, decoded)

	var bad domain.RankedHit
	assert.Error(t, json.Unmarshal([]byte(`["doc_1"]`), &bad))
}

func TestSimpleTokenizer(t *testing.T) {
	tok := domain.NewSimpleTokenizer()
	assert.Equal(t, []string{"privacy", "guarantees", "gdpr", "2024"}, tok.Tokenize("Privacy, guarantees... (GDPR-2024)!"))
	assert.Empty(t, tok.Tokenize("  ?! -- "))
	assert.Equal(t, "simple", tok.Name())
}

func TestErrors_Wrapping(t *testing.T) {
	cause := errors.New("connection refused")

	err := &domain.StageError{Stage: "retrieve", Err: &domain.EmbeddingUnavailableError{Provider: "ollama", Err: cause}}
	assert.ErrorIs(t, err, cause)
	var eue *domain.EmbeddingUnavailableError
	assert.True(t, errors.As(err, &eue))
	assert.False(t, domain.IsClientError(err))
	assert.Contains(t, err.Error(), "retrieve")

	assert.True(t, domain.IsClientError(&domain.ValidationError{Field: "k", Message: "must be >= 1"}))
	assert.Equal(t, "k: must be >= 1", (&domain.ValidationError{Field: "k", Message: "must be >= 1"}).Error())
}
