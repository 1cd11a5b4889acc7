package domain

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into lexical terms for BM25 scoring.
// The same tokenizer must be used for indexing and querying.
type Tokenizer interface {
	Tokenize(text string) []string
	Name() string
}

type simpleTokenizer struct{}

// NewSimpleTokenizer lowercases text and splits on any rune that is neither
// a letter nor a digit.
func NewSimpleTokenizer() Tokenizer {
	return simpleTokenizer{}
}

func (simpleTokenizer) Tokenize(text string) []string {
	return SplitTerms(text)
}

func (simpleTokenizer) Name() string { return "simple" }

// SplitTerms is the lowercase letter/digit split shared by tokenizers.
func SplitTerms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
