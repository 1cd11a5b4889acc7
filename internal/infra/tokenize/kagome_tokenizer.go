package tokenize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"rag-governor/internal/domain"
)

// KagomeTokenizer extends the simple letter/digit split with morphological
// segmentation of Japanese runs, which carry no whitespace between words.
type KagomeTokenizer struct {
	t *tokenizer.Tokenizer
}

// NewKagomeTokenizer loads the IPA dictionary.
func NewKagomeTokenizer() (*KagomeTokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("failed to init kagome tokenizer: %w", err)
	}
	return &KagomeTokenizer{t: t}, nil
}

// Tokenize is safe for concurrent use; kagome tokenizers hold no per-call state.
func (k *KagomeTokenizer) Tokenize(text string) []string {
	fields := domain.SplitTerms(text)
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if !containsJapanese(field) {
			out = append(out, field)
			continue
		}
		for _, seg := range k.t.Wakati(field) {
			seg = strings.TrimSpace(seg)
			if seg != "" {
				out = append(out, seg)
			}
		}
	}
	return out
}

func (k *KagomeTokenizer) Name() string { return "kagome" }

func containsJapanese(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}

// New returns the tokenizer registered under name.
func New(name string) (domain.Tokenizer, error) {
	switch name {
	case "", "simple":
		return domain.NewSimpleTokenizer(), nil
	case "kagome":
		return NewKagomeTokenizer()
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", name)
	}
}

var _ domain.Tokenizer = (*KagomeTokenizer)(nil)
