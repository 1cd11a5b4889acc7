// Package localembed provides an in-process embedder for running without a model server.
package localembed

import (
	"context"
	"fmt"
	"hash/fnv"

	"rag-governor/internal/domain"
)

const DefaultDimension = 256

// HashingEncoder maps terms and adjacent term pairs into a fixed number of
// signed buckets. Output is deterministic for a given dimension and tokenizer.
type HashingEncoder struct {
	dim       int
	tokenizer domain.Tokenizer
}

// NewHashingEncoder returns an encoder of the given dimension. A nil tokenizer
// uses the simple tokenizer.
func NewHashingEncoder(dim int, tok domain.Tokenizer) (*HashingEncoder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("hashing encoder dimension must be positive, got %d", dim)
	}
	if tok == nil {
		tok = domain.NewSimpleTokenizer()
	}
	return &HashingEncoder{dim: dim, tokenizer: tok}, nil
}

func (e *HashingEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *HashingEncoder) embed(text string) []float32 {
	vec := make([]float32, e.dim)
	terms := e.tokenizer.Tokenize(text)
	for i, term := range terms {
		e.add(vec, term, 1)
		if i > 0 {
			e.add(vec, terms[i-1]+" "+term, 0.5)
		}
	}
	return vec
}

func (e *HashingEncoder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

func (e *HashingEncoder) Version() string {
	return fmt.Sprintf("hashing-%s-%d", e.tokenizer.Name(), e.dim)
}

var _ domain.VectorEncoder = (*HashingEncoder)(nil)
