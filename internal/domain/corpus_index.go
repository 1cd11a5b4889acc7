package domain

import (
	"fmt"
	"time"
)

// BuildOptions controls CorpusIndex construction.
type BuildOptions struct {
	// RequireNonEmpty makes an empty document set an error.
	RequireNonEmpty bool
	// EmbedderVersion records which encoder produced the embeddings.
	EmbedderVersion string
}

// CorpusIndex is the immutable in-memory index over a document set.
// It holds BM25 term statistics and L2-normalized embeddings.
// A changed corpus means building a new index; nothing here is mutated.
type CorpusIndex struct {
	docs      []Document
	positions map[string]int

	termFreqs []map[string]int
	docLens   []int
	docFreq   map[string]int
	avgDocLen float64
	tokenizer Tokenizer

	vectors [][]float32
	dim     int

	embedderVersion string
	fingerprint     string
	builtAt         time.Time
}

// BuildCorpusIndex tokenizes docs, gathers term statistics and normalizes
// embeddings. embeddings[i] belongs to docs[i].
func BuildCorpusIndex(docs []Document, embeddings [][]float32, tok Tokenizer, opts BuildOptions) (*CorpusIndex, error) {
	if len(docs) == 0 && opts.RequireNonEmpty {
		return nil, ErrEmptyCorpus
	}
	if len(embeddings) != len(docs) {
		return nil, fmt.Errorf("%w: %d embeddings for %d documents", ErrDimensionMismatch, len(embeddings), len(docs))
	}
	if tok == nil {
		tok = NewSimpleTokenizer()
	}

	idx := &CorpusIndex{
		docs:            make([]Document, len(docs)),
		positions:       make(map[string]int, len(docs)),
		termFreqs:       make([]map[string]int, len(docs)),
		docLens:         make([]int, len(docs)),
		docFreq:         make(map[string]int),
		tokenizer:       tok,
		vectors:         make([][]float32, len(docs)),
		embedderVersion: opts.EmbedderVersion,
		builtAt:         time.Now(),
	}
	copy(idx.docs, docs)

	totalLen := 0
	for i, doc := range docs {
		if _, dup := idx.positions[doc.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateDocument, doc.ID)
		}
		idx.positions[doc.ID] = i

		terms := tok.Tokenize(doc.Text)
		tf := make(map[string]int, len(terms))
		for _, term := range terms {
			tf[term]++
		}
		for term := range tf {
			idx.docFreq[term]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(terms)
		totalLen += len(terms)

		vec := embeddings[i]
		if i == 0 {
			idx.dim = len(vec)
		} else if len(vec) != idx.dim {
			return nil, fmt.Errorf("%w: document %q has %d, expected %d", ErrDimensionMismatch, doc.ID, len(vec), idx.dim)
		}
		if !isFinite(vec) {
			return nil, fmt.Errorf("%w: document %q", ErrNonFiniteEmbedding, doc.ID)
		}
		idx.vectors[i] = Normalize(vec)
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}
	idx.fingerprint = NewFingerprintPolicy().Compute(idx.docs)

	return idx, nil
}

// Len returns the number of indexed documents.
func (c *CorpusIndex) Len() int { return len(c.docs) }

// DocumentAt returns the document at insertion position i.
func (c *CorpusIndex) DocumentAt(i int) Document { return c.docs[i] }

// Document looks up a document by id.
func (c *CorpusIndex) Document(id string) (Document, bool) {
	i, ok := c.positions[id]
	if !ok {
		return Document{}, false
	}
	return c.docs[i], true
}

// Documents returns a copy of the documents in insertion order.
func (c *CorpusIndex) Documents() []Document {
	out := make([]Document, len(c.docs))
	copy(out, c.docs)
	return out
}

// TermFrequency returns how often term occurs in the document at position i.
func (c *CorpusIndex) TermFrequency(i int, term string) int {
	return c.termFreqs[i][term]
}

// DocumentFrequency returns the number of documents containing term.
func (c *CorpusIndex) DocumentFrequency(term string) int {
	return c.docFreq[term]
}

// DocumentLength is the token count of the document at position i.
func (c *CorpusIndex) DocumentLength(i int) int { return c.docLens[i] }

// AverageDocumentLength is the mean token count over the corpus.
func (c *CorpusIndex) AverageDocumentLength() float64 { return c.avgDocLen }

// VocabularySize is the number of distinct terms.
func (c *CorpusIndex) VocabularySize() int { return len(c.docFreq) }

// Tokenizer returns the tokenizer used at build time.
func (c *CorpusIndex) Tokenizer() Tokenizer { return c.tokenizer }

// Vector returns the normalized embedding at position i. Callers must not modify it.
func (c *CorpusIndex) Vector(i int) []float32 { return c.vectors[i] }

// Dimension is the embedding width, 0 for an empty corpus.
func (c *CorpusIndex) Dimension() int { return c.dim }

func (c *CorpusIndex) EmbedderVersion() string { return c.embedderVersion }

func (c *CorpusIndex) Fingerprint() string { return c.fingerprint }

func (c *CorpusIndex) BuiltAt() time.Time { return c.builtAt }
