package retrieval_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"
	"time"

	"rag-governor/internal/domain"
	"rag-governor/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockVectorEncoder is a test double for domain.VectorEncoder.
type MockVectorEncoder struct {
	mock.Mock
}

func (m *MockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) Version() string { return "mock-encoder" }

// blockingEncoder waits for the context to end.
type blockingEncoder struct{}

func (blockingEncoder) Encode(ctx context.Context, _ []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingEncoder) Version() string { return "blocking" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func buildSampleIndex(t *testing.T) *domain.CorpusIndex {
	t.Helper()
	docs := []domain.Document{
		{ID: "doc_0", Text: "Intro to the system"},
		{ID: "doc_1", Text: "Architecture overview"},
		{ID: "doc_2", Text: "Privacy guarantees and GDPR"},
	}
	embeddings := [][]float32{{3, 4, 0}, {0, 0, 2}, {1, 1, 1}}
	idx, err := domain.BuildCorpusIndex(docs, embeddings, domain.NewSimpleTokenizer(), domain.BuildOptions{})
	require.NoError(t, err)
	return idx
}

func assertOrdered(t *testing.T, hits []domain.RankedHit) {
	t.Helper()
	for i := 1; i < len(hits); i++ {
		prev, cur := hits[i-1], hits[i]
		if prev.Score == cur.Score {
			assert.Less(t, prev.DocID, cur.DocID, "tie at %d must be broken by ascending id", i)
		} else {
			assert.Greater(t, prev.Score, cur.Score, "hits must descend at %d", i)
		}
	}
}

func TestLexicalRanker_PrivacyQuery(t *testing.T) {
	idx := buildSampleIndex(t)
	ranker := retrieval.NewLexicalRanker()

	hits, err := ranker.Rank(context.Background(), idx, "privacy guarantees", 2)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.LessOrEqual(t, len(hits), 2)
	assert.Equal(t, "doc_2", hits[0].DocID)

	avgdl := 10.0 / 3.0
	idf := math.Log(1 + (3-1+0.5)/(1+0.5))
	norm := 1 - retrieval.BM25B + retrieval.BM25B*4/avgdl
	expected := 2 * idf * (1 * (retrieval.BM25K1 + 1)) / (1 + retrieval.BM25K1*norm)
	assert.InDelta(t, expected, hits[0].Score, 1e-9)
}

func TestLexicalRanker_NeverPads(t *testing.T) {
	idx := buildSampleIndex(t)

	hits := retrieval.ScoreBM25(idx, []string{"gdpr"}, 3)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc_2", hits[0].DocID)

	assert.Empty(t, retrieval.ScoreBM25(idx, []string{"nothing"}, 3))
	assert.Empty(t, retrieval.ScoreBM25(idx, nil, 3))
}

func TestLexicalRanker_EmptyQueryYieldsZeroHits(t *testing.T) {
	idx := buildSampleIndex(t)
	hits, err := retrieval.NewLexicalRanker().Rank(context.Background(), idx, " ?!, ", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLexicalRanker_TiesBrokenByID(t *testing.T) {
	docs := []domain.Document{
		{ID: "doc_c", Text: "alpha beta"},
		{ID: "doc_a", Text: "alpha beta"},
		{ID: "doc_b", Text: "alpha beta"},
	}
	idx, err := domain.BuildCorpusIndex(docs, [][]float32{{1}, {1}, {1}}, nil, domain.BuildOptions{})
	require.NoError(t, err)

	hits := retrieval.ScoreBM25(idx, []string{"alpha"}, 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "doc_a", hits[0].DocID)
	assert.Equal(t, "doc_b", hits[1].DocID)
	assert.Equal(t, hits[0].Score, hits[1].Score)
}

func TestRankers_OrderingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocab := []string{"alpha", "beta", "gamma", "delta", "privacy", "index", "vector"}
	encoder := new(MockVectorEncoder)
	vectorRanker := retrieval.NewVectorRanker(encoder, 0, testLogger())

	for round := 0; round < 25; round++ {
		n := 1 + rng.Intn(12)
		docs := make([]domain.Document, n)
		embeddings := make([][]float32, n)
		for i := range docs {
			words := make([]string, 1+rng.Intn(6))
			for w := range words {
				words[w] = vocab[rng.Intn(len(vocab))]
			}
			docs[i] = domain.Document{ID: fmt.Sprintf("doc_%02d", i), Text: fmt.Sprint(words)}
			// Small integer components produce frequent ties.
			embeddings[i] = []float32{float32(rng.Intn(3)), float32(rng.Intn(3)), 1}
		}
		idx, err := domain.BuildCorpusIndex(docs, embeddings, nil, domain.BuildOptions{})
		require.NoError(t, err)

		k := 1 + rng.Intn(15)
		query := vocab[rng.Intn(len(vocab))] + " " + vocab[rng.Intn(len(vocab))]

		lexical, err := retrieval.NewLexicalRanker().Rank(context.Background(), idx, query, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(lexical), min(k, n))
		assertOrdered(t, lexical)

		encoder.On("Encode", mock.Anything, []string{query}).Return([][]float32{{1, 1, 1}}, nil).Once()
		vector, err := vectorRanker.Rank(context.Background(), idx, query, k)
		require.NoError(t, err)
		assert.Len(t, vector, min(k, n))
		assertOrdered(t, vector)
	}
	encoder.AssertExpectations(t)
}

func TestVectorRanker_DeterministicTopOne(t *testing.T) {
	idx := buildSampleIndex(t)
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, []string{"privacy guarantees"}).Return([][]float32{{3, 4, 0}}, nil)

	ranker := retrieval.NewVectorRanker(encoder, time.Second, testLogger())
	first, err := ranker.Rank(context.Background(), idx, "privacy guarantees", 1)
	require.NoError(t, err)
	second, err := ranker.Rank(context.Background(), idx, "privacy guarantees", 1)
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, "doc_0", first[0].DocID)
	assert.InDelta(t, 1.0, first[0].Score, 1e-6)
}

func TestVectorRanker_ProviderFailure(t *testing.T) {
	idx := buildSampleIndex(t)
	encoder := new(MockVectorEncoder)
	cause := errors.New("connection refused")
	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil, cause)

	_, err := retrieval.NewVectorRanker(encoder, time.Second, testLogger()).Rank(context.Background(), idx, "q", 2)
	var eue *domain.EmbeddingUnavailableError
	require.True(t, errors.As(err, &eue))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "mock-encoder", eue.Provider)
}

func TestVectorRanker_Timeout(t *testing.T) {
	idx := buildSampleIndex(t)
	ranker := retrieval.NewVectorRanker(blockingEncoder{}, 10*time.Millisecond, testLogger())

	_, err := ranker.Rank(context.Background(), idx, "q", 2)
	var eue *domain.EmbeddingUnavailableError
	require.True(t, errors.As(err, &eue))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestVectorRanker_DimensionMismatch(t *testing.T) {
	idx := buildSampleIndex(t)
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{1, 0}}, nil)

	_, err := retrieval.NewVectorRanker(encoder, 0, testLogger()).Rank(context.Background(), idx, "q", 2)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorRanker_EmptyCorpusSkipsProvider(t *testing.T) {
	idx, err := domain.BuildCorpusIndex(nil, nil, nil, domain.BuildOptions{})
	require.NoError(t, err)
	encoder := new(MockVectorEncoder)

	hits, err := retrieval.NewVectorRanker(encoder, 0, testLogger()).Rank(context.Background(), idx, "q", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
	encoder.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything)
}

func TestRouter_Resolve(t *testing.T) {
	lexical := retrieval.NewLexicalRanker()
	vector := retrieval.NewVectorRanker(new(MockVectorEncoder), 0, testLogger())
	router := retrieval.NewRouter(lexical, vector)

	r, err := router.Resolve("A")
	require.NoError(t, err)
	assert.Equal(t, domain.VariantLexical, r.Variant())

	r, err = router.Resolve("B")
	require.NoError(t, err)
	assert.Equal(t, domain.VariantVector, r.Variant())

	for _, tag := range []string{"", "a", "b", "AB", "C"} {
		_, err := router.Resolve(tag)
		var ive *domain.InvalidVariantError
		assert.True(t, errors.As(err, &ive), "tag %q", tag)
	}
}
