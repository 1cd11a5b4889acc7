package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"rag-governor/internal/domain"
	"rag-governor/internal/usecase"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockVectorEncoder struct {
	mock.Mock
}

func (m *mockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if fn, ok := args.Get(0).(func(context.Context, []string) [][]float32); ok {
		return fn(ctx, texts), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *mockVectorEncoder) Version() string {
	return "mock-encoder"
}

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) Chat(ctx context.Context, messages []domain.Message, maxTokens int) (*domain.LLMResponse, error) {
	args := m.Called(ctx, messages, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LLMResponse), args.Error(1)
}

func (m *mockLLMClient) Version() string {
	return "mock"
}

type mockSynthesizer struct {
	mock.Mock
}

func (m *mockSynthesizer) Generate(ctx context.Context, question string, passages []domain.Passage) (string, error) {
	args := m.Called(ctx, question, passages)
	return args.String(0), args.Error(1)
}

func (m *mockSynthesizer) Name() string {
	return "mock-synth"
}

type mockDocumentSource struct {
	mock.Mock
}

func (m *mockDocumentSource) Load(ctx context.Context) ([]domain.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

func (m *mockDocumentSource) Describe() string {
	return "mock-source"
}

// recordingInstrumentation collects span names and request records.
type recordingInstrumentation struct {
	mu       sync.Mutex
	spans    []string
	ended    map[string]error
	attrs    map[string]any
	requests []usecase.RequestRecord
}

func newRecordingInstrumentation() *recordingInstrumentation {
	return &recordingInstrumentation{ended: map[string]error{}, attrs: map[string]any{}}
}

func (r *recordingInstrumentation) StartSpan(ctx context.Context, name string) (context.Context, usecase.Span) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = append(r.spans, name)
	return ctx, &recordingSpan{owner: r, name: name}
}

func (r *recordingInstrumentation) RecordRequest(_ context.Context, rec usecase.RequestRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, rec)
}

type recordingSpan struct {
	owner *recordingInstrumentation
	name  string
}

func (s *recordingSpan) SetAttribute(key string, value any) {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	s.owner.attrs[key] = value
}

func (s *recordingSpan) End(err error) {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	s.owner.ended[s.name] = err
}

// panickingInstrumentation fails on every call.
type panickingInstrumentation struct{}

func (panickingInstrumentation) StartSpan(context.Context, string) (context.Context, usecase.Span) {
	panic("collector unreachable")
}

func (panickingInstrumentation) RecordRequest(context.Context, usecase.RequestRecord) {
	panic("collector unreachable")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func sampleDocs() []domain.Document {
	return []domain.Document{
		{ID: "doc_0", Text: "Intro to the system"},
		{ID: "doc_1", Text: "Architecture overview"},
		{ID: "doc_2", Text: "Privacy guarantees and GDPR"},
	}
}

func sampleIndex(t *testing.T) *domain.CorpusIndex {
	t.Helper()
	embeddings := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	idx, err := domain.BuildCorpusIndex(sampleDocs(), embeddings, domain.NewSimpleTokenizer(), domain.BuildOptions{})
	require.NoError(t, err)
	return idx
}
