package rag_augur

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEncoder struct {
	mock.Mock
}

func (m *mockEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *mockEncoder) Version() string { return "mock-v1" }

func TestCachedEncoder_OnlyEncodesMisses(t *testing.T) {
	inner := new(mockEncoder)
	inner.On("Encode", mock.Anything, []string{"a"}).Return([][]float32{{1, 0}}, nil).Once()
	inner.On("Encode", mock.Anything, []string{"b"}).Return([][]float32{{0, 1}}, nil).Once()

	enc := NewCachedEncoder(inner, 8, time.Minute)

	first, err := enc.Encode(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}}, first)

	second, err := enc.Encode(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, second)

	third, err := enc.Encode(context.Background(), []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 0}}, third)

	inner.AssertExpectations(t)
	assert.Equal(t, "mock-v1", enc.Version())
	assert.Equal(t, 2, enc.(*CachedEncoder).Len())
}

func TestCachedEncoder_ErrorsAreNotCached(t *testing.T) {
	inner := new(mockEncoder)
	inner.On("Encode", mock.Anything, []string{"a"}).Return(nil, errors.New("down")).Once()
	inner.On("Encode", mock.Anything, []string{"a"}).Return([][]float32{{1}}, nil).Once()

	enc := NewCachedEncoder(inner, 8, time.Minute)

	_, err := enc.Encode(context.Background(), []string{"a"})
	require.Error(t, err)

	vecs, err := enc.Encode(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}}, vecs)
	inner.AssertExpectations(t)
}

func TestCachedEncoder_DisabledReturnsInner(t *testing.T) {
	inner := new(mockEncoder)
	assert.Same(t, inner, NewCachedEncoder(inner, 0, time.Minute))
}
