package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"voice-agent/internal/models"
)

type MockVectorSearcher struct {
	mock.Mock
}

func (m *MockVectorSearcher) SearchDocuments(ctx context.Context, query string, limit int) ([]models.DocumentReference, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DocumentReference), args.Error(1)
}

func storedDocs() []models.DocumentReference {
	return []models.DocumentReference{
		{Name: "Door Overhaul Guide", Snippet: "Door sensors must be recalibrated after replacement."},
	}
}

func TestSimilarityRetriever_AnswersFromDocuments(t *testing.T) {
	searcher := new(MockVectorSearcher)
	searcher.On("SearchDocuments", mock.Anything, "door sensor", 3).Return(storedDocs(), nil)
	gen := &fakeGenerator{fn: func(ctx context.Context, prompt string) (string, error) {
		return "Recalibrate the sensor (Door Overhaul Guide).", nil
	}}

	r := NewSimilarityRetriever(searcher, gen, nil, 3, NewTestLogger(t))
	res, err := r.Search(context.Background(), "door sensor")

	require.NoError(t, err)
	assert.Equal(t, "Recalibrate the sensor (Door Overhaul Guide).", res.Answer)
	assert.Equal(t, storedDocs(), res.Sources)
	assert.Contains(t, gen.prompts[0], "Door sensors must be recalibrated")
	searcher.AssertExpectations(t)
}

func TestSimilarityRetriever_GenerationFailureKeepsDocuments(t *testing.T) {
	searcher := new(MockVectorSearcher)
	searcher.On("SearchDocuments", mock.Anything, "door sensor", 5).Return(storedDocs(), nil)
	gen := &fakeGenerator{fn: func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("GENERATION_FAILED")
	}}

	r := NewSimilarityRetriever(searcher, gen, nil, 0, NewTestLogger(t))
	res, err := r.Search(context.Background(), "door sensor")

	require.NoError(t, err)
	assert.Equal(t, "Door sensors must be recalibrated after replacement.", res.Answer)
	assert.Len(t, res.Sources, 1)
}

func TestSimilarityRetriever_FallsBackWhenEmpty(t *testing.T) {
	searcher := new(MockVectorSearcher)
	searcher.On("SearchDocuments", mock.Anything, "brakes", 5).Return([]models.DocumentReference{}, nil)

	r := NewSimilarityRetriever(searcher, okGenerator(), okRetriever(), 5, NewTestLogger(t))
	res, err := r.Search(context.Background(), "brakes")

	require.NoError(t, err)
	assert.Equal(t, brakeResult(), res)
}

func TestSimilarityRetriever_SearchError(t *testing.T) {
	t.Run("with fallback", func(t *testing.T) {
		searcher := new(MockVectorSearcher)
		searcher.On("SearchDocuments", mock.Anything, "brakes", 5).Return(nil, errors.New("connection refused"))

		r := NewSimilarityRetriever(searcher, okGenerator(), okRetriever(), 5, NewTestLogger(t))
		res, err := r.Search(context.Background(), "brakes")

		require.NoError(t, err)
		assert.Equal(t, "Check the brake caliper seals.", res.Answer)
	})

	t.Run("without fallback", func(t *testing.T) {
		searcher := new(MockVectorSearcher)
		searcher.On("SearchDocuments", mock.Anything, "brakes", 5).Return(nil, errors.New("connection refused"))

		r := NewSimilarityRetriever(searcher, okGenerator(), nil, 5, NewTestLogger(t))
		res, err := r.Search(context.Background(), "brakes")

		assert.Nil(t, res)
		assert.True(t, errors.Is(err, ErrRetrievalFailed))
	})
}

func TestSimilarityRetriever_EmptyWithoutFallback(t *testing.T) {
	searcher := new(MockVectorSearcher)
	searcher.On("SearchDocuments", mock.Anything, "brakes", 5).Return([]models.DocumentReference{}, nil)

	r := NewSimilarityRetriever(searcher, okGenerator(), nil, 5, NewTestLogger(t))
	res, err := r.Search(context.Background(), "brakes")

	require.NoError(t, err)
	assert.Empty(t, res.Sources)
	assert.Empty(t, res.Answer)
}
