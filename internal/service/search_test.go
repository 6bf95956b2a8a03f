package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gradnav/gradnav/internal/domain"
)

// MockEmbedder mocks the embedding client
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockReranker mocks the cross-encoder client
type MockReranker struct {
	mock.Mock
}

func (m *MockReranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	args := m.Called(ctx, query, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

// MockChunkSearchRepo mocks the vector search repository
type MockChunkSearchRepo struct {
	mock.Mock
}

func (m *MockChunkSearchRepo) SearchByEmbedding(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]domain.RetrievalResult, error) {
	args := m.Called(ctx, embedding, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievalResult), args.Error(1)
}

// MockSearchLogRepo mocks the search log repository
type MockSearchLogRepo struct {
	mock.Mock
}

func (m *MockSearchLogRepo) CreateSearchLog(ctx context.Context, entry SearchLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func fakeCandidates(n int) []domain.RetrievalResult {
	results := make([]domain.RetrievalResult, n)
	for i := range results {
		results[i] = domain.RetrievalResult{
			ChunkID:     int64(i + 1),
			Text:        fmt.Sprintf("candidate chunk %02d about deadlines", i),
			VectorScore: 1.0 - float64(i)*0.01,
		}
	}
	return results
}

func queryEmbedding() [][]float32 {
	return [][]float32{make([]float32, domain.EmbeddingDimensions)}
}

func TestRetriever_Search_OversamplesAndReranks(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	mockReranker := new(MockReranker)
	mockRepo := new(MockChunkSearchRepo)
	r := NewRetriever(mockEmbedder, mockReranker, mockRepo, nil, RetrieverConfig{TopK: 5, OversampleFactor: 3})

	ctx := context.Background()
	candidates := fakeCandidates(15)
	scores := make([]float64, 15)
	for i := range scores {
		// Reverse of the vector order so the rerank visibly reorders.
		scores[i] = float64(i) * 0.1
	}

	mockEmbedder.On("EmbedTexts", ctx, []string{"toefl requirement"}).Return(queryEmbedding(), nil)
	mockRepo.On("SearchByEmbedding", ctx, mock.Anything, SearchFilters{}, 15).Return(candidates, nil)
	mockReranker.On("Score", ctx, "toefl requirement", mock.Anything).Return(scores, nil)

	results, err := r.Search(ctx, "toefl requirement", 5, SearchFilters{})

	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, int64(15), results[0].ChunkID)
	for i := 1; i < len(results); i++ {
		require.NotNil(t, results[i].RerankScore)
		assert.GreaterOrEqual(t, *results[i-1].RerankScore, *results[i].RerankScore)
	}
	mockEmbedder.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
	mockReranker.AssertExpectations(t)
}

func TestRetriever_Search_SkipsRerankForSmallPool(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	mockReranker := new(MockReranker)
	mockRepo := new(MockChunkSearchRepo)
	r := NewRetriever(mockEmbedder, mockReranker, mockRepo, nil, RetrieverConfig{TopK: 5, OversampleFactor: 3})

	ctx := context.Background()
	mockEmbedder.On("EmbedTexts", ctx, mock.Anything).Return(queryEmbedding(), nil)
	mockRepo.On("SearchByEmbedding", ctx, mock.Anything, SearchFilters{}, 15).Return(fakeCandidates(3), nil)

	results, err := r.Search(ctx, "stipend", 5, SearchFilters{})

	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Nil(t, results[0].RerankScore)
	mockReranker.AssertNotCalled(t, "Score", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetriever_Search_NoRerankerSingleStage(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	mockRepo := new(MockChunkSearchRepo)
	r := NewRetriever(mockEmbedder, nil, mockRepo, nil, RetrieverConfig{TopK: 5, OversampleFactor: 3})

	ctx := context.Background()
	mockEmbedder.On("EmbedTexts", ctx, mock.Anything).Return(queryEmbedding(), nil)
	mockRepo.On("SearchByEmbedding", ctx, mock.Anything, SearchFilters{}, 5).Return(fakeCandidates(5), nil)

	results, err := r.Search(ctx, "deadline", 5, SearchFilters{})

	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.Equal(t, int64(1), results[0].ChunkID)
}

func TestRetriever_Search_EmptyQuery(t *testing.T) {
	r := NewRetriever(new(MockEmbedder), nil, new(MockChunkSearchRepo), nil, RetrieverConfig{})

	results, err := r.Search(context.Background(), "   ", 5, SearchFilters{})

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.Empty(t, results)
}

func TestRetriever_Search_EmbeddingFailure(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	r := NewRetriever(mockEmbedder, nil, new(MockChunkSearchRepo), nil, RetrieverConfig{})

	ctx := context.Background()
	mockEmbedder.On("EmbedTexts", ctx, mock.Anything).Return(nil, errors.New("connection refused"))

	results, err := r.Search(ctx, "deadline", 5, SearchFilters{})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeRetrieval, domainErr.Code)
	assert.Empty(t, results)
}

func TestRetriever_Search_RerankFailure(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	mockReranker := new(MockReranker)
	mockRepo := new(MockChunkSearchRepo)
	r := NewRetriever(mockEmbedder, mockReranker, mockRepo, nil, RetrieverConfig{TopK: 2, OversampleFactor: 3})

	ctx := context.Background()
	mockEmbedder.On("EmbedTexts", ctx, mock.Anything).Return(queryEmbedding(), nil)
	mockRepo.On("SearchByEmbedding", ctx, mock.Anything, SearchFilters{}, 6).Return(fakeCandidates(6), nil)
	mockReranker.On("Score", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("model overloaded"))

	results, err := r.Search(ctx, "funding", 2, SearchFilters{})

	require.Error(t, err)
	assert.Empty(t, results)
}

func TestRetriever_Search_WritesSearchLog(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	mockRepo := new(MockChunkSearchRepo)
	mockLogs := new(MockSearchLogRepo)
	r := NewRetriever(mockEmbedder, nil, mockRepo, mockLogs, RetrieverConfig{TopK: 5})

	ctx := context.Background()
	mockEmbedder.On("EmbedTexts", ctx, mock.Anything).Return(queryEmbedding(), nil)
	mockRepo.On("SearchByEmbedding", ctx, mock.Anything, mock.Anything, mock.Anything).Return(fakeCandidates(2), nil)
	mockLogs.On("CreateSearchLog", ctx, mock.MatchedBy(func(entry SearchLogEntry) bool {
		return entry.Mode == SearchModeStandard && entry.ResultCount == 2 && entry.Query == "visa letter"
	})).Return(nil)

	_, err := r.Search(ctx, "visa letter", 5, SearchFilters{SchoolID: "cmu"})

	require.NoError(t, err)
	mockLogs.AssertExpectations(t)
}
