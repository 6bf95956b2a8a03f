package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gradnav/gradnav/internal/domain"
)

func newTestAnswerService(embedder *MockEmbedder, repo *MockChunkSearchRepo, chat *MockChat) *AnswerService {
	retriever := NewRetriever(embedder, nil, repo, nil, RetrieverConfig{TopK: 5})
	return NewAnswerService(retriever, nil, NewAuditor(), chat)
}

func TestAnswerService_Ask_GroundedAnswer(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	mockRepo := new(MockChunkSearchRepo)
	mockChat := new(MockChat)
	s := newTestAnswerService(mockEmbedder, mockRepo, mockChat)

	ctx := context.Background()
	mockEmbedder.On("EmbedTexts", ctx, mock.Anything).Return(queryEmbedding(), nil)
	mockRepo.On("SearchByEmbedding", ctx, mock.Anything, SearchFilters{SchoolID: "cmu"}, 5).
		Return([]domain.RetrievalResult{
			{ChunkID: 1, SchoolID: "cmu", UniversityName: "Carnegie Mellon University", PageType: domain.PageTypeAdmissions, Text: "Applications are due December 15 for fall admission each year."},
		}, nil)
	mockChat.On("Chat", ctx, mock.MatchedBy(func(messages []ChatMessage) bool {
		return len(messages) == 2 &&
			messages[0].Role == RoleSystem &&
			strings.Contains(messages[1].Content, "Carnegie Mellon University") &&
			strings.Contains(messages[1].Content, "Question: when is the cmu deadline")
	}), mock.Anything).Return(assistantText("The deadline is December 15 (Source 1)."), nil)

	answer, err := s.Ask(ctx, "when is the cmu deadline", AnswerOptions{SchoolID: "cmu"})

	require.NoError(t, err)
	assert.Equal(t, "The deadline is December 15 (Source 1).", answer.Text)
	require.Len(t, answer.Sources, 1)
	mockChat.AssertExpectations(t)
}

func TestAnswerService_Ask_NoResults(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	mockRepo := new(MockChunkSearchRepo)
	mockChat := new(MockChat)
	s := newTestAnswerService(mockEmbedder, mockRepo, mockChat)

	ctx := context.Background()
	mockEmbedder.On("EmbedTexts", ctx, mock.Anything).Return(queryEmbedding(), nil)
	mockRepo.On("SearchByEmbedding", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.RetrievalResult{}, nil)

	answer, err := s.Ask(ctx, "underwater basket weaving phd", AnswerOptions{})

	require.NoError(t, err)
	assert.Equal(t, noRelevantInformation, answer.Text)
	mockChat.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnswerService_Ask_AnnotatesSuspectChunks(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	mockRepo := new(MockChunkSearchRepo)
	mockChat := new(MockChat)
	s := newTestAnswerService(mockEmbedder, mockRepo, mockChat)

	ctx := context.Background()
	mockEmbedder.On("EmbedTexts", ctx, mock.Anything).Return(queryEmbedding(), nil)
	mockRepo.On("SearchByEmbedding", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.RetrievalResult{
			{ChunkID: 1, Text: "Admission requires a minimum GPA of 9.2 for consideration."},
		}, nil)
	mockChat.On("Chat", ctx, mock.MatchedBy(func(messages []ChatMessage) bool {
		return strings.Contains(messages[1].Content, warningBanner)
	}), mock.Anything).Return(assistantText("That figure looks unreliable."), nil)

	answer, err := s.Ask(ctx, "gpa requirement", AnswerOptions{})

	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.NotEmpty(t, answer.Sources[0].SanityWarnings)
	mockChat.AssertExpectations(t)
}

func TestAnswerService_Ask_RetrievalErrorPropagates(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	mockRepo := new(MockChunkSearchRepo)
	mockChat := new(MockChat)
	s := newTestAnswerService(mockEmbedder, mockRepo, mockChat)

	ctx := context.Background()
	mockEmbedder.On("EmbedTexts", ctx, mock.Anything).Return(nil, errors.New("dial tcp: refused"))

	answer, err := s.Ask(ctx, "deadline", AnswerOptions{})

	require.Error(t, err)
	assert.Nil(t, answer)
	mockChat.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnswerService_Ask_EmptyQuestion(t *testing.T) {
	s := newTestAnswerService(new(MockEmbedder), new(MockChunkSearchRepo), new(MockChat))

	_, err := s.Ask(context.Background(), "  ", AnswerOptions{})

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}
