package service

import (
	"context"
	"strings"

	"github.com/gradnav/gradnav/internal/domain"
)

// AnswerOptions tunes a single answer request.
type AnswerOptions struct {
	TopK     int
	SchoolID string
	PageType domain.PageType
	Expand   bool
}

// Answer is a grounded answer with the results it cited.
type Answer struct {
	Text    string
	Sources []domain.RetrievalResult
}

// AnswerService produces a single grounded answer per question: retrieve,
// audit, assemble context, one chat completion without tools.
type AnswerService struct {
	retriever *Retriever
	expander  *Expander
	auditor   *Auditor
	chat      ChatClient
}

// NewAnswerService creates a new AnswerService instance. expander may be nil,
// in which case Expand requests fall back to plain retrieval.
func NewAnswerService(retriever *Retriever, expander *Expander, auditor *Auditor, chat ChatClient) *AnswerService {
	return &AnswerService{
		retriever: retriever,
		expander:  expander,
		auditor:   auditor,
		chat:      chat,
	}
}

// Ask answers a question from indexed pages. An empty result set yields a
// fixed "nothing found" answer rather than an error; transport failures are
// returned as errors.
func (s *AnswerService) Ask(ctx context.Context, question string, opts AnswerOptions) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuery
	}

	var results []domain.RetrievalResult
	var err error
	if opts.Expand && s.expander != nil {
		results, err = s.expander.SearchExpanded(ctx, question, opts.TopK)
	} else {
		results, err = s.retriever.Search(ctx, question, opts.TopK, SearchFilters{
			SchoolID: opts.SchoolID,
			PageType: opts.PageType,
		})
	}
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Answer{Text: noRelevantInformation}, nil
	}

	results = s.auditor.Annotate(results)

	messages := []ChatMessage{
		{Role: RoleSystem, Content: answerSystemPrompt},
		{Role: RoleUser, Content: "Sourced material:\n\n" + BuildAnswerContext(results, defaultContextBudget) + "\n\nQuestion: " + question},
	}
	reply, err := s.chat.Chat(ctx, messages, nil)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "answer generation failed", err)
	}

	return &Answer{Text: reply.Content, Sources: results}, nil
}
