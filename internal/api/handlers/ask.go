package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gradnav/gradnav/internal/api"
	"github.com/gradnav/gradnav/internal/domain"
	"github.com/gradnav/gradnav/internal/service"
	"github.com/gradnav/gradnav/internal/telemetry"
)

type AskService interface {
	Ask(ctx context.Context, question string, opts service.AnswerOptions) (*service.Answer, error)
}

type AgentService interface {
	Run(ctx context.Context, question string) (*service.AgentResult, error)
}

type AskHandler struct {
	answers AskService
	agent   AgentService
}

func NewAskHandler(answers AskService, agent AgentService) *AskHandler {
	return &AskHandler{answers: answers, agent: agent}
}

type AskRequest struct {
	Question string `json:"question"`
	SchoolID string `json:"school_id,omitempty"`
	PageType string `json:"page_type,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
	Expand   bool   `json:"expand,omitempty"`
	// Agentic switches to the multi-step tool loop instead of one-shot
	// retrieval.
	Agentic bool `json:"agentic,omitempty"`
}

type AskResponse struct {
	Answer         string                  `json:"answer"`
	Sources        []*SearchResultResponse `json:"sources,omitempty"`
	ToolDispatches int                     `json:"tool_dispatches,omitempty"`
	ForcedStop     bool                    `json:"forced_stop,omitempty"`
}

// Ask handles POST /v1/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		api.HandleError(w, domain.ErrEmptyQuery)
		return
	}
	pageType := domain.PageType(req.PageType)
	if req.PageType != "" && !pageType.IsValid() {
		api.HandleError(w, domain.ErrInvalidPageType)
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), "ask", telemetry.SpanAttributes{
		SchoolID:  req.SchoolID,
		Query:     req.Question,
		Operation: "ask",
	})
	defer span.End()

	if req.Agentic {
		result, err := h.agent.Run(ctx, req.Question)
		if err != nil {
			span.SetError(err)
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusOK, &AskResponse{
			Answer:         result.Answer,
			ToolDispatches: result.ToolDispatches,
			ForcedStop:     result.ForcedStop,
		})
		return
	}

	answer, err := h.answers.Ask(ctx, req.Question, service.AnswerOptions{
		TopK:     req.TopK,
		SchoolID: req.SchoolID,
		PageType: pageType,
		Expand:   req.Expand,
	})
	if err != nil {
		span.SetError(err)
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &AskResponse{
		Answer:  answer.Text,
		Sources: toSearchResponse(answer.Sources).Results,
	})
}
