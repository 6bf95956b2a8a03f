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

type SearchService interface {
	Search(ctx context.Context, query string, topK int, filters service.SearchFilters) ([]domain.RetrievalResult, error)
}

type ExpandedSearchService interface {
	SearchExpanded(ctx context.Context, query string, topK int) ([]domain.RetrievalResult, error)
}

type SearchHandler struct {
	svc      SearchService
	expander ExpandedSearchService
	auditor  *service.Auditor
}

func NewSearchHandler(svc SearchService, expander ExpandedSearchService, auditor *service.Auditor) *SearchHandler {
	return &SearchHandler{svc: svc, expander: expander, auditor: auditor}
}

type SearchRequest struct {
	Query    string `json:"query"`
	SchoolID string `json:"school_id,omitempty"`
	PageType string `json:"page_type,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
	Expand   bool   `json:"expand,omitempty"`
}

type SearchResultResponse struct {
	ChunkID        int64                  `json:"chunk_id"`
	SchoolID       string                 `json:"school_id"`
	UniversityName string                 `json:"university_name,omitempty"`
	PageType       string                 `json:"page_type"`
	SourceURL      string                 `json:"source_url,omitempty"`
	Text           string                 `json:"text"`
	VectorScore    float64                `json:"vector_score"`
	RerankScore    *float64               `json:"rerank_score,omitempty"`
	Warnings       []domain.SanityWarning `json:"warnings,omitempty"`
}

type SearchResponse struct {
	Results []*SearchResultResponse `json:"results"`
}

// Search handles POST /v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		api.HandleError(w, domain.ErrEmptyQuery)
		return
	}
	pageType := domain.PageType(req.PageType)
	if req.PageType != "" && !pageType.IsValid() {
		api.HandleError(w, domain.ErrInvalidPageType)
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), "search", telemetry.SpanAttributes{
		SchoolID:  req.SchoolID,
		PageType:  req.PageType,
		Query:     req.Query,
		Operation: "search",
	})
	defer span.End()

	var results []domain.RetrievalResult
	var err error
	if req.Expand && h.expander != nil {
		results, err = h.expander.SearchExpanded(ctx, req.Query, req.TopK)
	} else {
		results, err = h.svc.Search(ctx, req.Query, req.TopK, service.SearchFilters{
			SchoolID: req.SchoolID,
			PageType: pageType,
		})
	}
	if err != nil {
		span.SetError(err)
		api.HandleError(w, err)
		return
	}

	results = h.auditor.Annotate(results)
	api.Success(w, http.StatusOK, toSearchResponse(results))
}

func toSearchResponse(results []domain.RetrievalResult) *SearchResponse {
	out := &SearchResponse{Results: make([]*SearchResultResponse, 0, len(results))}
	for _, result := range results {
		out.Results = append(out.Results, &SearchResultResponse{
			ChunkID:        result.ChunkID,
			SchoolID:       result.SchoolID,
			UniversityName: result.UniversityName,
			PageType:       string(result.PageType),
			SourceURL:      result.SourceURL,
			Text:           result.Text,
			VectorScore:    result.VectorScore,
			RerankScore:    result.RerankScore,
			Warnings:       result.SanityWarnings,
		})
	}
	return out
}
