package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gradnav/gradnav/internal/api"
	"github.com/gradnav/gradnav/internal/domain"
	"github.com/gradnav/gradnav/internal/service"
	"github.com/gradnav/gradnav/internal/telemetry"
)

type IngestService interface {
	IngestBatch(ctx context.Context, inputs []service.PageInput) (*service.IngestReport, error)
	DeletePage(ctx context.Context, pageID int64) error
}

type PagesHandler struct {
	svc IngestService
}

func NewPagesHandler(svc IngestService) *PagesHandler {
	return &PagesHandler{svc: svc}
}

type PageRequest struct {
	URL        string                `json:"url"`
	RawText    string                `json:"raw_text"`
	SchoolHint string                `json:"school_hint,omitempty"`
	PageType   string                `json:"page_type,omitempty"`
	Metadata   *domain.ChunkMetadata `json:"metadata,omitempty"`
}

type IngestRequest struct {
	Pages []PageRequest `json:"pages"`
}

type IngestResponse struct {
	Pages   int `json:"pages"`
	Chunks  int `json:"chunks"`
	Skipped int `json:"skipped"`
}

// Ingest handles POST /v1/pages
func (h *PagesHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Pages) == 0 {
		api.Error(w, http.StatusBadRequest, "pages cannot be empty")
		return
	}
	for _, page := range req.Pages {
		if page.URL == "" {
			api.Error(w, http.StatusBadRequest, "every page needs a url")
			return
		}
		if page.PageType != "" && !domain.PageType(page.PageType).IsValid() {
			api.HandleError(w, domain.ErrInvalidPageType)
			return
		}
	}

	ctx, span := telemetry.StartSpan(r.Context(), "ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	inputs := make([]service.PageInput, 0, len(req.Pages))
	for _, page := range req.Pages {
		inputs = append(inputs, service.PageInput{
			URL:        page.URL,
			RawText:    page.RawText,
			SchoolHint: page.SchoolHint,
			PageType:   domain.PageType(page.PageType),
			Metadata:   page.Metadata,
		})
	}

	report, err := h.svc.IngestBatch(ctx, inputs)
	if err != nil {
		span.SetError(err)
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &IngestResponse{
		Pages:   report.Pages,
		Chunks:  report.Chunks,
		Skipped: report.Skipped,
	})
}

// Delete handles DELETE /v1/pages/{id}
func (h *PagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	pageID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || pageID <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid page id")
		return
	}

	if err := h.svc.DeletePage(r.Context(), pageID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
