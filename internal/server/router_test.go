package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradnav/gradnav/internal/api/handlers"
	"github.com/gradnav/gradnav/internal/domain"
	"github.com/gradnav/gradnav/internal/service"
)

type stubSearchService struct {
	results []domain.RetrievalResult
}

func (s *stubSearchService) Search(ctx context.Context, query string, topK int, filters service.SearchFilters) ([]domain.RetrievalResult, error) {
	return s.results, nil
}

type stubAskService struct{}

func (s *stubAskService) Ask(ctx context.Context, question string, opts service.AnswerOptions) (*service.Answer, error) {
	return &service.Answer{Text: "stub answer"}, nil
}

type stubAgentService struct{}

func (s *stubAgentService) Run(ctx context.Context, question string) (*service.AgentResult, error) {
	return &service.AgentResult{Answer: "stub agent answer"}, nil
}

type stubIngestService struct{}

func (s *stubIngestService) IngestBatch(ctx context.Context, inputs []service.PageInput) (*service.IngestReport, error) {
	return &service.IngestReport{Pages: len(inputs)}, nil
}

func (s *stubIngestService) DeletePage(ctx context.Context, pageID int64) error {
	return nil
}

func newTestRouter() http.Handler {
	auditor := service.NewAuditor()
	return NewRouter(RouterConfig{
		SearchHandler: handlers.NewSearchHandler(&stubSearchService{}, nil, auditor),
		AskHandler:    handlers.NewAskHandler(&stubAskService{}, &stubAgentService{}),
		PagesHandler:  handlers.NewPagesHandler(&stubIngestService{}),
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_SearchRoute(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"deadline"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AskRoute(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"deadline?"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stub answer")
}

func TestRouter_PagesRoute(t *testing.T) {
	router := newTestRouter()

	body := `{"pages":[{"url":"https://www.cmu.edu/admissions","raw_text":"text"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/pages", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_DeletePageRoute(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodDelete, "/v1/pages/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_OversizedBodyRejected(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"x"}`))
	req.ContentLength = 6 * 1024 * 1024
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
