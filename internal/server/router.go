package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gradnav/gradnav/internal/api"
	"github.com/gradnav/gradnav/internal/api/handlers"
	"github.com/gradnav/gradnav/internal/api/middleware"
)

type RouterConfig struct {
	SearchHandler *handlers.SearchHandler
	AskHandler    *handlers.AskHandler
	PagesHandler  *handlers.PagesHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", cfg.SearchHandler.Search)
		r.Post("/ask", cfg.AskHandler.Ask)
		r.Post("/pages", cfg.PagesHandler.Ingest)
		r.Delete("/pages/{id}", cfg.PagesHandler.Delete)
	})

	return r
}
