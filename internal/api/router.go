// Package api serves the JSON interface to uploads, samples and exports.
package api

import (
	"net/http"
	"time"

	"failureforward/internal/importer"
	"failureforward/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler holds the dependencies of the JSON API
type Handler struct {
	importer  *importer.Service
	repo      ports.SampleRepository
	maxUpload int64
}

// NewHandler creates the API handler. maxUpload caps multipart bodies.
func NewHandler(importer *importer.Service, repo ports.SampleRepository, maxUpload int64) *Handler {
	return &Handler{importer: importer, repo: repo, maxUpload: maxUpload}
}

// Router mounts every endpoint under /api
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/schema", h.handleSchema)

		r.Post("/uploads", h.handleUpload)
		r.Post("/uploads/{id}/duplicates", h.handleDuplicates)
		r.Post("/uploads/{id}/import", h.handleImport)

		r.Get("/samples", h.handleListSamples)
		r.Get("/samples/{id}", h.handleGetSample)
		r.Delete("/samples/{id}", h.handleDeleteSample)

		r.Get("/search", h.handleSearch)
		r.Get("/stats", h.handleStats)
		r.Get("/export", h.handleExport)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, notFound("endpoint"))
	})
	return r
}
