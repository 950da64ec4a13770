package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"failureforward/domain/core"
	"failureforward/domain/sample"
	"failureforward/internal/errors"
	"failureforward/internal/export"
	"failureforward/internal/importer"
	"failureforward/internal/mapping"
	"failureforward/internal/search"
	"failureforward/internal/stats"
	"failureforward/internal/uploads"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// ImportRequest is the body of the duplicate check and import endpoints.
// Mapping values are field labels or "(ignore)".
type ImportRequest struct {
	Mapping        map[string]string `json:"mapping"`
	ExtraScientist string            `json:"extra_scientist"`
	ExtraProjectID string            `json:"extra_project_id"`
	SkipDuplicates bool              `json:"skip_duplicates"`
}

// Options converts the request into importer options
func (req ImportRequest) Options() (importer.Options, error) {
	opts := importer.Options{
		ExtraScientist: req.ExtraScientist,
		ExtraProjectID: req.ExtraProjectID,
		SkipDuplicates: req.SkipDuplicates,
	}
	if len(req.Mapping) > 0 {
		m, err := mapping.Parse(req.Mapping)
		if err != nil {
			return opts, errors.Wrap(err, "invalid mapping")
		}
		opts.Mapping = m
	}
	return opts, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error(), Code: errors.GetCode(err)})
}

func notFound(resource string) error {
	return errors.NotFound(resource)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.Count(r.Context())
	if err != nil {
		writeError(w, r, errors.DatabaseError("database unavailable", err))
		return
	}
	render.JSON(w, r, map[string]interface{}{"status": "ok", "samples": n})
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"fields": sample.Schema, "ignore": sample.Ignore})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := uploads.LimitRequest(w, r, h.maxUpload); err != nil {
		writeError(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if limitErr := uploads.LimitError(err, h.maxUpload); limitErr != nil {
			writeError(w, r, limitErr)
			return
		}
		writeError(w, r, errors.InvalidInput("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	preview, err := h.importer.Stage(r.Context(), file, header.Filename)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, preview)
}

func (h *Handler) decodeImportRequest(w http.ResponseWriter, r *http.Request) (core.ID, importer.Options, bool) {
	id, err := core.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "invalid upload id"))
		return "", importer.Options{}, false
	}

	var req ImportRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			writeError(w, r, errors.InvalidInput(fmt.Sprintf("invalid JSON body: %v", err)))
			return "", importer.Options{}, false
		}
	}
	opts, err := req.Options()
	if err != nil {
		writeError(w, r, err)
		return "", importer.Options{}, false
	}
	return id, opts, true
}

func (h *Handler) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	id, opts, ok := h.decodeImportRequest(w, r)
	if !ok {
		return
	}

	table, _, err := h.importer.LoadUpload(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dups, err := h.importer.FindDuplicates(r.Context(), table, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"duplicates": dups, "count": len(dups)})
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	id, opts, ok := h.decodeImportRequest(w, r)
	if !ok {
		return
	}

	result, err := h.importer.ImportUpload(r.Context(), id, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (h *Handler) handleListSamples(w http.ResponseWriter, r *http.Request) {
	samples, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, r, errors.DatabaseError("failed to list samples", err))
		return
	}
	render.JSON(w, r, map[string]interface{}{"samples": samples, "count": len(samples)})
}

func (h *Handler) sampleID(w http.ResponseWriter, r *http.Request) (core.ID, bool) {
	id, err := core.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "invalid sample id"))
		return "", false
	}
	return id, true
}

func (h *Handler) handleGetSample(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	s, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "failed to get sample"))
		return
	}
	render.JSON(w, r, s)
}

func (h *Handler) handleDeleteSample(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sampleID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, r, errors.Wrap(err, "failed to delete sample"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CriteriaFromQuery reads search parameters from a URL query
func CriteriaFromQuery(r *http.Request) search.Criteria {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 0 {
		limit = 0
	}
	return search.Criteria{
		Query:     q.Get("q"),
		Scientist: q.Get("scientist"),
		SampleID:  q.Get("sample_id"),
		Date:      q.Get("date"),
		Limit:     limit,
	}
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	criteria := CriteriaFromQuery(r)
	if criteria.IsEmpty() {
		render.JSON(w, r, map[string]interface{}{"results": []*sample.Sample{}, "count": 0})
		return
	}

	results, err := h.repo.Search(r.Context(), criteria)
	if err != nil {
		writeError(w, r, errors.DatabaseError("search failed", err))
		return
	}
	render.JSON(w, r, map[string]interface{}{"results": results, "count": len(results)})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	samples, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, r, errors.DatabaseError("failed to list samples", err))
		return
	}
	render.JSON(w, r, stats.Compute(samples))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatCSV
	}
	contentType, ok := export.ContentTypes[format]
	if !ok {
		writeError(w, r, errors.InvalidInput(fmt.Sprintf("unknown export format %q", format)))
		return
	}

	samples, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, r, errors.DatabaseError("failed to list samples", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(format)))
	if err := export.Write(w, format, samples); err != nil {
		log.Printf("[API] export failed: %v", err)
	}
}
