package ui

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"failureforward/domain/core"
	"failureforward/internal/errors"
	"failureforward/internal/export"
	"failureforward/internal/importer"
	"failureforward/internal/mapping"
	"failureforward/internal/search"
	"failureforward/internal/stats"
	"failureforward/internal/uploads"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleAddForm(c *gin.Context) {
	s.renderTemplate(c, http.StatusOK, "add.html", gin.H{"Page": "add"})
}

func (s *Server) renderAddError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[UI] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	s.renderTemplate(c, status, "add.html", gin.H{"Page": "add", "Error": err.Error()})
}

// handleUpload stages the file and shows the mapping preview
func (s *Server) handleUpload(c *gin.Context) {
	if err := uploads.LimitRequest(c.Writer, c.Request, s.maxUpload); err != nil {
		s.renderAddError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		if limitErr := uploads.LimitError(err, s.maxUpload); limitErr != nil {
			s.renderAddError(c, limitErr)
			return
		}
		s.renderAddError(c, errors.InvalidInput("choose a file to upload"))
		return
	}
	file, err := header.Open()
	if err != nil {
		s.renderAddError(c, errors.Wrap(err, "failed to read upload"))
		return
	}
	defer file.Close()

	preview, err := s.importer.Stage(c.Request.Context(), file, header.Filename)
	if err != nil {
		s.renderAddError(c, err)
		return
	}

	s.renderTemplate(c, http.StatusOK, "preview.html", gin.H{
		"Page":           "add",
		"Preview":        preview,
		"SkipDuplicates": len(preview.Duplicates) > 0,
	})
}

// importOptions reads the mapping form. Headers and fields are posted as
// parallel lists.
func importOptions(c *gin.Context) (importer.Options, error) {
	headers := c.PostFormArray("header")
	fields := c.PostFormArray("field")
	if len(headers) != len(fields) {
		return importer.Options{}, errors.InvalidInput("mapping form is incomplete")
	}

	opts := importer.Options{
		ExtraScientist: c.PostForm("extra_scientist"),
		ExtraProjectID: c.PostForm("extra_project_id"),
		SkipDuplicates: c.PostForm("skip_duplicates") != "",
	}
	if len(headers) > 0 {
		pairs := make(map[string]string, len(headers))
		for i, h := range headers {
			pairs[h] = fields[i]
		}
		m, err := mapping.Parse(pairs)
		if err != nil {
			return opts, errors.Wrap(err, "invalid mapping")
		}
		opts.Mapping = m
	}
	return opts, nil
}

// handleImport imports a staged upload with the reviewed mapping
func (s *Server) handleImport(c *gin.Context) {
	id, err := core.ParseID(c.PostForm("upload_id"))
	if err != nil {
		s.renderAddError(c, errors.Wrap(err, "invalid upload id"))
		return
	}
	opts, err := importOptions(c)
	if err != nil {
		s.renderAddError(c, err)
		return
	}

	result, err := s.importer.ImportUpload(c.Request.Context(), id, opts)
	if err != nil {
		if core.IsNotFoundError(err) {
			err = errors.Wrap(err, "the upload has expired or was already imported, upload the file again")
		}
		s.renderAddError(c, err)
		return
	}

	s.renderTemplate(c, http.StatusOK, "result.html", gin.H{"Page": "add", "Result": result})
}

func (s *Server) handleSearch(c *gin.Context) {
	var criteria search.Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		s.renderTemplate(c, http.StatusBadRequest, "search.html", gin.H{"Page": "search", "Criteria": criteria, "Error": err.Error()})
		return
	}

	data := gin.H{"Page": "search", "Criteria": criteria}
	if !criteria.IsEmpty() {
		results, err := s.repo.Search(c.Request.Context(), criteria)
		if err != nil {
			log.Printf("[UI] search failed: %v", err)
			s.renderTemplate(c, http.StatusInternalServerError, "search.html", gin.H{"Page": "search", "Criteria": criteria, "Error": "Search failed"})
			return
		}
		data["Searched"] = true
		data["Results"] = results
	}
	s.renderTemplate(c, http.StatusOK, "search.html", data)
}

func (s *Server) handleSamples(c *gin.Context) {
	samples, err := s.repo.List(c.Request.Context())
	if err != nil {
		log.Printf("[UI] list failed: %v", err)
		c.String(http.StatusInternalServerError, "failed to load samples")
		return
	}
	s.renderTemplate(c, http.StatusOK, "samples.html", gin.H{
		"Page":    "samples",
		"Samples": samples,
		"Stats":   stats.Compute(samples),
	})
}

func (s *Server) handleExport(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		samples, err := s.repo.List(c.Request.Context())
		if err != nil {
			log.Printf("[UI] export failed: %v", err)
			c.String(http.StatusInternalServerError, "failed to load samples")
			return
		}

		c.Header("Content-Type", export.ContentTypes[format])
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(format)))
		c.Status(http.StatusOK)
		if err := export.Write(c.Writer, format, samples); err != nil {
			log.Printf("[UI] %s export failed: %v", strings.ToUpper(format), err)
		}
	}
}
