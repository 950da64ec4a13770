// Package ui serves the HTML pages for uploading, searching and exporting
// samples.
package ui

import (
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"failureforward/internal/importer"
	"failureforward/ports"

	"github.com/gin-gonic/gin"
)

// Server represents the web server for the Failure Forward UI
type Server struct {
	router    *gin.Engine
	importer  *importer.Service
	repo      ports.SampleRepository
	templates map[string]*template.Template
	maxUpload int64
}

// NewServer creates the server and its routes. api, when non-nil, is
// mounted under /api.
func NewServer(importer *importer.Service, repo ports.SampleRepository, api http.Handler, maxUpload int64) (*Server, error) {
	s := &Server{
		router:    gin.Default(),
		importer:  importer,
		repo:      repo,
		maxUpload: maxUpload,
	}
	if maxUpload > 0 {
		s.router.MaxMultipartMemory = maxUpload
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.setupMiddleware()
	s.setupRoutes(api)
	return s, nil
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		log.Printf("[setupMiddleware] Error creating static filesystem: %v", err)
		return
	}
	s.router.StaticFS("/static", http.FS(staticFS))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes(api http.Handler) {
	s.router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/add")
	})

	s.router.GET("/add", s.handleAddForm)
	s.router.POST("/add", s.handleUpload)
	s.router.POST("/import", s.handleImport)

	s.router.GET("/search", s.handleSearch)
	s.router.GET("/samples", s.handleSamples)
	s.router.GET("/export.csv", s.handleExport("csv"))
	s.router.GET("/export.xlsx", s.handleExport("xlsx"))

	if api != nil {
		s.router.Any("/api/*path", gin.WrapH(api))
	}
}

// Handler exposes the router, for http.Server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	log.Printf("Starting Failure Forward UI on http://%s", addr)
	return s.router.Run(addr)
}
