package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"strings"

	"failureforward/domain/sample"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

//go:embed templates/*.html static/*
var embeddedFiles embed.FS

// pages are rendered inside layout.html
var pages = []string{"add.html", "preview.html", "result.html", "search.html", "samples.html"}

var funcMap = template.FuncMap{
	"markdown": renderMarkdown,
	"add":      func(a, b int) int { return a + b },
	"pct":      func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	"fields": func() []sample.Field {
		return append(append([]sample.Field{}, sample.Schema...), sample.Ignore)
	},
	"schema": func() []sample.Field { return sample.Schema },
	"get":    func(s *sample.Sample, f sample.Field) string { return s.Get(f) },
}

func parseTemplates() (map[string]*template.Template, error) {
	base, err := template.New("layout.html").Funcs(funcMap).ParseFS(embeddedFiles, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout for %s: %w", page, err)
		}
		if _, err := t.ParseFS(embeddedFiles, "templates/"+page); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = t
	}
	log.Printf("[TemplateInit] Parsed %d page templates", len(templates))
	return templates, nil
}

// renderTemplate executes a page template with the given data
func (s *Server) renderTemplate(c *gin.Context, status int, page string, data gin.H) {
	t, ok := s.templates[page]
	if !ok {
		log.Printf("Template %s not found", page)
		c.AbortWithStatusJSON(500, gin.H{"error": "Template not found"})
		return
	}

	// First render to a buffer to catch any errors before writing to response
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.Printf("Template error for %s: %v", page, err)
		c.AbortWithStatusJSON(500, gin.H{"error": "Template rendering failed", "details": err.Error()})
		return
	}

	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// renderMarkdown renders free-text comments. Raw HTML is dropped and only
// safe link protocols are kept.
func renderMarkdown(text string) template.HTML {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.HardLineBreak)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML | html.Safelink | html.HrefTargetBlank,
	})
	return template.HTML(markdown.ToHTML([]byte(text), p, renderer))
}
