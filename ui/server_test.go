package ui

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"failureforward/adapters/memory"
	"failureforward/domain/sample"
	"failureforward/internal/api"
	"failureforward/internal/importer"
	"failureforward/internal/mapping"
	"failureforward/internal/uploads"
	"failureforward/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const batchCSV = "Project,Sample,Researcher,Notes\nP1,S1,Fran,**cloudy** pellet\nP1,S2,Sam,\n"

type testEnv struct {
	server   *Server
	repo     ports.SampleRepository
	importer *importer.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewSampleRepository()
	store := uploads.NewLocalFileStorage(&uploads.StorageConfig{BasePath: t.TempDir(), MaxBytes: 1 << 20})
	svc := importer.NewService(repo, store, mapping.NewMatcher(0), nil)
	apiHandler := api.NewHandler(svc, repo, 1<<20).Router()

	server, err := NewServer(svc, repo, apiHandler, 1<<20)
	require.NoError(t, err)
	return &testEnv{server: server, repo: repo, importer: svc}
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRootRedirectsToAdd(t *testing.T) {
	env := newTestEnv(t)
	rec := env.serve(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/add", rec.Header().Get("Location"))

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/add", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="file"`)
	assert.Contains(t, rec.Body.String(), "</html>")
}

func TestUploadShowsMappingPreview(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "batch.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(batchCSV))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/add", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := env.serve(req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Review batch.csv")
	assert.Contains(t, body, `<option value="Scientist" selected>Scientist</option>`)
	assert.Contains(t, body, `name="upload_id"`)
	assert.NotContains(t, body, "checked", "no duplicates, so skipping is off")
}

func TestUploadWithoutFile(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "choose a file")
}

func TestUploadOverBodyLimit(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "big.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(batchCSV + strings.Repeat("P-7,0009,n,n,,Fran,bulk\n", 3<<20/24)))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/add", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := env.serve(req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "file exceeds the 1 MB limit")
}

func TestImportFormStoresSamples(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	preview, err := env.importer.Stage(ctx, strings.NewReader(batchCSV), "batch.csv")
	require.NoError(t, err)

	form := url.Values{}
	form.Set("upload_id", preview.UploadID.String())
	for _, h := range []string{"Project", "Sample", "Researcher", "Notes"} {
		form.Add("header", h)
	}
	for _, f := range []string{"Project ID", "Sample ID", "Scientist", "Comments"} {
		form.Add("field", f)
	}
	form.Set("extra_project_id", "P9")

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return env.serve(req)
	}
	rec := post()

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Imported 2 samples.")

	all, err := env.repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, s := range all {
		assert.Equal(t, "P9", s.ProjectID)
		assert.True(t, strings.HasPrefix(s.Comments, "Original Project ID: P1"))
	}

	// the staged file is gone once imported
	rec = post()
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload the file again")
}

func TestImportRejectsMismatchedForm(t *testing.T) {
	env := newTestEnv(t)
	preview, err := env.importer.Stage(context.Background(), strings.NewReader(batchCSV), "batch.csv")
	require.NoError(t, err)

	form := url.Values{"upload_id": {preview.UploadID.String()}, "header": {"Project", "Sample"}, "field": {"Project ID"}}
	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRendersCommentsAsMarkdown(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.repo.Insert(context.Background(), []*sample.Sample{
		{ProjectID: "P1", SampleID: "S1", Scientist: "Fran", Comments: "**cloudy** <script>alert(1)</script>"},
		{ProjectID: "P1", SampleID: "S2", Scientist: "Sam"},
	}))

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/search?scientist=fran", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "1 results")
	assert.Contains(t, body, "<strong>cloudy</strong>")
	assert.NotContains(t, body, "<script>")

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/search", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "results")
}

func TestSamplesPageAndExport(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.repo.Insert(context.Background(), []*sample.Sample{
		{ProjectID: "P1", SampleID: "S1", Expressed: "Yes", KD: "4.5"},
	}))

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/samples", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Total: 1")
	assert.Contains(t, rec.Body.String(), "KD median: 4.5")

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/export.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "P1,S1,Yes,4.5")

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "failure_forward.xlsx")
}

func TestAPIIsMounted(t *testing.T) {
	env := newTestEnv(t)
	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRenderMarkdown(t *testing.T) {
	assert.Empty(t, string(renderMarkdown("  ")))
	out := string(renderMarkdown("[x](javascript:void) and [y](https://example.org)"))
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, `href="https://example.org"`)
}
