package console

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-spx-templategen/pkg/inference"
	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
	"github.com/goliatone/go-spx-templategen/pkg/spx"
	"github.com/goliatone/go-spx-templategen/pkg/testsupport"
)

const lowerThird = "<!DOCTYPE html><html><body><div id=\"f0\">Lower third</div><script>update()</script></body></html>"

func newTestServer(t *testing.T, pipeline inference.Pipeline, options ...Option) (*Server, *orchestrator.Orchestrator) {
	t.Helper()
	orch := orchestrator.New(orchestrator.WithPipeline(pipeline))
	require.NoError(t, orch.EnsureInitialized(testsupport.Context()))
	srv, err := New(orch, options...)
	require.NoError(t, err)
	return srv, orch
}

type client struct {
	t       *testing.T
	srv     *Server
	cookies []*http.Cookie
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.srv.Handler().ServeHTTP(rec, req)
	if len(c.cookies) == 0 {
		c.cookies = rec.Result().Cookies()
	}
	return rec
}

func TestGenerateReturnsResult(t *testing.T) {
	srv, _ := newTestServer(t, testsupport.StaticPipeline("Here you go: "+lowerThird))
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/generate", `{"prompt":"Create a lower third template"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result orchestrator.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, lowerThird, result.HTML)
	assert.Equal(t, orchestrator.StatusOK, result.Status)
	assert.Contains(t, result.JSON, `"prompt": "Create a lower third template"`)

	require.Len(t, c.cookies, 1)
	assert.Equal(t, SessionCookie, c.cookies[0].Name)
	assert.True(t, c.cookies[0].HttpOnly)
}

func TestGenerateBlankPromptIsSkipped(t *testing.T) {
	srv, _ := newTestServer(t, testsupport.StaticPipeline(lowerThird))
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/generate", `{"prompt":"   "}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.do(http.MethodGet, "/api/template/preview", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateFailureReturnsFallback(t *testing.T) {
	srv, _ := newTestServer(t, testsupport.FailingPipeline(assert.AnError))
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/generate", `{"prompt":"Design a sports scoreboard"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result orchestrator.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, orchestrator.FallbackHTML, result.HTML)
	assert.Equal(t, orchestrator.StatusFailed, result.Status)
	assert.Empty(t, result.JSON)

	rec = c.do(http.MethodGet, "/api/template/descriptor", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateRejectsInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t, testsupport.StaticPipeline(lowerThird))
	c := &client{t: t, srv: srv}

	tests := []struct {
		name string
		body string
	}{
		{name: "missing prompt", body: `{}`},
		{name: "unknown field", body: `{"prompt":"x","model":"other"}`},
		{name: "timeout out of range", body: `{"prompt":"x","timeout_seconds":0}`},
		{name: "not json", body: `prompt=x`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(http.MethodPost, "/api/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.ErrorString, "invalid request body")
		})
	}
}

func TestGenerateWhileBusyConflicts(t *testing.T) {
	gen := testsupport.NewBlockingGenerator(lowerThird)
	srv, _ := newTestServer(t, testsupport.PipelineFor(gen))
	c := &client{t: t, srv: srv}

	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"prompt":"first"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		done <- rec.Code
	}()
	<-gen.Started

	rec := c.do(http.MethodPost, "/api/generate", `{"prompt":"second"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"generating"`)

	gen.Release()
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, 1, gen.Calls())
}

func TestGenerateBeforeModelLoads(t *testing.T) {
	orch := orchestrator.New(orchestrator.WithPipeline(testsupport.StaticPipeline(lowerThird)))
	srv, err := New(orch)
	require.NoError(t, err)
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/generate", `{"prompt":"weather"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = c.do(http.MethodGet, "/api/status", "")
	assert.Contains(t, rec.Body.String(), `"state":"loading"`)
}

func TestPreviewAndDownloads(t *testing.T) {
	srv, _ := newTestServer(t, testsupport.StaticPipeline(lowerThird))
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/generate", `{"prompt":"Create a lower third template"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodGet, "/api/template/preview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, lowerThird, rec.Body.String())
	assert.Equal(t, "sandbox allow-scripts", rec.Header().Get("Content-Security-Policy"))

	rec = c.do(http.MethodGet, "/api/template/preview?sanitize=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), `id="f0"`)

	rec = c.do(http.MethodGet, "/api/template/download", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="spx-template.html"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, lowerThird, rec.Body.String())

	rec = c.do(http.MethodGet, "/api/template/descriptor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="spx-template.json"`, rec.Header().Get("Content-Disposition"))

	var descriptor map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &descriptor))
	assert.Equal(t, "Create a lower third template", descriptor["prompt"])
	assert.Equal(t, []any{}, descriptor["DataFields"])
}

func TestResultsAreScopedToSession(t *testing.T) {
	srv, _ := newTestServer(t, testsupport.StaticPipeline(lowerThird))
	first := &client{t: t, srv: srv}
	second := &client{t: t, srv: srv}

	rec := first.do(http.MethodPost, "/api/generate", `{"prompt":"Create a lower third template"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = second.do(http.MethodGet, "/api/template/download", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = first.do(http.MethodGet, "/api/template/download", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSaveWithoutTemplatesFolder(t *testing.T) {
	srv, _ := newTestServer(t, testsupport.StaticPipeline(lowerThird))
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/generate", `{"prompt":"Create a lower third template"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/api/template/save", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestSaveWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	srv, _ := newTestServer(t, testsupport.StaticPipeline(lowerThird), WithSaver(spx.NewSaver(dir)))
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/template/save", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodPost, "/api/generate", `{"prompt":"Create a lower third template"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/api/template/save", `{"name":"News Lower Third"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, filepath.Join(dir, spx.DefaultProject, "news-lower-third.html"), resp["path"])

	data, err := os.ReadFile(resp["path"])
	require.NoError(t, err)
	assert.Equal(t, lowerThird, string(data))
}

func TestSaveAcceptsEmptyChunkedBody(t *testing.T) {
	dir := t.TempDir()
	srv, _ := newTestServer(t, testsupport.StaticPipeline(lowerThird), WithSaver(spx.NewSaver(dir)))
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/generate", `{"prompt":"Create a lower third template"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/template/save", strings.NewReader(""))
	req.ContentLength = -1
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.FileExists(t, resp["path"])
}

func TestCancelInFlightGeneration(t *testing.T) {
	gen := testsupport.NewBlockingGenerator(lowerThird)
	srv, orch := newTestServer(t, testsupport.PipelineFor(gen))
	c := &client{t: t, srv: srv}

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"prompt":"Weather forecast"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		done <- rec
	}()
	<-gen.Started

	rec := c.do(http.MethodPost, "/api/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cancelled":true}`, rec.Body.String())

	generated := <-done
	require.Equal(t, http.StatusOK, generated.Code, generated.Body.String())

	var result orchestrator.Result
	require.NoError(t, json.Unmarshal(generated.Body.Bytes(), &result))
	assert.Equal(t, orchestrator.StatusFailed, result.Status)
	assert.Equal(t, orchestrator.FallbackHTML, result.HTML)
	assert.Contains(t, result.Error, "context canceled")
	assert.Equal(t, orchestrator.StateIdle, orch.State())

	rec = c.do(http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"idle"`)
}

func TestCancelWithoutGeneration(t *testing.T) {
	srv, _ := newTestServer(t, testsupport.StaticPipeline(lowerThird))
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodPost, "/api/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cancelled":false}`, rec.Body.String())
}

func TestIndexRendersExamplesAndTheme(t *testing.T) {
	srv, _ := newTestServer(t, testsupport.StaticPipeline(lowerThird))
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, example := range DefaultExamples {
		assert.Contains(t, body, example)
	}
	assert.Contains(t, body, "--spx-blue: #295aaf;")
	assert.Contains(t, body, "--surface: #2a2b33;")
	assert.Contains(t, body, `href="/assets/themes/spx/favicon.svg"`)

	rec = c.do(http.MethodGet, "/?variant=light", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "--surface: #ffffff;")

	rec = c.do(http.MethodGet, "/assets/themes/spx/favicon.svg", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExamplesAndContractEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, testsupport.StaticPipeline(lowerThird))
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodGet, "/api/examples", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var examples []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &examples))
	assert.Equal(t, DefaultExamples, examples)

	rec = c.do(http.MethodGet, "/api/openapi.yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "operationId: generateTemplate")
}

func TestSessionCookieIsReused(t *testing.T) {
	srv, _ := newTestServer(t, testsupport.StaticPipeline(lowerThird))
	c := &client{t: t, srv: srv}

	c.do(http.MethodGet, "/api/status", "")
	require.Len(t, c.cookies, 1)

	rec := c.do(http.MethodGet, "/api/status", "")
	assert.Empty(t, rec.Result().Cookies())
}
