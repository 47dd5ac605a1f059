package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcallister/fleetreport/internal/config"
	"github.com/jmcallister/fleetreport/internal/export"
	"github.com/jmcallister/fleetreport/internal/repository"
	"github.com/jmcallister/fleetreport/internal/template"
)

type fakeGenerator struct {
	result  *export.Result
	err     error
	lastReq export.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req export.Request) (*export.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testServer(gen Generator) *Server {
	cfg := &config.Config{
		ReportURLColumn:    "artifact_url",
		ReportFileIDColumn: "artifact_id",
	}
	return New(cfg, gen, nil, nil)
}

func doRequest(t *testing.T, s *Server, method, path, body string) (*http.Response, GenerateResponse) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	resp := rec.Result()
	var payload GenerateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestHealthz(t *testing.T) {
	s := testServer(&fakeGenerator{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestGenerateMethodNotAllowed(t *testing.T) {
	s := testServer(&fakeGenerator{})
	resp, payload := doRequest(t, s, http.MethodGet, "/reports/generate", "")

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.False(t, payload.Success)
	assert.Equal(t, "method not allowed", payload.Error)
}

func TestGenerateMalformedBody(t *testing.T) {
	s := testServer(&fakeGenerator{})
	resp, payload := doRequest(t, s, http.MethodPost, "/reports/generate", "{not json")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, payload.Success)
	assert.Contains(t, payload.Error, "invalid JSON body")
}

func TestGenerateMissingReportID(t *testing.T) {
	s := testServer(&fakeGenerator{})
	resp, payload := doRequest(t, s, http.MethodPost, "/reports/generate", `{}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, payload.Error, "report_id is required")
}

func TestGenerateInvalidColumnName(t *testing.T) {
	s := testServer(&fakeGenerator{})
	resp, payload := doRequest(t, s, http.MethodPost, "/reports/generate",
		`{"report_id":"42","report_url_column":"bad; DROP TABLE"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, payload.Error, "invalid column name")
}

func TestGenerateReportNotFound(t *testing.T) {
	s := testServer(&fakeGenerator{err: repository.ErrNotFound})
	resp, payload := doRequest(t, s, http.MethodPost, "/reports/generate", `{"report_id":"missing"}`)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, payload.Success)
}

func TestGenerateTemplateConfigError(t *testing.T) {
	s := testServer(&fakeGenerator{err: &template.ConfigError{Ref: "storage://x", Reason: "expected storage://bucket/path"}})
	resp, payload := doRequest(t, s, http.MethodPost, "/reports/generate", `{"report_id":"42"}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, payload.Error, "storage://x")
}

func TestGenerateInternalError(t *testing.T) {
	s := testServer(&fakeGenerator{err: assert.AnError})
	resp, payload := doRequest(t, s, http.MethodPost, "/reports/generate", `{"report_id":"42"}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.False(t, payload.Success)
	assert.NotEmpty(t, payload.Error)
}

func TestGenerateSuccess(t *testing.T) {
	gen := &fakeGenerator{result: &export.Result{
		ReportID:   "42",
		TemplateID: "default",
		FileID:     "file-9",
		FileURL:    "https://drive.example/view",
	}}
	s := testServer(gen)
	resp, payload := doRequest(t, s, http.MethodPost, "/reports/generate", `{"report_id":42}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, payload.Success)
	assert.Equal(t, "42", payload.ReportID)
	assert.Equal(t, "file-9", payload.FileID)
	assert.Equal(t, "https://drive.example/view", payload.FileURL)
	assert.Equal(t, "default", payload.TemplateID)
	assert.Empty(t, payload.Warning)

	// Defaults were applied before the generator ran.
	assert.Equal(t, "artifact_url", gen.lastReq.ReportURLColumn)
	assert.Equal(t, "artifact_id", gen.lastReq.ReportFileIDColumn)
}

func TestGenerateWarningStaysSuccessful(t *testing.T) {
	gen := &fakeGenerator{result: &export.Result{
		ReportID:   "42",
		TemplateID: "default",
		Warning:    "drive quota exceeded",
	}}
	s := testServer(gen)
	resp, payload := doRequest(t, s, http.MethodPost, "/reports/generate", `{"report_id":"42"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, payload.Success)
	assert.Equal(t, "drive quota exceeded", payload.Warning)
	assert.Empty(t, payload.FileID)
}

func TestGenerateAsyncWithoutQueue(t *testing.T) {
	s := testServer(&fakeGenerator{})
	resp, payload := doRequest(t, s, http.MethodPost, "/reports/generate", `{"report_id":"42","async":true}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, payload.Error, "async processing is not enabled")
}
