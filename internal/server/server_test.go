package server_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkobilansky/ab-sim/internal/config"
	"github.com/gkobilansky/ab-sim/internal/server"
)

func setupTestServer(t *testing.T) *server.Server {
	t.Helper()
	cfg := config.Default()
	return server.New(cfg, nil)
}

func serve(t *testing.T, srv *server.Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	srv := setupTestServer(t)

	w := serve(t, srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestAnalyzeAPI_Get(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/analyze?n_a=2000&p_a=0.1&n_b=2000&p_b=0.2&seed=7&mde=0.5&power=0.8", nil)
	w := serve(t, srv, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)

	a := body["a"].(map[string]interface{})
	assert.Equal(t, float64(2000), a["n"])

	cmp := body["comparison"].(map[string]interface{})
	assert.True(t, cmp["significant"].(bool))
	assert.Greater(t, cmp["lift"].(float64), 0.0)

	interp := body["interpretation"].(map[string]interface{})
	assert.Equal(t, "better", interp["verdict"])

	size := body["sample_size"].(map[string]interface{})
	assert.Equal(t, float64(63), size["per_group"])
}

func TestAnalyzeAPI_SeedIsReproducible(t *testing.T) {
	srv := setupTestServer(t)
	url := "/api/analyze?n_a=500&p_a=0.3&n_b=500&p_b=0.35&seed=99"

	first := decode(t, serve(t, srv, httptest.NewRequest(http.MethodGet, url, nil)))
	second := decode(t, serve(t, srv, httptest.NewRequest(http.MethodGet, url, nil)))

	assert.Equal(t, first["a"], second["a"])
	assert.Equal(t, first["b"], second["b"])
	assert.NotEqual(t, first["id"], second["id"])
}

func TestAnalyzeAPI_Post(t *testing.T) {
	srv := setupTestServer(t)

	body := `{"n_a": 1000, "p_a": 0, "n_b": 1000, "p_b": 1, "seed": 1}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := serve(t, srv, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cmp := decode(t, w)["comparison"].(map[string]interface{})
	assert.Equal(t, "-Inf", cmp["t_statistic"])
	assert.Equal(t, "Inf", cmp["cohens_d"])
	assert.Equal(t, 0.0, cmp["p_value"])
}

func TestAnalyzeAPI_InvalidInput(t *testing.T) {
	srv := setupTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"empty group", "n_a=0&p_a=0.1&n_b=100&p_b=0.1"},
		{"rate above one", "n_a=100&p_a=1.5&n_b=100&p_b=0.1"},
		{"non-numeric size", "n_a=lots"},
		{"too large", "n_a=20000000"},
		{"bad power", "mde=0.1&power=1.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, srv, httptest.NewRequest(http.MethodGet, "/api/analyze?"+tt.query, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestAnalyzeAPI_InvalidJSON(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{"))
	w := serve(t, srv, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSampleSizeAPI(t *testing.T) {
	srv := setupTestServer(t)

	w := serve(t, srv, httptest.NewRequest(http.MethodGet, "/api/samplesize?mde=0.05&power=0.8", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(6280), body["per_group"])
	assert.Equal(t, float64(12560), body["total"])
	assert.Contains(t, body["message"], "6,280")
}

func TestSampleSizeAPI_Invalid(t *testing.T) {
	srv := setupTestServer(t)

	w := serve(t, srv, httptest.NewRequest(http.MethodGet, "/api/samplesize?mde=0", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartUpload(t *testing.T, target, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAPI(t *testing.T) {
	srv := setupTestServer(t)

	csv := "group,converted\nA,0\nA,1\nA,0\nA,0\nB,1\nB,1\nB,0\nB,1\nC,1\n"
	w := serve(t, srv, multipartUpload(t, "/api/upload", "test.csv", csv, map[string]string{"mde": "0.5"}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "upload", body["source"])
	assert.Equal(t, 0.25, body["a"].(map[string]interface{})["mean"])
	assert.Equal(t, 0.75, body["b"].(map[string]interface{})["mean"])
	assert.NotNil(t, body["sample_size"])
}

func TestUploadAPI_Errors(t *testing.T) {
	srv := setupTestServer(t)

	t.Run("missing column", func(t *testing.T) {
		w := serve(t, srv, multipartUpload(t, "/api/upload", "test.csv", "variant,converted\nA,1\n", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unsupported format", func(t *testing.T) {
		w := serve(t, srv, multipartUpload(t, "/api/upload", "test.txt", "group,converted\n", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		w := serve(t, srv, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReportPage(t *testing.T) {
	srv := setupTestServer(t)

	w := serve(t, srv, httptest.NewRequest(http.MethodGet, "/?seed=3", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Conversion rates by group")
	assert.Contains(t, w.Body.String(), "Cohen")
}

func TestReportPage_InvalidInput(t *testing.T) {
	srv := setupTestServer(t)

	w := serve(t, srv, httptest.NewRequest(http.MethodGet, "/?n_a=0", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Cannot analyse these inputs")
}

func TestUploadPage(t *testing.T) {
	srv := setupTestServer(t)

	csv := "group,converted\nA,0\nA,1\nB,1\nB,1\n"
	w := serve(t, srv, multipartUpload(t, "/upload", "data.csv", csv, nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "upload")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupTestServer(t)
	serve(t, srv, httptest.NewRequest(http.MethodGet, "/api/analyze?seed=1", nil))

	w := serve(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "absim_analyses_total")
}
