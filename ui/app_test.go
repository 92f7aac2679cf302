package ui

import (
	"bytes"
	"encoding/csv"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birthprev/adapters/excel"
	"birthprev/adapters/stats/stages"
	"birthprev/app"
	"birthprev/internal/monitoring"
	"birthprev/internal/testkit"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	service := app.NewEstimationService(stages.DefaultStages(), app.EstimateOptions{}, nil, nil)
	a, err := NewApp(Config{MaxUploadBytes: 1 << 20}, service, monitoring.NewMetrics(), nil)
	require.NoError(t, err)
	return a
}

func uploadRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	rec := serve(newTestApp(t), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/estimate"`)
	assert.Contains(t, rec.Body.String(), `<option value="poisson" selected>`)
}

func TestEstimate_Upload(t *testing.T) {
	a := newTestApp(t)
	req := uploadRequest(t, "/estimate", "studies.csv", testkit.CSV(testkit.ReferenceStudies()), map[string]string{"distribution": "poisson"})

	rec := serve(a, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, formatNumber(testkit.ReferencePooledPrevalence))
	assert.Contains(t, body, formatNumber(testkit.ReferenceAveragePrevalence))
	assert.Contains(t, body, "Poupetova, 2010")
	assert.Contains(t, body, "78.0%")
	assert.Contains(t, body, `action="/download"`)
	assert.Contains(t, body, "Birth prevalence estimate</h1>")
}

func TestEstimate_PastedCSVAndExclude(t *testing.T) {
	studies := append(testkit.ReferenceStudies(), testkit.EqualStudies(1, 0, 5000)...)
	form := url.Values{
		"csv":               {testkit.CSV(studies)},
		"degenerate_policy": {"exclude"},
	}
	req := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := serve(newTestApp(t), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Excluded from pooling")
	assert.Contains(t, rec.Body.String(), `class="excluded"`)
}

func TestEstimate_LabelsRenderAsText(t *testing.T) {
	studies := testkit.ReferenceStudies()
	studies[0].Label = "[click](javascript:alert(document.cookie))"
	form := url.Values{"csv": {testkit.CSV(studies)}}
	req := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := serve(newTestApp(t), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `href="javascript:`)
}

func TestEstimate_Errors(t *testing.T) {
	a := newTestApp(t)

	rec := serve(a, uploadRequest(t, "/estimate", "studies.csv", "author and year,case\nA,1\n", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required column missing")

	zero := testkit.CSV(append(testkit.ReferenceStudies(), testkit.EqualStudies(1, 0, 5000)...))
	rec = serve(a, uploadRequest(t, "/estimate", "studies.csv", zero, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "degenerate variance")

	rec = serve(a, uploadRequest(t, "/estimate", "studies.txt", "x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownload(t *testing.T) {
	form := url.Values{"csv": {testkit.CSV(testkit.ReferenceStudies())}, "distribution": {"normal"}}
	req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := serve(newTestApp(t), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 9)
	assert.Equal(t, "95% CI lower (normal)", records[0][4])
	assert.Equal(t, excel.FormatValue(testkit.ReferencePooledPrevalence), records[1][9])
}

func TestHealthzAndMetrics(t *testing.T) {
	a := newTestApp(t)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStaticAssets(t *testing.T) {
	rec := serve(newTestApp(t), httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".card")
}
