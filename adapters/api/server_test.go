package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birthprev/adapters/excel"
	"birthprev/adapters/stats/stages"
	"birthprev/app"
	"birthprev/domain/study"
	"birthprev/internal/errors"
	"birthprev/internal/monitoring"
	"birthprev/internal/testkit"
)

func newTestServer(t *testing.T) (*Server, *app.EstimationService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service := app.NewEstimationService(stages.DefaultStages(), app.EstimateOptions{}, nil, nil)
	return NewServer(Config{MaxUploadBytes: 1 << 20}, service, monitoring.NewMetrics(), nil), service
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestEstimate_MatchesService(t *testing.T) {
	s, service := newTestServer(t)

	rec := postJSON(t, s, "/api/v1/estimate", EstimateRequest{Studies: testkit.ReferenceStudies()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp EstimateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	direct, err := service.Estimate(t.Context(), testkit.ReferenceStudies(), app.EstimateOptions{})
	require.NoError(t, err)

	assert.Equal(t, direct.Summary(), resp.Summary)
	assert.Equal(t, direct.Table.Rows, resp.Rows)
	assert.Equal(t, direct.Fingerprint.String(), resp.Fingerprint)
	assert.NotEqual(t, direct.RunID.String(), resp.RunID)
	assert.Len(t, resp.Stages, 4)
	assert.InDelta(t, testkit.ReferenceI2Statistic, resp.Summary.I2Statistic, 1e-9)
}

func TestEstimate_Options(t *testing.T) {
	s, _ := newTestServer(t)
	studies := append(testkit.ReferenceStudies(), study.Study{Label: "Zero", Cases: 0, Population: 1000})

	rec := postJSON(t, s, "/api/v1/estimate", EstimateRequest{Studies: studies})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, errors.CodeDegenerateVariance, errResp.Code)

	rec = postJSON(t, s, "/api/v1/estimate", EstimateRequest{Studies: studies, DegeneratePolicy: "exclude", Distribution: "normal"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp EstimateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Zero"}, resp.Summary.ExcludedStudies)
	assert.Equal(t, 7, resp.Summary.DegreesOfFreedom)
	assert.Equal(t, study.DistributionNormal, resp.Distribution)
}

func TestEstimate_BadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []struct {
		name string
		body interface{}
		code string
	}{
		{"missing studies", map[string]string{"distribution": "poisson"}, errors.CodeInvalidInput},
		{"empty studies", EstimateRequest{Studies: []study.Study{}}, errors.CodeInvalidValue},
		{"unknown distribution", EstimateRequest{Distribution: "binomial", Studies: testkit.ReferenceStudies()}, errors.CodeInvalidInput},
		{"negative cases", EstimateRequest{Studies: []study.Study{{Label: "A", Cases: -1, Population: 10}}}, errors.CodeInvalidValue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, s, "/api/v1/estimate", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.Equal(t, tc.code, errResp.Code)
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestEstimateCSV(t *testing.T) {
	s, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "studies.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(testkit.CSV(testkit.ReferenceStudies())))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("detailed", "true"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/estimate/csv?distribution=normal", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 9)
	assert.Len(t, records[0], 26)
	assert.Equal(t, "95% CI lower (normal)", records[0][4])
	assert.Equal(t, excel.FormatValue(testkit.ReferencePooledPrevalence), records[1][9])
}

func TestEstimateCSV_MissingFile(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/estimate/csv", strings.NewReader(""))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
