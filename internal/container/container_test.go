package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birthprev/adapters/excel"
	"birthprev/app"
	"birthprev/domain/study"
	"birthprev/internal/config"
	"birthprev/internal/testkit"
)

func TestNew_WiresDefaultsFromConfig(t *testing.T) {
	t.Setenv("DISTRIBUTION", "normal")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("GIN_MODE", "test")
	cfg, err := config.Load()
	require.NoError(t, err)

	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Metrics)
	assert.Equal(t, study.DistributionNormal, c.Service.Defaults().Distribution)

	est, err := c.Service.Estimate(context.Background(), testkit.ReferenceStudies(), app.EstimateOptions{})
	require.NoError(t, err)
	assert.Equal(t, study.DistributionNormal, est.Table.Distribution)

	uiApp, err := c.UIApp()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	uiApp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	c.APIServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBatch_UsesConfiguredConcurrency(t *testing.T) {
	t.Setenv("BATCH_CONCURRENCY", "2")
	cfg, err := config.Load()
	require.NoError(t, err)
	c, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, c.Metrics)

	input := testkit.WriteFile(t, "studies.csv", testkit.CSV(testkit.ReferenceStudies()))
	output := input + ".out.csv"
	outcomes := c.Batch(excel.DefaultReaderConfig(), excel.WriterConfig{}).Run(context.Background(), []app.BatchJob{{Input: input, Output: output}}, app.EstimateOptions{})

	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
}

func TestNew_RejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
