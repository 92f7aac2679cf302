package app

import (
	"context"
	stderrors "errors"
	"testing"

	"birthprev/adapters/stats/stages"
	"birthprev/domain/core"
	"birthprev/domain/stage"
	"birthprev/domain/study"
	"birthprev/internal"
	"birthprev/internal/errors"
	"birthprev/internal/monitoring"
	"birthprev/internal/testkit"
	"birthprev/ports"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStage struct {
	mock.Mock
	name stage.StageName
}

func (m *MockStage) Name() stage.StageName {
	return m.name
}

func (m *MockStage) Apply(in *study.Table) (*study.Table, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*study.Table)
	return out, args.Error(1)
}

func newService(metrics *monitoring.Metrics) *EstimationService {
	return NewEstimationService(stages.DefaultStages(), EstimateOptions{}, internal.NewNopLogger(), metrics)
}

func TestEstimate_ReferenceDataset(t *testing.T) {
	metrics := monitoring.NewMetrics()
	svc := newService(metrics)

	est, err := svc.Estimate(context.Background(), testkit.ReferenceStudies(), EstimateOptions{})
	require.NoError(t, err)

	sum := est.Summary()
	assert.InDelta(t, testkit.ReferenceAveragePrevalence, sum.AveragePrevalencePer100k, 1e-9)
	assert.InDelta(t, testkit.ReferencePooledPrevalence, sum.PooledPrevalenceInversePer100k, 1e-9)
	assert.InDelta(t, testkit.ReferenceQStatistic, sum.QStatistic, 1e-8)
	assert.InDelta(t, testkit.ReferenceI2Statistic, sum.I2Statistic, 1e-9)

	assert.NotEmpty(t, est.RunID.String())
	assert.Equal(t, est.Table.Fingerprint(), est.Fingerprint)
	assert.True(t, est.Pipeline.Success())
	assert.Equal(t, 4, est.Pipeline.Overall.TotalStages)
	assert.Equal(t, 8, est.Profile.Studies)
	assert.Equal(t, study.DistributionPoisson, est.Table.Distribution)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("ok")))
}

func TestEstimate_RunIDsAreUnique(t *testing.T) {
	svc := newService(nil)
	a, err := svc.Estimate(context.Background(), testkit.ReferenceStudies(), EstimateOptions{})
	require.NoError(t, err)
	b, err := svc.Estimate(context.Background(), testkit.ReferenceStudies(), EstimateOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
}

func TestEstimate_OptionsOverrideDefaults(t *testing.T) {
	svc := NewEstimationService(stages.DefaultStages(), EstimateOptions{Distribution: study.DistributionNormal}, nil, nil)
	assert.Equal(t, study.PolicyError, svc.Defaults().Policy)

	est, err := svc.Estimate(context.Background(), testkit.ReferenceStudies(), EstimateOptions{})
	require.NoError(t, err)
	assert.Equal(t, study.DistributionNormal, est.Table.Distribution)

	est, err = svc.Estimate(context.Background(), testkit.ReferenceStudies(), EstimateOptions{Distribution: study.DistributionPoisson})
	require.NoError(t, err)
	assert.Equal(t, study.DistributionPoisson, est.Table.Distribution)
}

func TestEstimate_InvalidInput(t *testing.T) {
	metrics := monitoring.NewMetrics()
	svc := newService(metrics)

	_, err := svc.Estimate(context.Background(), []study.Study{{Label: "bad", Cases: 1, Population: 0}}, EstimateOptions{})
	require.Error(t, err)
	assert.True(t, core.IsInvalidValueError(err))
	assert.Equal(t, errors.CodeInvalidValue, errors.GetCode(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues(errors.CodeInvalidValue)))
}

func TestEstimate_DegenerateVariance(t *testing.T) {
	studies := append(testkit.ReferenceStudies(), study.Study{Label: "Zero, 2020", Cases: 0, Population: 50000})
	svc := newService(nil)

	_, err := svc.Estimate(context.Background(), studies, EstimateOptions{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, core.ErrDegenerateVariance))
	assert.Equal(t, errors.CodeDegenerateVariance, errors.GetCode(err))

	est, err := svc.Estimate(context.Background(), studies, EstimateOptions{Policy: study.PolicyExclude})
	require.NoError(t, err)
	assert.Equal(t, []string{"Zero, 2020"}, est.Summary().ExcludedStudies)
	assert.Equal(t, 8, est.Summary().IncludedStudies)
}

func TestEstimate_StageFailureReturnsNoResult(t *testing.T) {
	first := &MockStage{name: stage.StageConfidenceInterval}
	second := &MockStage{name: stage.StageWeightedAverage}
	third := &MockStage{name: stage.StageInverseVariance}

	tbl, err := study.NewTable(testkit.ReferenceStudies(), "", "")
	require.NoError(t, err)

	first.On("Apply", mock.Anything).Return(tbl, nil)
	second.On("Apply", mock.Anything).Return(nil, core.ErrDegenerateVariance)

	svc := NewEstimationService([]ports.StagePort{first, second, third}, EstimateOptions{}, nil, nil)
	est, err := svc.Estimate(context.Background(), testkit.ReferenceStudies(), EstimateOptions{})

	require.Error(t, err)
	assert.Nil(t, est)
	assert.Contains(t, err.Error(), "stage weighted_average failed")
	first.AssertExpectations(t)
	second.AssertExpectations(t)
	third.AssertNotCalled(t, "Apply", mock.Anything)
}

func TestEstimate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(nil).Estimate(ctx, testkit.ReferenceStudies(), EstimateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
