package study

import (
	"testing"

	"birthprev/domain/core"
	"birthprev/domain/stage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_RejectsInvalidRows(t *testing.T) {
	studies := []Study{
		{Label: "ok", Cases: 1, Population: 10},
		{Label: "zero pop", Cases: 0, Population: 0},
		{Label: "negative", Cases: -1, Population: 10},
		{Label: "too many", Cases: 11, Population: 10},
	}

	_, err := NewTable(studies, DistributionPoisson, PolicyError)
	require.Error(t, err)
	assert.True(t, core.IsInvalidValueError(err))
	assert.Contains(t, err.Error(), "row 2 (zero pop)")
	assert.Contains(t, err.Error(), "row 3 (negative)")
	assert.Contains(t, err.Error(), "row 4 (too many)")
	assert.NotContains(t, err.Error(), "row 1")
}

func TestNewTable_Empty(t *testing.T) {
	_, err := NewTable(nil, "", "")
	assert.ErrorIs(t, err, core.ErrEmptyTable)
}

func TestNewTable_Defaults(t *testing.T) {
	tbl, err := NewTable([]Study{{Label: "a", Cases: 1, Population: 5}}, "", "")
	require.NoError(t, err)
	assert.Equal(t, DistributionPoisson, tbl.Distribution)
	assert.Equal(t, PolicyError, tbl.Policy)
	assert.Equal(t, 1, tbl.Summary.StudyCount)
}

func TestClone_IsIndependent(t *testing.T) {
	tbl, err := NewTable([]Study{{Label: "a", Cases: 1, Population: 5}}, "", "")
	require.NoError(t, err)
	tbl.MarkApplied(stage.StageConfidenceInterval)

	c := tbl.Clone()
	c.Rows[0].Prevalence = 0.2
	c.MarkApplied(stage.StageWeightedAverage)

	assert.Zero(t, tbl.Rows[0].Prevalence)
	assert.False(t, tbl.Applied(stage.StageWeightedAverage))
	assert.True(t, c.Applied(stage.StageConfidenceInterval))
}

func TestRequire(t *testing.T) {
	tbl, err := NewTable([]Study{{Label: "a", Cases: 1, Population: 5}}, "", "")
	require.NoError(t, err)

	err = tbl.Require(stage.StageWeightedAverage, stage.StageConfidenceInterval)
	assert.ErrorIs(t, err, core.ErrStagePrerequisite)

	tbl.MarkApplied(stage.StageConfidenceInterval)
	assert.NoError(t, tbl.Require(stage.StageWeightedAverage, stage.StageConfidenceInterval))
}

func TestParseDistributionAndPolicy(t *testing.T) {
	d, err := ParseDistribution(" Normal ")
	require.NoError(t, err)
	assert.Equal(t, DistributionNormal, d)

	_, err = ParseDistribution("binomial")
	assert.ErrorIs(t, err, core.ErrUnknownDistribution)

	p, err := ParseDegeneratePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyError, p)

	_, err = ParseDegeneratePolicy("drop")
	assert.ErrorIs(t, err, core.ErrUnknownPolicy)
}

func TestStudyRow_CIForDistribution(t *testing.T) {
	r := StudyRow{PoissonCILower: 1, PoissonCIUpper: 2, NormalCILower: 3, NormalCIUpper: 4}
	assert.Equal(t, 1.0, r.CILower(DistributionPoisson))
	assert.Equal(t, 2.0, r.CIUpper(DistributionPoisson))
	assert.Equal(t, 3.0, r.CILower(DistributionNormal))
	assert.Equal(t, 4.0, r.CIUpper(DistributionNormal))
}
