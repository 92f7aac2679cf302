package study

import (
	"fmt"
	"strings"

	"birthprev/domain/core"
)

// Per100k scales a proportion to cases per 100,000 births.
const Per100k = 100000.0

// Distribution selects which 95% interval is reported for each study.
type Distribution string

const (
	DistributionPoisson Distribution = "poisson"
	DistributionNormal  Distribution = "normal"
)

// ParseDistribution accepts "poisson" or "normal"; empty means poisson.
func ParseDistribution(s string) (Distribution, error) {
	switch Distribution(strings.ToLower(strings.TrimSpace(s))) {
	case "", DistributionPoisson:
		return DistributionPoisson, nil
	case DistributionNormal:
		return DistributionNormal, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownDistribution, s)
}

// DegeneratePolicy decides what inverse-variance pooling does with a study
// whose standard error is zero (no cases, or every birth a case).
type DegeneratePolicy string

const (
	PolicyError   DegeneratePolicy = "error"
	PolicyExclude DegeneratePolicy = "exclude"
)

// ParseDegeneratePolicy accepts "error" or "exclude"; empty means error.
func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch DegeneratePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyError:
		return PolicyError, nil
	case PolicyExclude:
		return PolicyExclude, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownPolicy, s)
}

// Study is one input row: an observed case count over a birth population.
type Study struct {
	Label      string `json:"label"`
	Cases      int    `json:"cases"`
	Population int    `json:"population"`
}

// StudyRow carries a study and every column derived from it by the stages.
// CI bounds are per 100k.
type StudyRow struct {
	Study

	Prevalence           float64 `json:"prevalence"`
	PrevalencePer100k    float64 `json:"prevalence_per_100k"`
	MarginOfError        float64 `json:"margin_of_error"`
	MarginOfErrorPer100k float64 `json:"margin_of_error_per_100k"`
	PoissonCILower       float64 `json:"poisson_ci_lower"`
	PoissonCIUpper       float64 `json:"poisson_ci_upper"`
	NormalCILower        float64 `json:"normal_ci_lower"`
	NormalCIUpper        float64 `json:"normal_ci_upper"`

	PopulationWeight   float64 `json:"weight_population"`
	WeightedPrevalence float64 `json:"weighted_prevalence"`

	StdErrorPer100k            float64 `json:"std_error_per_100k"`
	InverseVarianceCoefficient float64 `json:"inverse_variance_coefficient"`
	InverseVarianceWeight      float64 `json:"inverse_variance_weight"`
	WeightedPrevalenceInverse  float64 `json:"weighted_prevalence_inverse"`

	// Excluded is set when the study was left out of inverse-variance pooling.
	Excluded bool `json:"excluded,omitempty"`
}

// CILower returns the lower bound of the interval for the given distribution.
func (r StudyRow) CILower(d Distribution) float64 {
	if d == DistributionNormal {
		return r.NormalCILower
	}
	return r.PoissonCILower
}

// CIUpper returns the upper bound of the interval for the given distribution.
func (r StudyRow) CIUpper(d Distribution) float64 {
	if d == DistributionNormal {
		return r.NormalCIUpper
	}
	return r.PoissonCIUpper
}

// Summary holds the table-level pooled results. Values are per 100k except
// I2Statistic, which is a fraction in [0, 1).
type Summary struct {
	AveragePrevalencePer100k float64 `json:"average_prevalence_per_100k"`
	AverageCILower           float64 `json:"average_ci_lower"`
	AverageCIUpper           float64 `json:"average_ci_upper"`

	PooledPrevalenceInversePer100k float64 `json:"pooled_prevalence_inverse_per_100k"`
	PooledStdErrorPer100k          float64 `json:"pooled_std_error_per_100k"`
	PooledCILowerInverse           float64 `json:"pooled_ci_lower_inverse"`
	PooledCIUpperInverse           float64 `json:"pooled_ci_upper_inverse"`

	QStatistic       float64 `json:"q_statistic"`
	DegreesOfFreedom int     `json:"degrees_of_freedom"`
	I2Statistic      float64 `json:"i2_statistic"`
	QPValue          float64 `json:"q_p_value"`

	StudyCount      int      `json:"study_count"`
	IncludedStudies int      `json:"included_studies"`
	ExcludedStudies []string `json:"excluded_studies,omitempty"`

	// HeterogeneityDegenerate marks Q = 0, where I² is defined as 0.
	HeterogeneityDegenerate bool `json:"heterogeneity_degenerate,omitempty"`
}
