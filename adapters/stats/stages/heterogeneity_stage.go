package stages

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"birthprev/domain/core"
	"birthprev/domain/stage"
	"birthprev/domain/study"
	"birthprev/internal/distributions"
)

const cancellationEpsilon = 1e-12

// HeterogeneityStage computes Cochran's Q and I² over the inverse-variance
// weights. It re-applies the weighted-average and inverse-variance stages to
// its input first, so it can run on any table that has confidence intervals,
// including its own output.
type HeterogeneityStage struct {
	weighted *WeightedAverageStage
	inverse  *InverseVarianceStage
	dist     *distributions.StatisticalDistributions
}

// NewHeterogeneityStage creates a new heterogeneity stage
func NewHeterogeneityStage() *HeterogeneityStage {
	return &HeterogeneityStage{
		weighted: NewWeightedAverageStage(),
		inverse:  NewInverseVarianceStage(),
		dist:     distributions.NewDistributions(),
	}
}

func (s *HeterogeneityStage) Name() stage.StageName {
	return stage.StageHeterogeneity
}

func (s *HeterogeneityStage) Apply(in *study.Table) (*study.Table, error) {
	if err := in.Require(s.Name(), stage.StageConfidenceInterval); err != nil {
		return nil, err
	}

	out, err := s.weighted.Apply(in)
	if err != nil {
		return nil, err
	}
	out, err = s.inverse.Apply(out)
	if err != nil {
		return nil, err
	}

	// Excluded rows carry a zero coefficient and drop out of every sum.
	coefficients := out.Column(func(r study.StudyRow) float64 { return r.InverseVarianceCoefficient })
	prevalences := out.Column(func(r study.StudyRow) float64 { return r.PrevalencePer100k })

	weightPrev := make([]float64, len(coefficients))
	floats.MulTo(weightPrev, coefficients, prevalences)
	weightPrevSquare := make([]float64, len(coefficients))
	floats.MulTo(weightPrevSquare, weightPrev, prevalences)

	sumWeightPrev := floats.Sum(weightPrev)
	sumWeightPrevSquare := floats.Sum(weightPrevSquare)
	q := sumWeightPrevSquare - sumWeightPrev*sumWeightPrev/floats.Sum(coefficients)
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return nil, core.NewDegenerateHeterogeneityError(q)
	}
	// Q is a weighted sum of squared deviations. Anything below the rounding
	// error of the cancelling sums is zero, including negative values.
	if q <= cancellationEpsilon*sumWeightPrevSquare {
		q = 0
	}

	df := out.Summary.IncludedStudies - 1
	sum := &out.Summary
	sum.QStatistic = q
	sum.DegreesOfFreedom = df
	sum.HeterogeneityDegenerate = q == 0
	sum.I2Statistic = 0
	if q > 0 {
		sum.I2Statistic = math.Max(0, (q-float64(df))/q)
	}
	sum.QPValue = s.dist.ChiSquarePValue(q, df)

	out.MarkApplied(s.Name())
	return out, nil
}
