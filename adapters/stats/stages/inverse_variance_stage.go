package stages

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"birthprev/domain/core"
	"birthprev/domain/stage"
	"birthprev/domain/study"
	"birthprev/internal/distributions"
)

// InverseVarianceStage pools prevalence with weights proportional to the
// reciprocal of each study's variance. It recomputes its own weights and does
// not depend on WeightedAverageStage.
//
// A study with zero standard error (no cases, or all births cases) has an
// infinite weight. Under PolicyError the stage fails; under PolicyExclude the
// study is left out of pooling and reported in Summary.ExcludedStudies.
type InverseVarianceStage struct{}

// NewInverseVarianceStage creates a new inverse variance stage
func NewInverseVarianceStage() *InverseVarianceStage {
	return &InverseVarianceStage{}
}

func (s *InverseVarianceStage) Name() stage.StageName {
	return stage.StageInverseVariance
}

func (s *InverseVarianceStage) Apply(in *study.Table) (*study.Table, error) {
	if err := in.Require(s.Name(), stage.StageConfidenceInterval); err != nil {
		return nil, err
	}

	out := in.Clone()
	var degenerate []string
	for i := range out.Rows {
		r := &out.Rows[i]
		r.Excluded = false
		r.StdErrorPer100k = math.Sqrt(r.Prevalence*(1-r.Prevalence)/float64(r.Population)) * study.Per100k
		if r.StdErrorPer100k == 0 {
			r.Excluded = true
			r.InverseVarianceCoefficient = 0
			degenerate = append(degenerate, rowLabel(i, r.Label))
			continue
		}
		r.InverseVarianceCoefficient = 1 / (r.StdErrorPer100k * r.StdErrorPer100k)
	}

	if len(degenerate) > 0 && (out.Policy != study.PolicyExclude || len(degenerate) == len(out.Rows)) {
		return nil, core.NewDegenerateVarianceError(degenerate)
	}

	coefficients := out.Column(func(r study.StudyRow) float64 { return r.InverseVarianceCoefficient })
	total := floats.Sum(coefficients)

	weighted := make([]float64, len(out.Rows))
	for i := range out.Rows {
		r := &out.Rows[i]
		r.InverseVarianceWeight = coefficients[i] / total
		r.WeightedPrevalenceInverse = r.PrevalencePer100k * r.InverseVarianceWeight
		weighted[i] = r.WeightedPrevalenceInverse
	}

	pooled := floats.Sum(weighted)
	stdErr := 1 / math.Sqrt(total)
	margin := distributions.Z95 * stdErr

	sum := &out.Summary
	sum.PooledPrevalenceInversePer100k = pooled
	sum.PooledStdErrorPer100k = stdErr
	// No floor at zero here, unlike the normal per-study interval.
	sum.PooledCILowerInverse = pooled - margin
	sum.PooledCIUpperInverse = pooled + margin
	sum.StudyCount = len(out.Rows)
	sum.IncludedStudies = len(out.Rows) - len(degenerate)
	sum.ExcludedStudies = degenerate

	out.MarkApplied(s.Name())
	return out, nil
}

func rowLabel(i int, label string) string {
	if label == "" {
		return fmt.Sprintf("row %d", i+1)
	}
	return label
}
