package stages

import (
	"gonum.org/v1/gonum/floats"

	"birthprev/domain/stage"
	"birthprev/domain/study"
)

// WeightedAverageStage pools prevalence with population weights.
//
// The average interval is the weight-sum of the per-study Poisson bounds, not
// an interval recomputed around the pooled estimate. This reproduces the
// reference spreadsheet method and must not be "corrected".
type WeightedAverageStage struct{}

// NewWeightedAverageStage creates a new weighted average stage
func NewWeightedAverageStage() *WeightedAverageStage {
	return &WeightedAverageStage{}
}

func (s *WeightedAverageStage) Name() stage.StageName {
	return stage.StageWeightedAverage
}

func (s *WeightedAverageStage) Apply(in *study.Table) (*study.Table, error) {
	if err := in.Require(s.Name(), stage.StageConfidenceInterval); err != nil {
		return nil, err
	}

	out := in.Clone()
	populations := out.Column(func(r study.StudyRow) float64 { return float64(r.Population) })
	total := floats.Sum(populations)

	weights := make([]float64, len(out.Rows))
	weighted := make([]float64, len(out.Rows))
	for i := range out.Rows {
		r := &out.Rows[i]
		weights[i] = populations[i] / total
		r.PopulationWeight = weights[i]
		r.WeightedPrevalence = r.Prevalence * weights[i]
		weighted[i] = r.WeightedPrevalence
	}

	lowers := out.Column(func(r study.StudyRow) float64 { return r.PoissonCILower })
	uppers := out.Column(func(r study.StudyRow) float64 { return r.PoissonCIUpper })

	out.Summary.AveragePrevalencePer100k = floats.Sum(weighted) * study.Per100k
	out.Summary.AverageCILower = floats.Dot(weights, lowers)
	out.Summary.AverageCIUpper = floats.Dot(weights, uppers)

	out.MarkApplied(s.Name())
	return out, nil
}
