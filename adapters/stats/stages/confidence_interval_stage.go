package stages

import (
	"math"

	"birthprev/domain/stage"
	"birthprev/domain/study"
	"birthprev/internal/distributions"
)

const (
	lowerTail = 0.025
	upperTail = 0.975
)

// ConfidenceIntervalStage computes each study's point prevalence and its
// 95% interval under both the Poisson and the normal approximation.
type ConfidenceIntervalStage struct {
	dist *distributions.StatisticalDistributions
}

// NewConfidenceIntervalStage creates a new confidence interval stage
func NewConfidenceIntervalStage() *ConfidenceIntervalStage {
	return &ConfidenceIntervalStage{dist: distributions.NewDistributions()}
}

func (s *ConfidenceIntervalStage) Name() stage.StageName {
	return stage.StageConfidenceInterval
}

// Apply validates every study and fills the prevalence and interval columns.
func (s *ConfidenceIntervalStage) Apply(in *study.Table) (*study.Table, error) {
	if err := study.ValidateStudies(in.Studies()); err != nil {
		return nil, err
	}

	out := in.Clone()
	for i := range out.Rows {
		r := &out.Rows[i]
		n := float64(r.Population)
		cases := float64(r.Cases)

		r.Prevalence = cases / n
		r.PrevalencePer100k = r.Prevalence * study.Per100k

		r.MarginOfError = distributions.Z95 * math.Sqrt(r.Prevalence*(1-r.Prevalence)/n)
		r.MarginOfErrorPer100k = r.MarginOfError * study.Per100k

		r.NormalCILower = math.Max(0, r.PrevalencePer100k-r.MarginOfErrorPer100k)
		r.NormalCIUpper = r.PrevalencePer100k + r.MarginOfErrorPer100k

		// Exact Poisson bounds: quantiles of Poisson(mean = observed cases).
		r.PoissonCILower = s.dist.PoissonQuantile(lowerTail, cases) / n * study.Per100k
		r.PoissonCIUpper = s.dist.PoissonQuantile(upperTail, cases) / n * study.Per100k
	}

	out.Summary.StudyCount = len(out.Rows)
	out.MarkApplied(s.Name())
	return out, nil
}
