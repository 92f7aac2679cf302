package stages

import (
	"birthprev/ports"
)

// DefaultStages returns the estimation stages in execution order.
func DefaultStages() []ports.StagePort {
	return []ports.StagePort{
		NewConfidenceIntervalStage(),
		NewWeightedAverageStage(),
		NewInverseVarianceStage(),
		NewHeterogeneityStage(),
	}
}
