package distributions

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Z95 is the two-sided 95% normal critical value used throughout the
// estimation formulas. It is the rounded constant, not Quantile(0.975).
const Z95 = 1.96

// StatisticalDistributions provides the distribution functions the
// estimation stages need.
type StatisticalDistributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *StatisticalDistributions {
	return &StatisticalDistributions{}
}

// PoissonCDF returns P(X <= k) for X ~ Poisson(lambda).
func (sd *StatisticalDistributions) PoissonCDF(k, lambda float64) float64 {
	if k < 0 {
		return 0
	}
	if lambda <= 0 {
		return 1
	}
	return distuv.Poisson{Lambda: lambda}.CDF(k)
}

// PoissonQuantile returns the smallest integer k with PoissonCDF(k, lambda) >= p.
// A zero mean puts all mass at 0.
func (sd *StatisticalDistributions) PoissonQuantile(p, lambda float64) float64 {
	if lambda <= 0 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return math.Inf(1)
	}

	dist := distuv.Poisson{Lambda: lambda}

	// Invariant: CDF(lo) < p <= CDF(hi).
	lo := -1.0
	hi := math.Max(1, math.Ceil(lambda))
	for dist.CDF(hi) < p {
		lo = hi
		hi *= 2
	}
	for hi-lo > 1 {
		mid := math.Floor((lo + hi) / 2)
		if dist.CDF(mid) >= p {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}

// ChiSquarePValue computes the upper-tail p-value for a chi-square statistic
func (sd *StatisticalDistributions) ChiSquarePValue(chiSquare float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}

	chiDist := distuv.ChiSquared{K: float64(degreesOfFreedom)}
	return 1 - chiDist.CDF(chiSquare)
}
