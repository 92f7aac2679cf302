package profiling

import (
	"github.com/montanaflynn/stats"

	"birthprev/domain/study"
)

// PrevalenceProfile describes the spread of per-study prevalence (per 100k)
// across a table. It is descriptive only and feeds no pooled estimate.
type PrevalenceProfile struct {
	Studies  int      `json:"studies"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Mean     float64  `json:"mean"`
	Median   float64  `json:"median"`
	StdDev   float64  `json:"std_dev"`
	Q25      float64  `json:"q25"`
	Q75      float64  `json:"q75"`
	Outliers []string `json:"outliers,omitempty"`
}

const minQuartileStudies = 4

// DistributionAnalyzer handles distribution shape analysis
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// AnalyzeTable profiles the prevalence column of a table that has been
// through the confidence interval stage.
func (da *DistributionAnalyzer) AnalyzeTable(t *study.Table) (PrevalenceProfile, error) {
	data := stats.Float64Data(t.Column(func(r study.StudyRow) float64 { return r.PrevalencePer100k }))
	profile := PrevalenceProfile{Studies: data.Len()}

	var err error
	if profile.Min, err = data.Min(); err != nil {
		return profile, err
	}
	if profile.Max, err = data.Max(); err != nil {
		return profile, err
	}
	if profile.Mean, err = data.Mean(); err != nil {
		return profile, err
	}
	if profile.Median, err = data.Median(); err != nil {
		return profile, err
	}
	// Sample standard deviation; a single study has none.
	if data.Len() > 1 {
		if profile.StdDev, err = data.StandardDeviationSample(); err != nil {
			return profile, err
		}
	}

	// Quartiles for IQR-based outlier detection. Percentile needs at least
	// four values to place the first quartile.
	if data.Len() < minQuartileStudies {
		profile.Q25, profile.Q75 = profile.Min, profile.Max
		return profile, nil
	}
	if profile.Q25, err = data.Percentile(25); err != nil {
		return profile, err
	}
	if profile.Q75, err = data.Percentile(75); err != nil {
		return profile, err
	}

	for i, x := range data {
		if isOutlier(x, profile.Q25, profile.Q75) {
			profile.Outliers = append(profile.Outliers, t.Rows[i].Label)
		}
	}

	return profile, nil
}

// isOutlier applies the 1.5×IQR fence
func isOutlier(x, q25, q75 float64) bool {
	iqr := q75 - q25
	return x < q25-1.5*iqr || x > q75+1.5*iqr
}
