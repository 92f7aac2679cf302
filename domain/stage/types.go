package stage

import (
	"birthprev/domain/core"
)

// StageName represents a named stage in the pipeline
type StageName string

// Predefined stage names, in execution order
const (
	StageConfidenceInterval StageName = "confidence_interval"
	StageWeightedAverage    StageName = "weighted_average"
	StageInverseVariance    StageName = "inverse_variance"
	StageHeterogeneity      StageName = "heterogeneity"
)

// Order is the fixed execution order of the estimation pipeline.
var Order = []StageName{
	StageConfidenceInterval,
	StageWeightedAverage,
	StageInverseVariance,
	StageHeterogeneity,
}

// StageResult represents the outcome of a single stage execution
type StageResult struct {
	StageName StageName    `json:"stage_name"`
	Success   bool         `json:"success"`
	Metrics   StageMetrics `json:"metrics"`
	Error     string       `json:"error,omitempty"`
	Duration  int64        `json:"duration_us"` // microseconds; stages are fast
}

// StageMetrics contains canonical metrics for stage results
type StageMetrics struct {
	ProcessedCount int `json:"processed_count"`
	ExcludedCount  int `json:"excluded_count"`
}

// PipelineResult contains the results of executing the stages of one run
type PipelineResult struct {
	RunID      core.RunID      `json:"run_id"`
	Results    []StageResult   `json:"results"`
	Overall    PipelineSummary `json:"overall"`
	ExecutedAt core.Timestamp  `json:"executed_at"`
}

// PipelineSummary provides high-level pipeline statistics
type PipelineSummary struct {
	TotalStages   int   `json:"total_stages"`
	Successful    int   `json:"successful"`
	Failed        int   `json:"failed"`
	TotalDuration int64 `json:"total_duration_us"`
}

// NewPipelineResult creates a new pipeline result
func NewPipelineResult(runID core.RunID) *PipelineResult {
	return &PipelineResult{
		RunID:      runID,
		Results:    make([]StageResult, 0, len(Order)),
		ExecutedAt: core.Now(),
	}
}

// AddResult adds a stage result and updates summary
func (r *PipelineResult) AddResult(result StageResult) {
	r.Results = append(r.Results, result)
	r.Overall.TotalStages++

	if result.Success {
		r.Overall.Successful++
	} else {
		r.Overall.Failed++
	}

	r.Overall.TotalDuration += result.Duration
}

// Success returns true if all stages succeeded
func (r *PipelineResult) Success() bool {
	return r.Overall.Failed == 0
}
