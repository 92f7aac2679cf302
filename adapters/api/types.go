package api

import (
	"birthprev/domain/stage"
	"birthprev/domain/study"
	"birthprev/internal/profiling"
)

// EstimateRequest is the body of POST /api/v1/estimate
type EstimateRequest struct {
	Distribution     string        `json:"distribution"`
	DegeneratePolicy string        `json:"degenerate_policy"`
	Studies          []study.Study `json:"studies" binding:"required"`
}

// EstimateResponse carries a complete estimate
type EstimateResponse struct {
	RunID            string                      `json:"run_id"`
	Fingerprint      string                      `json:"fingerprint"`
	Distribution     study.Distribution          `json:"distribution"`
	DegeneratePolicy study.DegeneratePolicy      `json:"degenerate_policy"`
	Rows             []study.StudyRow            `json:"rows"`
	Summary          study.Summary               `json:"summary"`
	Profile          profiling.PrevalenceProfile `json:"profile"`
	Stages           []stage.StageResult         `json:"stages"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
