package app

import (
	"context"
	"time"

	"birthprev/domain/core"
	"birthprev/domain/stage"
	"birthprev/domain/study"
	"birthprev/internal"
	"birthprev/internal/errors"
	"birthprev/internal/monitoring"
	"birthprev/internal/profiling"
	"birthprev/ports"
)

// EstimateOptions selects the interval distribution and the degenerate
// variance policy. Zero values fall back to the service defaults.
type EstimateOptions struct {
	Distribution study.Distribution
	Policy       study.DegeneratePolicy
}

// Estimate is the complete output of one run.
type Estimate struct {
	RunID       core.RunID                  `json:"run_id"`
	Fingerprint core.Hash                   `json:"fingerprint"`
	Table       *study.Table                `json:"table"`
	Pipeline    *stage.PipelineResult       `json:"pipeline"`
	Profile     profiling.PrevalenceProfile `json:"profile"`
}

// Summary is shorthand for the table-level pooled results.
func (e *Estimate) Summary() study.Summary {
	return e.Table.Summary
}

// EstimationService runs the estimation stages over one table. It is the only
// entry point the CLI, UI and API use, so all three produce the same numbers.
type EstimationService struct {
	stages   []ports.StagePort
	defaults EstimateOptions
	analyzer *profiling.DistributionAnalyzer
	logger   *internal.Logger
	metrics  *monitoring.Metrics
}

// NewEstimationService creates a service over the given stages. metrics may be nil.
func NewEstimationService(stages []ports.StagePort, defaults EstimateOptions, logger *internal.Logger, metrics *monitoring.Metrics) *EstimationService {
	if defaults.Distribution == "" {
		defaults.Distribution = study.DistributionPoisson
	}
	if defaults.Policy == "" {
		defaults.Policy = study.PolicyError
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &EstimationService{
		stages:   stages,
		defaults: defaults,
		analyzer: profiling.NewDistributionAnalyzer(),
		logger:   logger,
		metrics:  metrics,
	}
}

// Defaults returns the options used when a request leaves them empty.
func (s *EstimationService) Defaults() EstimateOptions {
	return s.defaults
}

// Estimate validates the studies and runs every stage in order. It returns
// either a complete estimate or an error, never a partial table.
func (s *EstimationService) Estimate(ctx context.Context, studies []study.Study, opts EstimateOptions) (*Estimate, error) {
	if opts.Distribution == "" {
		opts.Distribution = s.defaults.Distribution
	}
	if opts.Policy == "" {
		opts.Policy = s.defaults.Policy
	}

	runID := core.NewRunID()
	log := s.logger.With("run_id", runID.String())

	table, err := study.NewTable(studies, opts.Distribution, opts.Policy)
	if err != nil {
		s.observeRun(err, len(studies), 0)
		log.Warn("rejected input with %d studies: %v", len(studies), err)
		return nil, errors.Wrap(err, "invalid study table")
	}

	log.Info("estimating %d studies (distribution=%s, degenerate_policy=%s)", len(studies), opts.Distribution, opts.Policy)

	pipeline := stage.NewPipelineResult(runID)
	for _, st := range s.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		next, err := st.Apply(table)
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.ObserveStage(st.Name(), elapsed)
		}

		result := stage.StageResult{
			StageName: st.Name(),
			Success:   err == nil,
			Duration:  elapsed.Microseconds(),
		}
		if err != nil {
			result.Error = err.Error()
			pipeline.AddResult(result)
			s.observeRun(err, len(studies), 0)
			log.Warn("stage %s failed after %s: %v", st.Name(), elapsed, err)
			return nil, errors.Wrapf(err, "stage %s failed", st.Name())
		}

		result.Metrics = stage.StageMetrics{
			ProcessedCount: len(next.Rows),
			ExcludedCount:  len(next.Summary.ExcludedStudies),
		}
		pipeline.AddResult(result)
		log.Debug("stage %s completed in %s", st.Name(), elapsed)
		table = next
	}

	profile, err := s.analyzer.AnalyzeTable(table)
	if err != nil {
		s.observeRun(err, len(studies), 0)
		return nil, errors.Wrap(err, "failed to profile prevalence")
	}

	sum := table.Summary
	s.observeRun(nil, len(studies), len(sum.ExcludedStudies))
	log.Info("pooled prevalence %.4f per 100k (95%% CI %.4f-%.4f), Q=%.3f, I2=%.3f",
		sum.PooledPrevalenceInversePer100k, sum.PooledCILowerInverse, sum.PooledCIUpperInverse,
		sum.QStatistic, sum.I2Statistic)
	for _, label := range sum.ExcludedStudies {
		log.Warn("study %q excluded from inverse-variance pooling: zero standard error", label)
	}

	return &Estimate{
		RunID:       runID,
		Fingerprint: table.Fingerprint(),
		Table:       table,
		Pipeline:    pipeline,
		Profile:     profile,
	}, nil
}

func (s *EstimationService) observeRun(err error, studies, excluded int) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = errors.GetCode(err)
	}
	s.metrics.ObserveRun(outcome, studies, excluded)
}
