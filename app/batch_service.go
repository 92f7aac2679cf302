package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"

	"birthprev/internal"
	"birthprev/internal/errors"
	"birthprev/internal/monitoring"
	"birthprev/ports"
)

// BatchJob pairs one input file with the file its results go to.
type BatchJob struct {
	Input  string
	Output string
}

// BatchOutcome is the result of one job; Err is set instead of Estimate on failure.
type BatchOutcome struct {
	Job      BatchJob
	Estimate *Estimate
	Err      error
}

// BatchService estimates independent input files concurrently. Every file
// gets its own table, so runs share no state; the weighted semaphore only
// bounds how many run at once.
type BatchService struct {
	estimator *EstimationService
	reader    ports.StudyReaderPort
	writer    ports.ResultWriterPort
	sem       *semaphore.Weighted
	logger    *internal.Logger
	metrics   *monitoring.Metrics
}

// NewBatchService creates a batch runner with the given concurrency limit
func NewBatchService(estimator *EstimationService, reader ports.StudyReaderPort, writer ports.ResultWriterPort, concurrency int64, logger *internal.Logger, metrics *monitoring.Metrics) *BatchService {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &BatchService{
		estimator: estimator,
		reader:    reader,
		writer:    writer,
		sem:       semaphore.NewWeighted(concurrency),
		logger:    logger,
		metrics:   metrics,
	}
}

// Run processes every job and returns outcomes in job order. A failing job
// does not stop the others. A job whose output path repeats an earlier job's
// fails without running.
func (b *BatchService) Run(ctx context.Context, jobs []BatchJob, opts EstimateOptions) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(jobs))
	outputs := make(map[string]string, len(jobs))
	var wg sync.WaitGroup

	for i, job := range jobs {
		out := filepath.Clean(job.Output)
		if first, ok := outputs[out]; ok {
			err := errors.InvalidInput(fmt.Sprintf("output %s is already written by %s", job.Output, first))
			outcomes[i] = BatchOutcome{Job: job, Err: err}
			b.observe(err)
			continue
		}
		outputs[out] = job.Input

		if err := b.sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = BatchOutcome{Job: job, Err: err}
			b.observe(err)
			continue
		}

		wg.Add(1)
		go func(i int, job BatchJob) {
			defer wg.Done()
			defer b.sem.Release(1)
			outcomes[i] = b.runOne(ctx, job, opts)
		}(i, job)
	}

	wg.Wait()
	return outcomes
}

func (b *BatchService) runOne(ctx context.Context, job BatchJob, opts EstimateOptions) BatchOutcome {
	outcome := BatchOutcome{Job: job}

	studies, err := b.reader.ReadFile(job.Input)
	if err != nil {
		outcome.Err = errors.Wrapf(err, "failed to read %s", job.Input)
	} else if est, err := b.estimator.Estimate(ctx, studies, opts); err != nil {
		outcome.Err = errors.Wrapf(err, "failed to estimate %s", job.Input)
	} else if err := b.writer.WriteFile(job.Output, est.Table); err != nil {
		outcome.Err = errors.Wrapf(err, "failed to write %s", job.Output)
	} else {
		outcome.Estimate = est
	}

	if outcome.Err != nil {
		b.logger.Error("batch job %s: %v", job.Input, outcome.Err)
	} else {
		b.logger.Info("batch job %s -> %s", job.Input, job.Output)
	}
	b.observe(outcome.Err)
	return outcome
}

func (b *BatchService) observe(err error) {
	if b.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = errors.GetCode(err)
	}
	b.metrics.BatchFilesDone.WithLabelValues(outcome).Inc()
}
