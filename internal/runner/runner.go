// Package runner executes ingest jobs with run-scoped logging and an overlap
// guard.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"coinsnap/pkg/ingest"
)

// ErrAlreadyRunning is returned when the guard refuses a run.
var ErrAlreadyRunning = errors.New("runner: source already running")

// Runner runs jobs against one sink.
type Runner struct {
	sink  ingest.Sink
	guard Guard
	newID func() string
}

// New returns a Runner. guard may be nil.
func New(sink ingest.Sink, guard Guard) *Runner {
	return &Runner{sink: sink, guard: guard, newID: uuid.NewString}
}

// Run executes job once. Every log line of the run carries its run id.
func (r *Runner) Run(ctx context.Context, job ingest.Job) (ingest.Report, error) {
	name := job.Name()
	runID := r.newID()
	ctx = logx.ContextWithFields(ctx, logx.Field("run", runID), logx.Field("source", name))
	logger := logx.WithContext(ctx)

	if r.guard != nil {
		ok, err := r.guard.TryLock(ctx, name)
		if err != nil {
			return ingest.Report{Source: name}, fmt.Errorf("runner: lock %s: %w", name, err)
		}
		if !ok {
			logger.Infof("ingest: skip run source=%s reason=already running", name)
			return ingest.Report{Source: name}, ErrAlreadyRunning
		}
		defer r.guard.Unlock(ctx, name)
	}

	logger.Infof("ingest: start source=%s", name)
	report, err := job.Run(ctx, r.sink)
	if err != nil {
		logger.Errorf("ingest: failed source=%s fatal=%t written=%d skipped=%d err=%v",
			name, ingest.IsFatal(err), report.Written, report.Skipped, err)
		return report, err
	}
	logger.Infof("ingest: done source=%s listed=%d processed=%d skipped=%d written=%d elapsed=%s",
		name, report.Listed, report.Processed, report.Skipped, report.Written, report.Elapsed)
	return report, nil
}

// RunAll runs jobs one after another. A failing source does not stop the
// others; the joined error lists every failure.
func (r *Runner) RunAll(ctx context.Context, jobs []ingest.Job) ([]ingest.Report, error) {
	reports := make([]ingest.Report, 0, len(jobs))
	var errs []error
	for _, job := range jobs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		report, err := r.Run(ctx, job)
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return reports, errors.Join(errs...)
}
