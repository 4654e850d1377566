package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/davbunn1/riboviz/internal/report"
	"github.com/davbunn1/riboviz/internal/workflow"
)

// RunSample executes one sample's steps strictly in order, halting at the
// first failure. Every call produces exactly one SampleResult; failures are
// local to the sample and never propagate as errors.
func (r *Runner) RunSample(ctx context.Context, p workflow.Pipeline) report.SampleResult {
	res := report.SampleResult{
		Sample:     p.Sample.Name,
		Status:     report.StatusSucceeded,
		TotalSteps: len(p.Steps),
	}
	start := r.opts.Now()
	defer func() {
		res.Duration = r.opts.Now().Sub(start)
		res.DurationMS = res.Duration.Milliseconds()
	}()

	if err := r.prepareSampleDirs(p.Sample); err != nil {
		res.Status = report.StatusFailed
		res.Cause = err.Error()
		return res
	}

	for _, step := range p.Steps {
		r.progress("[%s] %02d/%02d %s (log: %s)",
			p.Sample.Name, step.Index, len(p.Steps), step.Description,
			filepath.Join(p.Sample.DirLogs, step.LogFileName()))

		err := r.executeStep(ctx, step, p.Sample.DirLogs)
		if err == nil {
			res.ExecutedSteps++
			continue
		}

		res.ExecutedSteps++
		res.Status = report.StatusFailed
		res.FailedStep = step.Index
		res.FailedStepName = step.Name
		res.Cause = err.Error()

		var stepErr *StepError
		if errors.As(err, &stepErr) {
			res.LogFile = stepErr.LogFile
			if stepErr.LogFile == "" {
				// The step never started (log or output file could not
				// be created), so no log exists for it.
				res.ExecutedSteps--
			}
		}

		r.progress("[%s] step %d (%s) failed; skipping remaining steps", p.Sample.Name, step.Index, step.Name)
		return res
	}

	return res
}

func (r *Runner) prepareSampleDirs(s workflow.Sample) error {
	for _, dir := range []string{s.DirTmp, s.DirOut, s.DirLogs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
