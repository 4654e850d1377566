package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/davbunn1/riboviz/internal/report"
	"github.com/davbunn1/riboviz/internal/workflow"
)

// ValidationIssue is a per-sample validation failure. Validation of one
// sample never halts validation of the others.
type ValidationIssue struct {
	Sample  string `json:"sample"`
	Message string `json:"message"`
}

// PlanSource supplies the run-dependent parts of a plan: where indices live
// and which aggregation steps to run once the succeeded sample set is known.
// workflow.Builder is the production implementation.
type PlanSource interface {
	IndexDir() string
	AggregationSteps(succeeded []string) []workflow.Step
}

// Driver orchestrates sample pipelines across a run: validation, the index
// phase, independent sample execution, then aggregation over the samples
// that succeeded.
type Driver struct {
	runner *Runner
	source PlanSource
}

// NewDriver creates a driver executing with the supplied runner options.
func NewDriver(opts Options, source PlanSource) *Driver {
	return &Driver{runner: New(opts), source: source}
}

// Validate statically checks every sample pipeline without executing any
// step or touching the filesystem beyond stat calls.
func (d *Driver) Validate(plan workflow.Plan) []ValidationIssue {
	var issues []ValidationIssue
	for _, p := range plan.Pipelines {
		if msg := validateSample(p.Sample); msg != "" {
			issues = append(issues, ValidationIssue{Sample: p.Sample.Name, Message: msg})
		}
	}
	return issues
}

func validateSample(s workflow.Sample) string {
	info, err := os.Stat(s.InputFile)
	if err != nil {
		return fmt.Sprintf("input file %q not found", s.InputFile)
	}
	if info.IsDir() {
		return fmt.Sprintf("input file %q is a directory", s.InputFile)
	}
	return ""
}

// Run executes the plan in live mode. Per-sample failures are recorded, never
// fatal; the returned report always holds exactly one result per sample.
func (d *Driver) Run(ctx context.Context, plan workflow.Plan) *report.Report {
	rep := report.New()
	start := d.runner.opts.Now()
	defer func() {
		rep.Duration = d.runner.opts.Now().Sub(start)
		rep.DurationMS = rep.Duration.Milliseconds()
	}()

	invalid := make(map[string]string)
	for _, issue := range d.Validate(plan) {
		invalid[issue.Sample] = issue.Message
	}

	valid := make([]workflow.Pipeline, 0, len(plan.Pipelines))
	for _, p := range plan.Pipelines {
		if _, bad := invalid[p.Sample.Name]; !bad {
			valid = append(valid, p)
		}
	}

	indexErr := d.runIndexPhase(ctx, plan, len(valid) > 0)

	results := make([]report.SampleResult, len(valid))
	if indexErr == nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.runner.opts.Workers)
		for i, p := range valid {
			i, p := i, p
			g.Go(func() error {
				results[i] = d.runner.RunSample(gctx, p)
				return nil
			})
		}
		// Sample pipelines never return errors; Wait is a barrier so
		// aggregation cannot observe a partially written sample directory.
		_ = g.Wait()
	}

	byName := make(map[string]report.SampleResult, len(valid))
	for i, p := range valid {
		if indexErr != nil {
			byName[p.Sample.Name] = report.SampleResult{
				Sample:     p.Sample.Name,
				Status:     report.StatusFailed,
				TotalSteps: len(p.Steps),
				Cause:      fmt.Sprintf("index building failed: %v", indexErr),
			}
			continue
		}
		byName[p.Sample.Name] = results[i]
	}

	for _, p := range plan.Pipelines {
		if msg, bad := invalid[p.Sample.Name]; bad {
			rep.Add(report.SampleResult{
				Sample:     p.Sample.Name,
				Status:     report.StatusFailed,
				TotalSteps: len(p.Steps),
				Cause:      "validation: " + msg,
			})
			continue
		}
		rep.Add(byName[p.Sample.Name])
	}

	if indexErr == nil {
		d.runAggregation(ctx, plan, rep)
	}

	return rep
}

// runIndexPhase builds the alignment indices before any sample runs. Nothing
// downstream can align without them, so a failure here is returned and the
// driver fails every sample with the cause.
func (d *Driver) runIndexPhase(ctx context.Context, plan workflow.Plan, haveSamples bool) error {
	if len(plan.IndexSteps) == 0 || !haveSamples {
		return nil
	}
	if err := os.MkdirAll(d.source.IndexDir(), 0o755); err != nil {
		return err
	}
	for _, step := range plan.IndexSteps {
		d.runner.progress("%s (log: %s)", step.Description, filepath.Join(plan.DirLogs, step.LogFileName()))
		if err := d.runner.executeStep(ctx, step, plan.DirLogs); err != nil {
			return err
		}
	}
	return nil
}

// runAggregation executes the post-processing steps over succeeded samples.
// Failures are recorded as aggregation results; they never revoke per-sample
// outcomes.
func (d *Driver) runAggregation(ctx context.Context, plan workflow.Plan, rep *report.Report) {
	for _, step := range d.source.AggregationSteps(rep.SucceededSamples()) {
		logPath := filepath.Join(plan.DirLogs, step.LogFileName())
		d.runner.progress("%s (log: %s)", step.Description, logPath)

		res := report.AggregationResult{
			Name:        step.Name,
			Description: step.Description,
			Status:      report.StatusSucceeded,
			LogFile:     logPath,
		}
		stepStart := d.runner.opts.Now()
		if err := d.runner.executeStep(ctx, step, plan.DirLogs); err != nil {
			res.Status = report.StatusFailed
			res.Cause = err.Error()
		}
		res.Duration = d.runner.opts.Now().Sub(stepStart)
		res.DurationMS = res.Duration.Milliseconds()
		rep.AddAggregation(res)
	}
}
