package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/davbunn1/riboviz/internal/report"
	"github.com/davbunn1/riboviz/internal/runner"
	"github.com/davbunn1/riboviz/internal/workflow"
)

// PrettyRenderer renders plans and run results in a human-friendly format.
type PrettyRenderer struct {
	out io.Writer
}

// NewPretty creates a PrettyRenderer writing to the provided writer.
func NewPretty(out io.Writer) *PrettyRenderer {
	return &PrettyRenderer{out: out}
}

// RenderPlan renders the per-sample step plan together with any validation
// issues. Used by the plan command and by dry-run/validate-only modes, which
// must produce no side effects beyond this output.
func (p *PrettyRenderer) RenderPlan(plan workflow.Plan, issues []runner.ValidationIssue, showCommands bool) error {
	bad := make(map[string]string, len(issues))
	for _, issue := range issues {
		bad[issue.Sample] = issue.Message
	}

	for _, step := range plan.IndexSteps {
		if _, err := fmt.Fprintf(p.out, "Index %02d %s\n", step.Index, step.Description); err != nil {
			return err
		}
		if showCommands {
			if _, err := fmt.Fprintf(p.out, "  $ %s\n", strings.Join(step.Args, " ")); err != nil {
				return err
			}
		}
	}

	for _, pipe := range plan.Pipelines {
		if _, err := fmt.Fprintf(p.out, "Sample %s (%s)\n", pipe.Sample.Name, pipe.Sample.InputFile); err != nil {
			return err
		}
		if msg, ok := bad[pipe.Sample.Name]; ok {
			if _, err := fmt.Fprintf(p.out, "  ❌ %s\n", msg); err != nil {
				return err
			}
			continue
		}
		for _, step := range pipe.Steps {
			if _, err := fmt.Fprintf(p.out, "  %02d %s\n", step.Index, step.Description); err != nil {
				return err
			}
			if showCommands {
				if _, err := fmt.Fprintf(p.out, "    $ %s\n", strings.Join(step.Args, " ")); err != nil {
					return err
				}
			}
		}
	}

	_, err := fmt.Fprintf(p.out, "Validated %d samples, %d failed\n", len(plan.Pipelines), len(issues))
	return err
}

// RenderReport shows per-sample outcomes, the run summary, aggregation
// outcomes and the terminal completion marker.
func (p *PrettyRenderer) RenderReport(rep *report.Report) error {
	for _, res := range rep.Samples {
		switch res.Status {
		case report.StatusSucceeded:
			if _, err := fmt.Fprintf(p.out, "✅ %s (%d steps, %s)\n", res.Sample, res.ExecutedSteps, formatDuration(res.Duration)); err != nil {
				return err
			}
		default:
			if _, err := fmt.Fprintf(p.out, "❌ %s: %s\n", res.Sample, res.Cause); err != nil {
				return err
			}
			if res.LogFile != "" {
				if _, err := fmt.Fprintf(p.out, "   see %s\n", res.LogFile); err != nil {
					return err
				}
			}
		}
	}

	if _, err := fmt.Fprintf(p.out, "Finished processing %d samples, %d failed\n", rep.Total, rep.Failed); err != nil {
		return err
	}

	for _, agg := range rep.Aggregations {
		glyph := "✅"
		if agg.Status != report.StatusSucceeded {
			glyph = "❌"
		}
		if _, err := fmt.Fprintf(p.out, "%s %s (log: %s)\n", glyph, agg.Description, agg.LogFile); err != nil {
			return err
		}
		if agg.Cause != "" {
			if _, err := fmt.Fprintf(p.out, "   %s\n", agg.Cause); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintln(p.out, "Completed")
	return err
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond * 100).String()
}
