package report

import (
	"time"

	"github.com/google/uuid"
)

// Sample terminal states.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// SampleResult captures the terminal outcome of one sample's pipeline.
// Exactly one is produced per configured sample.
type SampleResult struct {
	Sample         string        `json:"sample"`
	Status         string        `json:"status"`
	ExecutedSteps  int           `json:"executed_steps"`
	TotalSteps     int           `json:"total_steps"`
	FailedStep     int           `json:"failed_step,omitempty"`
	FailedStepName string        `json:"failed_step_name,omitempty"`
	Cause          string        `json:"cause,omitempty"`
	LogFile        string        `json:"log_file,omitempty"`
	Duration       time.Duration `json:"-"`
	DurationMS     int64         `json:"duration_ms"`
}

// AggregationResult captures the outcome of one post-processing step. An
// aggregation failure is reported distinctly and never alters per-sample
// results.
type AggregationResult struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Cause       string        `json:"cause,omitempty"`
	LogFile     string        `json:"log_file,omitempty"`
	Duration    time.Duration `json:"-"`
	DurationMS  int64         `json:"duration_ms"`
}

// Report aggregates a whole run: one result per sample plus aggregation
// outcomes. Succeeded+Failed always equals Total.
type Report struct {
	RunID        string              `json:"run_id"`
	Total        int                 `json:"total"`
	Succeeded    int                 `json:"succeeded"`
	Failed       int                 `json:"failed"`
	Samples      []SampleResult      `json:"samples"`
	Aggregations []AggregationResult `json:"aggregations,omitempty"`
	Duration     time.Duration       `json:"-"`
	DurationMS   int64               `json:"duration_ms"`
	ExitCode     int                 `json:"exit_code"`
}

// New returns an empty report with a fresh run identifier.
func New() *Report {
	return &Report{RunID: uuid.NewString()}
}

// Add records a finished sample and updates the counters.
func (r *Report) Add(res SampleResult) {
	r.Samples = append(r.Samples, res)
	r.Total++
	switch res.Status {
	case StatusSucceeded:
		r.Succeeded++
	default:
		r.Failed++
	}
	if res.Status != StatusSucceeded {
		r.ExitCode = 1
	}
}

// AddAggregation records an aggregation step outcome.
func (r *Report) AddAggregation(res AggregationResult) {
	r.Aggregations = append(r.Aggregations, res)
	if res.Status != StatusSucceeded {
		r.ExitCode = 1
	}
}

// SucceededSamples returns the names of samples that reached the succeeded
// state, in result order.
func (r *Report) SucceededSamples() []string {
	names := make([]string, 0, r.Succeeded)
	for _, res := range r.Samples {
		if res.Status == StatusSucceeded {
			names = append(names, res.Sample)
		}
	}
	return names
}
