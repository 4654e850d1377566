package workflow

import "fmt"

// Sample is one named unit of input data processed independently.
type Sample struct {
	Name      string `json:"name"`
	InputFile string `json:"input_file"`
	DirTmp    string `json:"dir_tmp"`
	DirOut    string `json:"dir_out"`
	DirLogs   string `json:"dir_logs"`
}

// Step is a single external-tool invocation within a pipeline. Index is the
// 1-based position in the owning sequence and determines the log file name.
type Step struct {
	Index       int               `json:"index"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Args        []string          `json:"args"`
	Dir         string            `json:"dir,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	// OutputFile, when set, receives the command's stdout instead of the
	// log file. Used for tools that emit their artifact on stdout
	// (bedtools genomecov).
	OutputFile string `json:"output_file,omitempty"`
}

// LogFileName returns the numbered log file name for the step, e.g.
// "03_hisat2_rrna.log".
func (s Step) LogFileName() string {
	return fmt.Sprintf("%02d_%s.log", s.Index, s.Name)
}

// Pipeline is the ordered step sequence for one sample.
type Pipeline struct {
	Sample Sample `json:"sample"`
	Steps  []Step `json:"steps"`
}

// Warning captures a non-fatal issue noticed while planning a run.
type Warning struct {
	Scope   string `json:"scope"`
	Message string `json:"message"`
}

// Plan is everything the driver needs for one run: the optional global index
// phase, one pipeline per sample, and any planning warnings. Aggregation
// steps are not part of the plan because they depend on which samples
// succeed; see Builder.AggregationSteps.
type Plan struct {
	// DirLogs is the top-level log directory, holding logs for index and
	// aggregation steps; per-sample logs live under each sample's own
	// subdirectory.
	DirLogs    string     `json:"dir_logs"`
	IndexSteps []Step     `json:"index_steps,omitempty"`
	Pipelines  []Pipeline `json:"pipelines"`
	Warnings   []Warning  `json:"warnings,omitempty"`
}
