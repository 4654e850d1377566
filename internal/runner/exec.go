package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/davbunn1/riboviz/internal/workflow"
)

// Options configure how the runner executes steps.
type Options struct {
	Root    string
	Stdout  io.Writer
	Verbose bool
	Env     []string
	Workers int
	Now     func() time.Time
}

// Runner executes workflow steps, one log file per executed step.
type Runner struct {
	opts Options
	mu   sync.Mutex // serialises progress lines across sample goroutines
}

// New creates a runner with the supplied options.
func New(opts Options) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Runner{opts: opts}
}

// StepError is the typed failure outcome of a step. A non-zero tool exit
// never crashes the process; it becomes one of these.
type StepError struct {
	Step     workflow.Step
	LogFile  string
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	if e.LogFile != "" {
		return fmt.Sprintf("step %d (%s) failed: %v (log: %s)", e.Step.Index, e.Step.Name, e.Err, e.LogFile)
	}
	return fmt.Sprintf("step %d (%s) failed: %v", e.Step.Index, e.Step.Name, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// executeStep runs one external command, capturing its output to
// logDir/NN_<name>.log. When the step declares an OutputFile, stdout goes to
// that file instead and only stderr is logged.
func (r *Runner) executeStep(ctx context.Context, step workflow.Step, logDir string) error {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return &StepError{Step: step, Err: errors.Wrap(err, "create log directory")}
	}

	logPath := filepath.Join(logDir, step.LogFileName())
	logFile, err := os.Create(logPath)
	if err != nil {
		return &StepError{Step: step, Err: errors.Wrap(err, "create log file")}
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, step.Args[0], step.Args[1:]...)
	cmd.Dir = step.Dir
	if cmd.Dir == "" {
		cmd.Dir = r.opts.Root
	}
	cmd.Env = mergeEnv(r.opts.Env, step.Env)

	var logWriter io.Writer = logFile
	if r.opts.Verbose {
		logWriter = io.MultiWriter(logFile, &lockedWriter{mu: &r.mu, w: r.opts.Stdout})
	}

	if step.OutputFile != "" {
		outFile, err := os.Create(step.OutputFile)
		if err != nil {
			return &StepError{Step: step, LogFile: logPath, Err: errors.Wrap(err, "create output file")}
		}
		defer outFile.Close()
		cmd.Stdout = outFile
	} else {
		cmd.Stdout = logWriter
	}
	cmd.Stderr = logWriter

	if err := cmd.Run(); err != nil {
		return &StepError{
			Step:     step,
			LogFile:  logPath,
			ExitCode: exitCode(err),
			Err:      errors.Wrapf(err, "run %s", step.Args[0]),
		}
	}
	return nil
}

// lockedWriter shares the progress mutex so verbose tool output from
// concurrent sample pipelines never interleaves mid-write with progress
// lines or each other.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// progress emits the per-step progress line. Lines from concurrent sample
// pipelines are serialised so they never interleave mid-line.
func (r *Runner) progress(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.opts.Stdout, format+"\n", args...)
}

func mergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	envMap := make(map[string]string, len(base)+len(overlay))
	for _, kv := range base {
		if idx := strings.Index(kv, "="); idx != -1 {
			envMap[kv[:idx]] = kv[idx+1:]
		}
	}
	for k, v := range overlay {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, envMap[k]))
	}
	return out
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
